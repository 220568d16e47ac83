package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"

	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analyticsFixture struct {
	svc        service.AnalyticsService
	executions *fakeExecutionRepo
	exercises  *fakeExerciseRepo
	files      *fakeFileStorage
}

func newAnalyticsFixture() *analyticsFixture {
	executions := newFakeExecutionRepo()
	exercises := newFakeExerciseRepo()
	files := newFakeFileStorage()
	return &analyticsFixture{
		svc:        service.NewAnalyticsService(executions, exercises, files, testLogger()),
		executions: executions,
		exercises:  exercises,
		files:      files,
	}
}

func TestAnalyticsService_ExerciseUsageReport(t *testing.T) {
	f := newAnalyticsFixture()
	ctx := context.Background()

	cobra := seedExercise(f.exercises, "Cobra", []domain.BodyRegion{domain.RegionSpine}, nil, []string{"flexibility"})
	lotus := seedExercise(f.exercises, "Lotus", []domain.BodyRegion{domain.RegionHips}, nil, []string{"calm"})

	seedExecution(t, f.executions, domain.Execution{
		Date:     "2026-09-01",
		Snapshot: singleSection(domain.SectionMain, cobra.ID, lotus.ID),
	})
	seedExecution(t, f.executions, domain.Execution{
		Date:     "2026-09-02",
		Snapshot: singleSection(domain.SectionMain, cobra.ID),
	})

	rows, err := f.svc.ExerciseUsageReport(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, service.ExerciseUsageRow{ExerciseID: cobra.ID, Label: "Cobra", Count: 2}, rows[0])
	assert.Equal(t, service.ExerciseUsageRow{ExerciseID: lotus.ID, Label: "Lotus", Count: 1}, rows[1])

	// The window filters by execution date.
	rows, err = f.svc.ExerciseUsageReport(ctx, "2026-09-02", "2026-09-02")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, cobra.ID, rows[0].ExerciseID)
	assert.Equal(t, 1, rows[0].Count)

	_, err = f.svc.ExerciseUsageReport(ctx, "2026-09-02", "2026-09-01")
	assert.ErrorIs(t, err, service.ErrValidationFailed)
}

func TestAnalyticsService_DeletedExercise(t *testing.T) {
	f := newAnalyticsFixture()
	ctx := context.Background()

	cobra := seedExercise(f.exercises, "Cobra", []domain.BodyRegion{domain.RegionSpine}, nil, []string{"flexibility"})
	seedExecution(t, f.executions, domain.Execution{
		Date:     "2026-09-01",
		Snapshot: singleSection(domain.SectionMain, cobra.ID),
	})

	// The catalog entry vanishes after the class was held.
	f.exercises.remove(cobra.ID)

	// Usage still counts the occurrence, with a placeholder label.
	rows, err := f.svc.ExerciseUsageReport(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, fmt.Sprintf("unknown/deleted (%s)", cobra.ID.Hex()), rows[0].Label)
	assert.Equal(t, 1, rows[0].Count)

	// Region and benefit tags are unknowable without the entry.
	regions, err := f.svc.BodyRegionFocusReport(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, regions)
	benefits, err := f.svc.BenefitCoverageReport(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, benefits)
}

func TestAnalyticsService_BodyRegionFocusReport(t *testing.T) {
	f := newAnalyticsFixture()
	ctx := context.Background()

	twist := seedExercise(f.exercises, "Seated Twist",
		[]domain.BodyRegion{domain.RegionSpine}, []domain.BodyRegion{domain.RegionNeck}, nil)
	cobra := seedExercise(f.exercises, "Cobra",
		[]domain.BodyRegion{domain.RegionSpine}, nil, nil)

	// Twist appears twice and cobra once: spine 3 primary, neck 2
	// secondary, five region occurrences in total.
	seedExecution(t, f.executions, domain.Execution{
		Date:     "2026-09-01",
		Snapshot: singleSection(domain.SectionMain, twist.ID, cobra.ID),
	})
	seedExecution(t, f.executions, domain.Execution{
		Date:     "2026-09-02",
		Snapshot: singleSection(domain.SectionMain, twist.ID),
	})

	rows, err := f.svc.BodyRegionFocusReport(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, service.BodyRegionRow{
		Region: domain.RegionSpine, PrimaryCount: 3, SecondaryCount: 0, TotalCount: 3, Percent: 60,
	}, rows[0])
	assert.Equal(t, service.BodyRegionRow{
		Region: domain.RegionNeck, PrimaryCount: 0, SecondaryCount: 2, TotalCount: 2, Percent: 40,
	}, rows[1])
}

func TestAnalyticsService_BenefitCoverageReport(t *testing.T) {
	f := newAnalyticsFixture()
	ctx := context.Background()

	child := seedExercise(f.exercises, "Child's Pose", nil, nil, []string{"relaxation", "stress relief"})
	bridge := seedExercise(f.exercises, "Bridge", nil, nil, []string{"stress relief"})

	seedExecution(t, f.executions, domain.Execution{
		Date:     "2026-09-01",
		Snapshot: singleSection(domain.SectionCooldown, child.ID, bridge.ID),
	})

	rows, err := f.svc.BenefitCoverageReport(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []service.BenefitRow{
		{Benefit: "stress relief", Count: 2},
		{Benefit: "relaxation", Count: 1},
	}, rows)
}

func TestAnalyticsService_ExportReport(t *testing.T) {
	f := newAnalyticsFixture()
	ctx := context.Background()

	cobra := seedExercise(f.exercises, "Cobra", []domain.BodyRegion{domain.RegionSpine}, nil, nil)
	seedExecution(t, f.executions, domain.Execution{
		Date:     "2026-09-01",
		Snapshot: singleSection(domain.SectionMain, cobra.ID),
	})

	result, err := f.svc.ExportReport(ctx, service.ReportExerciseUsage, "", "")
	require.NoError(t, err)

	assert.Equal(t, service.ReportExerciseUsage, result.Kind)
	assert.True(t, strings.HasPrefix(result.ObjectKey, "reports/exercise-usage/"), "got key %q", result.ObjectKey)
	assert.True(t, strings.HasSuffix(result.ObjectKey, ".csv"), "got key %q", result.ObjectKey)
	assert.Contains(t, result.DownloadURL, result.ObjectKey)

	obj, ok := f.files.get(result.ObjectKey)
	require.True(t, ok, "report must land in object storage")
	assert.Equal(t, "text/csv", obj.ContentType)

	records, err := csv.NewReader(bytes.NewReader(obj.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"exerciseId", "label", "count"}, records[0])
	assert.Equal(t, []string{cobra.ID.Hex(), "Cobra", "1"}, records[1])

	// A second export of the same kind lands under its own key.
	again, err := f.svc.ExportReport(ctx, service.ReportExerciseUsage, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, result.ObjectKey, again.ObjectKey)
}

func TestAnalyticsService_ExportReport_EmptyWindow(t *testing.T) {
	f := newAnalyticsFixture()

	// No history at all still yields a well-formed file with its header.
	result, err := f.svc.ExportReport(context.Background(), service.ReportBenefits, "", "")
	require.NoError(t, err)

	obj, ok := f.files.get(result.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, "benefit,count\n", string(obj.Body))
}

func TestAnalyticsService_ExportReport_UnknownKind(t *testing.T) {
	f := newAnalyticsFixture()
	_, err := f.svc.ExportReport(context.Background(), service.ReportKind("pdf"), "", "")
	assert.ErrorIs(t, err, service.ErrUnknownReportKind)
}
