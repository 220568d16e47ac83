package service

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"alcyxob/yoga-studio/internal/storage"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrUnknownReportKind = errors.New("unknown report kind")
)

// ReportKind names an exportable report.
type ReportKind string

const (
	ReportExerciseUsage ReportKind = "exercise-usage"
	ReportBodyRegions   ReportKind = "body-regions"
	ReportBenefits      ReportKind = "benefits"
)

// IsValid checks the kind against the known reports.
func (k ReportKind) IsValid() bool {
	switch k {
	case ReportExerciseUsage, ReportBodyRegions, ReportBenefits:
		return true
	}
	return false
}

// ExerciseUsageRow counts how often one exercise appeared across execution
// snapshots. Label carries the current catalog name, or an unknown/deleted
// marker when the entry has since been removed.
type ExerciseUsageRow struct {
	ExerciseID primitive.ObjectID `json:"exerciseId"`
	Label      string             `json:"label"`
	Count      int                `json:"count"`
}

// BodyRegionRow reports one region's share of the focus in a window. Primary
// and secondary occurrences are tracked separately but summed for ranking.
type BodyRegionRow struct {
	Region         domain.BodyRegion `json:"region"`
	PrimaryCount   int               `json:"primaryCount"`
	SecondaryCount int               `json:"secondaryCount"`
	TotalCount     int               `json:"totalCount"`
	// Percent is this region's total over all region occurrences in the
	// window, ×100, rounded to the nearest integer.
	Percent int `json:"percent"`
}

// BenefitRow counts one benefit tag across the window.
type BenefitRow struct {
	Benefit string `json:"benefit"`
	Count   int    `json:"count"`
}

// ReportExportResult points at a CSV dropped into object storage.
type ReportExportResult struct {
	Kind        ReportKind `json:"kind"`
	ObjectKey   string     `json:"objectKey"`
	DownloadURL string     `json:"downloadUrl"`
}

// --- Service Interface (Optional) ---
// AnalyticsService computes reports purely from execution snapshots. The
// template store's current state never enters the picture: renaming,
// rewriting or archiving templates cannot change what the history says.
// The catalog is consulted only to turn exercise ids into display labels.
type AnalyticsService interface {
	ExerciseUsageReport(ctx context.Context, from, to domain.Date) ([]ExerciseUsageRow, error)
	BodyRegionFocusReport(ctx context.Context, from, to domain.Date) ([]BodyRegionRow, error)
	BenefitCoverageReport(ctx context.Context, from, to domain.Date) ([]BenefitRow, error)
	// ExportReport renders one report as CSV, uploads it to object storage
	// and returns a presigned download link.
	ExportReport(ctx context.Context, kind ReportKind, from, to domain.Date) (*ReportExportResult, error)
}

// --- Service Implementation ---

// analyticsService implements the AnalyticsService interface.
type analyticsService struct {
	executionRepo repository.ExecutionRepository
	exerciseRepo  repository.ExerciseRepository
	fileStorage   storage.FileStorage
	logger        *zap.SugaredLogger
}

// NewAnalyticsService creates a new instance of analyticsService.
func NewAnalyticsService(
	executionRepo repository.ExecutionRepository,
	exerciseRepo repository.ExerciseRepository,
	fileStorage storage.FileStorage,
	logger *zap.SugaredLogger,
) AnalyticsService {
	return &analyticsService{
		executionRepo: executionRepo,
		exerciseRepo:  exerciseRepo,
		fileStorage:   fileStorage,
		logger:        logger,
	}
}

// snapshotWalk loads the executions in the window and resolves every distinct
// exercise id against the current catalog, preserving first-appearance order.
func (s *analyticsService) snapshotWalk(ctx context.Context, from, to domain.Date) ([]domain.Execution, map[primitive.ObjectID]domain.Exercise, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, nil, fmt.Errorf("%w: to date precedes from date", ErrValidationFailed)
	}
	executions, err := s.executionRepo.ListRange(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, exec := range executions {
		for _, section := range exec.Snapshot {
			for _, item := range section.Items {
				if !seen[item.ExerciseID] {
					seen[item.ExerciseID] = true
					ids = append(ids, item.ExerciseID)
				}
			}
		}
	}

	resolved, err := s.exerciseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return executions, resolved, nil
}

// unknownExerciseLabel renders a catalog id that no longer resolves. Reports
// keep counting these; they just can't name them anymore.
func unknownExerciseLabel(id primitive.ObjectID) string {
	return fmt.Sprintf("unknown/deleted (%s)", id.Hex())
}

// ExerciseUsageReport counts item occurrences per exercise across all
// snapshots in the window, most used first.
func (s *analyticsService) ExerciseUsageReport(ctx context.Context, from, to domain.Date) ([]ExerciseUsageRow, error) {
	executions, resolved, err := s.snapshotWalk(ctx, from, to)
	if err != nil {
		return nil, err
	}

	counts := make(map[primitive.ObjectID]int)
	order := make(map[primitive.ObjectID]int)
	next := 0
	for _, exec := range executions {
		for _, section := range exec.Snapshot {
			for _, item := range section.Items {
				if _, ok := counts[item.ExerciseID]; !ok {
					order[item.ExerciseID] = next
					next++
				}
				counts[item.ExerciseID]++
			}
		}
	}

	rows := make([]ExerciseUsageRow, 0, len(counts))
	for id, count := range counts {
		label := unknownExerciseLabel(id)
		if ex, ok := resolved[id]; ok {
			label = ex.Name
		}
		rows = append(rows, ExerciseUsageRow{ExerciseID: id, Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return order[rows[i].ExerciseID] < order[rows[j].ExerciseID]
	})
	return rows, nil
}

// BodyRegionFocusReport distributes the window's region occurrences.
// Exercises no longer in the catalog contribute nothing here — their region
// tags are unknowable — while still counting in the usage report.
func (s *analyticsService) BodyRegionFocusReport(ctx context.Context, from, to domain.Date) ([]BodyRegionRow, error) {
	executions, resolved, err := s.snapshotWalk(ctx, from, to)
	if err != nil {
		return nil, err
	}

	primary := make(map[domain.BodyRegion]int)
	secondary := make(map[domain.BodyRegion]int)
	order := make(map[domain.BodyRegion]int)
	next := 0
	note := func(r domain.BodyRegion) {
		if _, ok := order[r]; !ok {
			order[r] = next
			next++
		}
	}
	grandTotal := 0
	for _, exec := range executions {
		for _, section := range exec.Snapshot {
			for _, item := range section.Items {
				ex, ok := resolved[item.ExerciseID]
				if !ok {
					continue
				}
				for _, r := range ex.PrimaryRegions {
					note(r)
					primary[r]++
					grandTotal++
				}
				for _, r := range ex.SecondaryRegions {
					note(r)
					secondary[r]++
					grandTotal++
				}
			}
		}
	}

	rows := make([]BodyRegionRow, 0, len(order))
	for region := range order {
		total := primary[region] + secondary[region]
		percent := 0
		if grandTotal > 0 {
			percent = int(math.Round(float64(total) * 100 / float64(grandTotal)))
		}
		rows = append(rows, BodyRegionRow{
			Region:         region,
			PrimaryCount:   primary[region],
			SecondaryCount: secondary[region],
			TotalCount:     total,
			Percent:        percent,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalCount != rows[j].TotalCount {
			return rows[i].TotalCount > rows[j].TotalCount
		}
		return order[rows[i].Region] < order[rows[j].Region]
	})
	return rows, nil
}

// BenefitCoverageReport counts benefit tags across the window's snapshots.
func (s *analyticsService) BenefitCoverageReport(ctx context.Context, from, to domain.Date) ([]BenefitRow, error) {
	executions, resolved, err := s.snapshotWalk(ctx, from, to)
	if err != nil {
		return nil, err
	}

	tally := newTagTally()
	for _, exec := range executions {
		for _, section := range exec.Snapshot {
			for _, item := range section.Items {
				ex, ok := resolved[item.ExerciseID]
				if !ok {
					continue
				}
				for _, b := range ex.Benefits {
					tally.add(b)
				}
			}
		}
	}

	top := tally.top(0) // 0 = no truncation
	rows := make([]BenefitRow, len(top))
	for i, tc := range top {
		rows[i] = BenefitRow{Benefit: tc.Label, Count: tc.Count}
	}
	return rows, nil
}

// === Export ===

// ExportReport renders a report to CSV, drops it in object storage under a
// fresh key and hands back a presigned download URL.
func (s *analyticsService) ExportReport(ctx context.Context, kind ReportKind, from, to domain.Date) (*ReportExportResult, error) {
	if !kind.IsValid() {
		return nil, ErrUnknownReportKind
	}

	// 1. Render the requested report
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	switch kind {
	case ReportExerciseUsage:
		rows, err := s.ExerciseUsageReport(ctx, from, to)
		if err != nil {
			return nil, err
		}
		_ = w.Write([]string{"exerciseId", "label", "count"})
		for _, r := range rows {
			_ = w.Write([]string{r.ExerciseID.Hex(), r.Label, strconv.Itoa(r.Count)})
		}
	case ReportBodyRegions:
		rows, err := s.BodyRegionFocusReport(ctx, from, to)
		if err != nil {
			return nil, err
		}
		_ = w.Write([]string{"region", "primaryCount", "secondaryCount", "totalCount", "percent"})
		for _, r := range rows {
			_ = w.Write([]string{string(r.Region), strconv.Itoa(r.PrimaryCount),
				strconv.Itoa(r.SecondaryCount), strconv.Itoa(r.TotalCount), strconv.Itoa(r.Percent)})
		}
	case ReportBenefits:
		rows, err := s.BenefitCoverageReport(ctx, from, to)
		if err != nil {
			return nil, err
		}
		_ = w.Write([]string{"benefit", "count"})
		for _, r := range rows {
			_ = w.Write([]string{r.Benefit, strconv.Itoa(r.Count)})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	// 2. Upload under a unique key
	objectKey := fmt.Sprintf("reports/%s/%s.csv", kind, uuid.New().String())
	if err := s.fileStorage.UploadObject(ctx, objectKey, "text/csv", buf.Bytes()); err != nil {
		return nil, fmt.Errorf("uploading report: %w", err)
	}

	// 3. Presign a download link
	downloadURL, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presigning report download: %w", err)
	}

	s.logger.Infow("report exported", "kind", kind, "objectKey", objectKey,
		"from", from, "to", to, "bytes", buf.Len())

	return &ReportExportResult{Kind: kind, ObjectKey: objectKey, DownloadURL: downloadURL}, nil
}
