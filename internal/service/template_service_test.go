package service_test

import (
	"context"
	"testing"
	"time"

	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// templateFixture wires a template service against fresh fakes and a small
// catalog to reference.
type templateFixture struct {
	svc       service.TemplateService
	templates *fakeTemplateRepo
	exercises *fakeExerciseRepo
	ex1, ex2  domain.Exercise
	staffID   primitive.ObjectID
}

func newTemplateFixture() *templateFixture {
	exercises := newFakeExerciseRepo()
	templates := newFakeTemplateRepo()
	f := &templateFixture{
		svc:       service.NewTemplateService(templates, exercises),
		templates: templates,
		exercises: exercises,
		staffID:   primitive.NewObjectID(),
	}
	f.ex1 = seedExercise(exercises, "Mountain Pose", []domain.BodyRegion{domain.RegionSpine}, nil, []string{"posture awareness"})
	f.ex2 = seedExercise(exercises, "Cat-Cow", []domain.BodyRegion{domain.RegionSpine}, []domain.BodyRegion{domain.RegionNeck}, []string{"flexibility"})
	return f
}

func TestTemplateService_Create(t *testing.T) {
	f := newTemplateFixture()
	ctx := context.Background()

	sections := []domain.PlanSection{{
		Type: domain.SectionWarmup,
		Items: []domain.PlanItem{
			{ExerciseID: f.ex2.ID, Order: 7, DurationMin: 5},
			{ExerciseID: f.ex1.ID, Order: 2, DurationMin: 3},
		},
	}}
	created, err := f.svc.Create(ctx, "Morning Basics", "gentle start", domain.LevelBeginner, sections, f.staffID)
	require.NoError(t, err)

	assert.False(t, created.ID.IsZero())
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, 0, created.UsageCount)
	assert.Nil(t, created.LastUsedAt)
	assert.True(t, created.IsActive)
	assert.Equal(t, f.staffID, created.CreatedBy)

	// Item orders are rewritten to a dense 1..N sequence, sorted by the
	// order the caller asked for.
	require.Len(t, created.Sections, 1)
	items := created.Sections[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, f.ex1.ID, items[0].ExerciseID)
	assert.Equal(t, 1, items[0].Order)
	assert.Equal(t, f.ex2.ID, items[1].ExerciseID)
	assert.Equal(t, 2, items[1].Order)
}

func TestTemplateService_Create_Validation(t *testing.T) {
	f := newTemplateFixture()
	ctx := context.Background()
	sections := singleSection(domain.SectionMain, f.ex1.ID)

	_, err := f.svc.Create(ctx, "", "", domain.LevelBeginner, sections, f.staffID)
	assert.ErrorIs(t, err, service.ErrValidationFailed)

	_, err = f.svc.Create(ctx, "No Sections", "", domain.LevelBeginner, nil, f.staffID)
	assert.ErrorIs(t, err, service.ErrValidationFailed)

	_, err = f.svc.Create(ctx, "Bad Level", "", domain.Level("expert"), sections, f.staffID)
	assert.ErrorIs(t, err, service.ErrValidationFailed)

	// References must resolve against the catalog.
	ghost := primitive.NewObjectID()
	_, err = f.svc.Create(ctx, "Ghost Ref", "", domain.LevelBeginner, singleSection(domain.SectionMain, ghost), f.staffID)
	require.ErrorIs(t, err, service.ErrValidationFailed)
	assert.Contains(t, err.Error(), ghost.Hex())
}

func TestTemplateService_Update(t *testing.T) {
	f := newTemplateFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, "Evening Stretch", "", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex1.ID), f.staffID)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, created.ID, created.Version, "Evening Stretch II", "slower pace", domain.LevelIntermediate, singleSection(domain.SectionMain, f.ex2.ID))
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Evening Stretch II", updated.Name)
	assert.Equal(t, "slower pace", updated.Note)
	assert.Equal(t, domain.LevelIntermediate, updated.Level)
	assert.Equal(t, f.ex2.ID, updated.Sections[0].Items[0].ExerciseID)
}

func TestTemplateService_Update_StaleVersion(t *testing.T) {
	f := newTemplateFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, "Contested", "", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex1.ID), f.staffID)
	require.NoError(t, err)

	// Two editors read version 1; the first one wins.
	_, err = f.svc.Update(ctx, created.ID, 1, "First Editor", "", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex1.ID))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, created.ID, 1, "Second Editor", "", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex2.ID))
	assert.ErrorIs(t, err, service.ErrStaleVersion)

	// The losing edit changed nothing.
	current, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "First Editor", current.Name)
	assert.Equal(t, 2, current.Version)
}

func TestTemplateService_Update_NotFound(t *testing.T) {
	f := newTemplateFixture()
	_, err := f.svc.Update(context.Background(), primitive.NewObjectID(), 1, "Nobody", "", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex1.ID))
	assert.ErrorIs(t, err, service.ErrTemplateNotFound)
}

func TestTemplateService_Clone_DefaultsNameAndResetsStats(t *testing.T) {
	f := newTemplateFixture()
	ctx := context.Background()
	source, err := f.svc.Create(ctx, "Hip Opening", "note carries over", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex1.ID, f.ex2.ID), f.staffID)
	require.NoError(t, err)

	// Give the source some history so the reset is visible.
	require.NoError(t, f.templates.IncrementUsage(ctx, source.ID, time.Now()))

	clone, err := f.svc.Clone(ctx, source.ID, "", f.staffID)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, clone.ID)
	assert.Equal(t, "Hip Opening (Copy)", clone.Name)
	assert.Equal(t, "note carries over", clone.Note)
	assert.Equal(t, 1, clone.Version)
	assert.Equal(t, 0, clone.UsageCount)
	assert.Nil(t, clone.LastUsedAt)
	assert.Equal(t, source.Sections, clone.Sections)
}

func TestTemplateService_Clone_IsIndependent(t *testing.T) {
	f := newTemplateFixture()
	ctx := context.Background()
	source, err := f.svc.Create(ctx, "Hip Opening", "", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex1.ID, f.ex2.ID), f.staffID)
	require.NoError(t, err)

	clone, err := f.svc.Clone(ctx, source.ID, "Hip Opening Fork", f.staffID)
	require.NoError(t, err)

	// Rewrite the source; the clone must not move.
	_, err = f.svc.Update(ctx, source.ID, source.Version, "Rewritten", "", domain.LevelAdvanced, singleSection(domain.SectionCooldown, f.ex2.ID))
	require.NoError(t, err)

	cloneAfter, err := f.svc.GetByID(ctx, clone.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hip Opening Fork", cloneAfter.Name)
	assert.Equal(t, domain.LevelBeginner, cloneAfter.Level)
	require.Len(t, cloneAfter.Sections, 1)
	assert.Equal(t, domain.SectionMain, cloneAfter.Sections[0].Type)
	require.Len(t, cloneAfter.Sections[0].Items, 2)
	assert.Equal(t, f.ex1.ID, cloneAfter.Sections[0].Items[0].ExerciseID)
}

func TestTemplateService_Clone_NotFound(t *testing.T) {
	f := newTemplateFixture()
	_, err := f.svc.Clone(context.Background(), primitive.NewObjectID(), "", f.staffID)
	assert.ErrorIs(t, err, service.ErrTemplateNotFound)
}

func TestTemplateService_Deactivate(t *testing.T) {
	f := newTemplateFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, "Retiring Soon", "", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex1.ID), f.staffID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(ctx, created.ID))

	// Gone from the active listing, still reachable by id.
	active, err := f.svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := f.svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, 2, got.Version) // archiving is a versioned edit

	// Archiving twice is a no-op.
	require.NoError(t, f.svc.Deactivate(ctx, created.ID))
	again, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version)
}

func TestTemplateService_Insights(t *testing.T) {
	exercises := newFakeExerciseRepo()
	templates := newFakeTemplateRepo()
	svc := service.NewTemplateService(templates, exercises)
	ctx := context.Background()

	twist := seedExercise(exercises, "Seated Twist",
		[]domain.BodyRegion{domain.RegionSpine, domain.RegionShoulders},
		[]domain.BodyRegion{domain.RegionNeck},
		[]string{"flexibility", "calm"})
	cobra := seedExercise(exercises, "Cobra",
		[]domain.BodyRegion{domain.RegionSpine}, nil, []string{"flexibility"})
	pigeon := seedExercise(exercises, "Pigeon",
		[]domain.BodyRegion{domain.RegionHips},
		[]domain.BodyRegion{domain.RegionSpine},
		[]string{"strength"})

	sections := []domain.PlanSection{
		{Type: domain.SectionWarmup, Items: []domain.PlanItem{
			{ExerciseID: twist.ID, Order: 1},
			{ExerciseID: cobra.ID, Order: 2},
		}},
		{Type: domain.SectionMain, Items: []domain.PlanItem{
			{ExerciseID: pigeon.ID, Order: 1},
			{ExerciseID: cobra.ID, Order: 2},
		}},
	}
	created, err := svc.Create(ctx, "Backbend Focus", "", domain.LevelIntermediate, sections, primitive.NewObjectID())
	require.NoError(t, err)

	insights, err := svc.Insights(ctx, created.ID)
	require.NoError(t, err)

	// Spine scores 4: twist primary, cobra primary twice, pigeon secondary.
	// The three single-occurrence regions tie; first appearance in plan
	// order breaks the tie and the list caps at three, so hips drops off.
	require.Len(t, insights.DominantBodyRegions, 3)
	assert.Equal(t, service.TagCount{Label: "spine", Count: 4}, insights.DominantBodyRegions[0])
	assert.Equal(t, service.TagCount{Label: "shoulders", Count: 1}, insights.DominantBodyRegions[1])
	assert.Equal(t, service.TagCount{Label: "neck", Count: 1}, insights.DominantBodyRegions[2])

	assert.Equal(t, []service.TagCount{
		{Label: "flexibility", Count: 3},
		{Label: "calm", Count: 1},
		{Label: "strength", Count: 1},
	}, insights.TopBenefits)
}

func TestTemplateService_Insights_SkipsVanishedExercises(t *testing.T) {
	f := newTemplateFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, "Short Flow", "", domain.LevelBeginner, singleSection(domain.SectionMain, f.ex1.ID), f.staffID)
	require.NoError(t, err)

	// The catalog entry disappears after the template was built.
	f.exercises.remove(f.ex1.ID)

	insights, err := f.svc.Insights(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, insights.DominantBodyRegions)
	assert.Empty(t, insights.TopBenefits)
}

func TestTemplateService_GetByID_NotFound(t *testing.T) {
	f := newTemplateFixture()
	_, err := f.svc.GetByID(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, service.ErrTemplateNotFound)
}
