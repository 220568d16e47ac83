package service_test

import (
	"context"
	"testing"

	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newCatalogFixture() (service.CatalogService, *fakeExerciseRepo, *fakeSlotRepo) {
	exercises := newFakeExerciseRepo()
	slots := newFakeSlotRepo()
	return service.NewCatalogService(exercises, slots), exercises, slots
}

func TestCatalogService_GetFlowSteps(t *testing.T) {
	svc, exercises, _ := newCatalogFixture()
	ctx := context.Background()

	mountain := seedExercise(exercises, "Mountain Pose", nil, nil, nil)
	forward := seedExercise(exercises, "Forward Fold", nil, nil, nil)
	cobra := seedExercise(exercises, "Cobra", nil, nil, nil)
	flow := exercises.put(domain.Exercise{
		Name:     "Sun Salutation",
		Category: domain.CategoryFlow,
		Level:    domain.LevelBeginner,
		StepIDs:  []primitive.ObjectID{mountain.ID, forward.ID, cobra.ID, forward.ID, mountain.ID},
		IsActive: true,
	})

	steps, err := svc.GetFlowSteps(ctx, flow.ID)
	require.NoError(t, err)

	// Practice order, repeats included.
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"Mountain Pose", "Forward Fold", "Cobra", "Forward Fold", "Mountain Pose"}, names)
}

func TestCatalogService_GetFlowSteps_SkipsVanishedSteps(t *testing.T) {
	svc, exercises, _ := newCatalogFixture()
	ctx := context.Background()

	mountain := seedExercise(exercises, "Mountain Pose", nil, nil, nil)
	flow := exercises.put(domain.Exercise{
		Name:     "Half Salutation",
		Category: domain.CategoryFlow,
		Level:    domain.LevelBeginner,
		StepIDs:  []primitive.ObjectID{mountain.ID, primitive.NewObjectID()},
		IsActive: true,
	})

	steps, err := svc.GetFlowSteps(ctx, flow.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "Mountain Pose", steps[0].Name)
}

func TestCatalogService_GetFlowSteps_Errors(t *testing.T) {
	svc, exercises, _ := newCatalogFixture()
	ctx := context.Background()

	cobra := seedExercise(exercises, "Cobra", nil, nil, nil)
	_, err := svc.GetFlowSteps(ctx, cobra.ID)
	assert.ErrorIs(t, err, service.ErrValidationFailed, "a posture is not a flow")

	_, err = svc.GetFlowSteps(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, service.ErrExerciseNotFound)
}

func TestCatalogService_ListExercisesByCategory(t *testing.T) {
	svc, exercises, _ := newCatalogFixture()
	ctx := context.Background()

	seedExercise(exercises, "Cobra", nil, nil, nil)
	exercises.put(domain.Exercise{
		Name:     "Alternate Nostril",
		Category: domain.CategoryBreathing,
		Level:    domain.LevelBeginner,
		IsActive: true,
	})

	breathing, err := svc.ListExercisesByCategory(ctx, domain.CategoryBreathing)
	require.NoError(t, err)
	require.Len(t, breathing, 1)
	assert.Equal(t, "Alternate Nostril", breathing[0].Name)

	_, err = svc.ListExercisesByCategory(ctx, domain.ExerciseCategory("cardio"))
	assert.ErrorIs(t, err, service.ErrValidationFailed)
}

func TestCatalogService_Slots(t *testing.T) {
	svc, _, slots := newCatalogFixture()
	ctx := context.Background()

	evening := seedSlot(slots, "Evening", "18:00")
	morning := seedSlot(slots, "Morning", "07:00")
	slots.put(domain.Slot{Name: "Suspended", StartTime: "12:00", DurationMin: 60, IsActive: false})

	active, err := svc.ListSlots(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	// Timetable order, not insertion order.
	assert.Equal(t, morning.ID, active[0].ID)
	assert.Equal(t, evening.ID, active[1].ID)

	got, err := svc.GetSlotByID(ctx, morning.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning", got.Name)

	_, err = svc.GetSlotByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, service.ErrSlotNotFound)
}
