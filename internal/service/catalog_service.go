package service

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository" // Import repository package
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrSlotNotFound     = errors.New("slot not found")
	// ErrValidationFailed is shared across services; handlers map it to a
	// 400 response. Wrap it to carry detail: fmt.Errorf("%w: ...", ...).
	ErrValidationFailed = errors.New("validation failed")
)

// --- Service Interface (Optional) ---
// CatalogService exposes the read side of the reference data: the exercise
// catalog and the timetable slots. Both are curated outside this application,
// so there are no create/update/delete operations here at all.
type CatalogService interface {
	GetExerciseByID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error)
	ListExercises(ctx context.Context, activeOnly bool) ([]domain.Exercise, error)
	ListExercisesByCategory(ctx context.Context, category domain.ExerciseCategory) ([]domain.Exercise, error)
	// GetFlowSteps resolves a compound flow's member exercises in practice
	// order.
	GetFlowSteps(ctx context.Context, flowID primitive.ObjectID) ([]domain.Exercise, error)
	GetSlotByID(ctx context.Context, slotID primitive.ObjectID) (*domain.Slot, error)
	ListSlots(ctx context.Context, activeOnly bool) ([]domain.Slot, error)
}

// --- Service Implementation ---

// catalogService implements the CatalogService interface.
type catalogService struct {
	exerciseRepo repository.ExerciseRepository
	slotRepo     repository.SlotRepository
}

// NewCatalogService creates a new instance of catalogService.
func NewCatalogService(exerciseRepo repository.ExerciseRepository, slotRepo repository.SlotRepository) CatalogService {
	return &catalogService{
		exerciseRepo: exerciseRepo,
		slotRepo:     slotRepo,
	}
}

// GetExerciseByID retrieves a single catalog entry.
func (s *catalogService) GetExerciseByID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err // Propagate other repository errors
	}
	return exercise, nil
}

// ListExercises retrieves the catalog, optionally only active entries.
func (s *catalogService) ListExercises(ctx context.Context, activeOnly bool) ([]domain.Exercise, error) {
	return s.exerciseRepo.List(ctx, activeOnly)
}

// ListExercisesByCategory retrieves active entries of one category.
func (s *catalogService) ListExercisesByCategory(ctx context.Context, category domain.ExerciseCategory) ([]domain.Exercise, error) {
	if !category.IsValid() {
		return nil, ErrValidationFailed
	}
	return s.exerciseRepo.ListByCategory(ctx, category)
}

// GetFlowSteps resolves the member exercises of a compound flow, preserving
// the flow's step order. Steps that have since vanished from the catalog are
// skipped rather than failing the whole lookup.
func (s *catalogService) GetFlowSteps(ctx context.Context, flowID primitive.ObjectID) ([]domain.Exercise, error) {
	// 1. Fetch the flow itself
	flow, err := s.GetExerciseByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.Category != domain.CategoryFlow {
		return nil, ErrValidationFailed
	}

	// 2. Batch-resolve the steps
	resolved, err := s.exerciseRepo.GetByIDs(ctx, flow.StepIDs)
	if err != nil {
		return nil, err
	}

	// 3. Reassemble in step order
	steps := make([]domain.Exercise, 0, len(flow.StepIDs))
	for _, stepID := range flow.StepIDs {
		if ex, ok := resolved[stepID]; ok {
			steps = append(steps, ex)
		}
	}
	return steps, nil
}

// GetSlotByID retrieves a single timetable slot.
func (s *catalogService) GetSlotByID(ctx context.Context, slotID primitive.ObjectID) (*domain.Slot, error) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return slot, nil
}

// ListSlots retrieves the timetable in start-time order.
func (s *catalogService) ListSlots(ctx context.Context, activeOnly bool) ([]domain.Slot, error) {
	return s.slotRepo.List(ctx, activeOnly)
}
