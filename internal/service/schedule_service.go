package service

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrAllocationNotFound = errors.New("allocation not found")
	// ErrSlotConflict means the slot already has a live session plan for
	// that day. Cancel it first or pick another slot.
	ErrSlotConflict = errors.New("slot already has a session planned for this date")
	// ErrAllocationExecuted guards terminal state: an executed class cannot
	// be cancelled or re-pointed.
	ErrAllocationExecuted = errors.New("allocation has already been executed")
)

// BatchAllocationResult reports a one-template-everywhere scheduling run.
// Skipped slots are not a failure: the caller sees exactly which slots were
// already taken and decides what to do about them.
type BatchAllocationResult struct {
	Created        []domain.Allocation  `json:"created"`
	SkippedSlotIDs []primitive.ObjectID `json:"skippedSlotIds"`
}

// FullyApplied reports whether every active slot accepted the template.
func (r *BatchAllocationResult) FullyApplied() bool {
	return len(r.SkippedSlotIDs) == 0
}

// --- Service Interface (Optional) ---
type ScheduleService interface {
	// Allocate books a template into a (slot, date). At most one live
	// allocation may hold a (slot, date); a second attempt fails with
	// ErrSlotConflict.
	Allocate(ctx context.Context, templateID, slotID primitive.ObjectID, date domain.Date, assignedBy primitive.ObjectID) (*domain.Allocation, error)
	// AllocateToAllSlots books the template into every active slot on the
	// date, skipping slots already taken.
	AllocateToAllSlots(ctx context.Context, templateID primitive.ObjectID, date domain.Date, assignedBy primitive.ObjectID) (*BatchAllocationResult, error)
	// Cancel releases a scheduled allocation. Cancelling twice is a no-op;
	// cancelling an executed allocation is an error.
	Cancel(ctx context.Context, allocationID primitive.ObjectID) error
	// MarkExecuted links an execution and flips the allocation to executed.
	// Called by the execution recorder and the reconciler, not exposed on
	// the API.
	MarkExecuted(ctx context.Context, allocationID, executionID primitive.ObjectID) error
	GetByID(ctx context.Context, allocationID primitive.ObjectID) (*domain.Allocation, error)
	ListByDate(ctx context.Context, date domain.Date) ([]domain.Allocation, error)
	ListRange(ctx context.Context, from, to domain.Date) ([]domain.Allocation, error)
}

// --- Service Implementation ---

// scheduleService implements the ScheduleService interface.
type scheduleService struct {
	allocationRepo repository.AllocationRepository
	templateRepo   repository.TemplateRepository
	slotRepo       repository.SlotRepository
	logger         *zap.SugaredLogger
}

// NewScheduleService creates a new instance of scheduleService.
func NewScheduleService(
	allocationRepo repository.AllocationRepository,
	templateRepo repository.TemplateRepository,
	slotRepo repository.SlotRepository,
	logger *zap.SugaredLogger,
) ScheduleService {
	return &scheduleService{
		allocationRepo: allocationRepo,
		templateRepo:   templateRepo,
		slotRepo:       slotRepo,
		logger:         logger,
	}
}

// Allocate books a template into a (slot, date) pair.
func (s *scheduleService) Allocate(ctx context.Context, templateID, slotID primitive.ObjectID, date domain.Date, assignedBy primitive.ObjectID) (*domain.Allocation, error) {
	// 1. Validate Input
	if templateID == primitive.NilObjectID || slotID == primitive.NilObjectID {
		return nil, fmt.Errorf("%w: template ID and slot ID are required", ErrValidationFailed)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidationFailed)
	}

	// 2. Resolve the template; archived templates take no new bookings
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if !template.IsActive {
		return nil, fmt.Errorf("%w: template %q is archived", ErrValidationFailed, template.Name)
	}

	// 3. Resolve the slot
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if !slot.IsActive {
		return nil, fmt.Errorf("%w: slot %q is not active", ErrValidationFailed, slot.Name)
	}

	// 4. Friendly conflict pre-check. The partial unique index is the real
	// guard; this just produces a clean error on the common path.
	_, err = s.allocationRepo.GetActiveBySlotDate(ctx, slotID, date)
	if err == nil {
		return nil, ErrSlotConflict
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 5. Insert; a racing writer loses here on the unique index
	allocation := &domain.Allocation{
		TemplateID: templateID,
		SlotID:     slotID,
		Date:       date,
		AssignedBy: assignedBy,
		// Status, Active, timestamps set by repository
	}
	allocationID, err := s.allocationRepo.Create(ctx, allocation)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrSlotConflict
		}
		return nil, err
	}
	allocation.ID = allocationID
	return allocation, nil
}

// AllocateToAllSlots books the template into every active slot for the date.
// Slots already holding a live allocation are skipped, not failed: a themed
// day can be laid over a partially planned schedule.
func (s *scheduleService) AllocateToAllSlots(ctx context.Context, templateID primitive.ObjectID, date domain.Date, assignedBy primitive.ObjectID) (*BatchAllocationResult, error) {
	slots, err := s.slotRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}

	result := &BatchAllocationResult{
		Created:        []domain.Allocation{},
		SkippedSlotIDs: []primitive.ObjectID{},
	}
	for _, slot := range slots {
		allocation, err := s.Allocate(ctx, templateID, slot.ID, date, assignedBy)
		if err != nil {
			if errors.Is(err, ErrSlotConflict) {
				s.logger.Infow("slot already planned, skipping",
					"slotId", slot.ID.Hex(), "date", date)
				result.SkippedSlotIDs = append(result.SkippedSlotIDs, slot.ID)
				continue
			}
			// Anything else (missing template, storage trouble) fails the
			// batch; partial application is only ever due to conflicts.
			return nil, err
		}
		result.Created = append(result.Created, *allocation)
	}
	return result, nil
}

// Cancel releases a scheduled allocation so the (slot, date) can be reused.
func (s *scheduleService) Cancel(ctx context.Context, allocationID primitive.ObjectID) error {
	// 1. Fetch to disambiguate the states up front
	allocation, err := s.allocationRepo.GetByID(ctx, allocationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAllocationNotFound
		}
		return err
	}

	// 2. Terminal-state handling
	switch allocation.Status {
	case domain.AllocationCancelled:
		return nil // cancelling twice is fine
	case domain.AllocationExecuted:
		return ErrAllocationExecuted
	}

	// 3. Conditional transition; losing a race to the recorder surfaces as
	// the allocation no longer being scheduled
	err = s.allocationRepo.Cancel(ctx, allocationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.recheckAfterLostRace(ctx, allocationID)
		}
		return err
	}
	return nil
}

// recheckAfterLostRace re-reads an allocation whose conditional update missed
// and maps its current state to the right error.
func (s *scheduleService) recheckAfterLostRace(ctx context.Context, allocationID primitive.ObjectID) error {
	current, err := s.allocationRepo.GetByID(ctx, allocationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAllocationNotFound
		}
		return err
	}
	switch current.Status {
	case domain.AllocationCancelled:
		return nil
	case domain.AllocationExecuted:
		return ErrAllocationExecuted
	}
	return ErrAllocationNotFound
}

// MarkExecuted flips scheduled -> executed and links the execution record.
func (s *scheduleService) MarkExecuted(ctx context.Context, allocationID, executionID primitive.ObjectID) error {
	if allocationID == primitive.NilObjectID || executionID == primitive.NilObjectID {
		return fmt.Errorf("%w: allocation ID and execution ID are required", ErrValidationFailed)
	}

	err := s.allocationRepo.MarkExecuted(ctx, allocationID, executionID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	// The conditional update missed: gone, cancelled, or already executed.
	current, getErr := s.allocationRepo.GetByID(ctx, allocationID)
	if getErr != nil {
		if errors.Is(getErr, repository.ErrNotFound) {
			return ErrAllocationNotFound
		}
		return getErr
	}
	if current.Status == domain.AllocationExecuted && current.ExecutionID != nil && *current.ExecutionID == executionID {
		return nil // already linked to this very execution; idempotent
	}
	return ErrAllocationExecuted
}

// GetByID retrieves a single allocation.
func (s *scheduleService) GetByID(ctx context.Context, allocationID primitive.ObjectID) (*domain.Allocation, error) {
	allocation, err := s.allocationRepo.GetByID(ctx, allocationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}
	return allocation, nil
}

// ListByDate retrieves the day's schedule, cancelled entries included.
func (s *scheduleService) ListByDate(ctx context.Context, date domain.Date) ([]domain.Allocation, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidationFailed)
	}
	return s.allocationRepo.ListByDate(ctx, date)
}

// ListRange retrieves the schedule over a date window.
func (s *scheduleService) ListRange(ctx context.Context, from, to domain.Date) ([]domain.Allocation, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: both from and to dates are required", ErrValidationFailed)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to date precedes from date", ErrValidationFailed)
	}
	return s.allocationRepo.ListRange(ctx, from, to)
}
