package service

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrExecutionNotFound = errors.New("execution not found")
	// ErrDuplicateExecution means a session was already recorded for the
	// (slot, date). One class happens per slot per day, full stop.
	ErrDuplicateExecution = errors.New("an execution already exists for this slot and date")
	// ErrExecutionImmutable rejects any attempt to edit or delete history.
	ErrExecutionImmutable = errors.New("executions are immutable once recorded")
)

// --- Service Interface (Optional) ---
type ExecutionService interface {
	// Record turns "this template ran in this slot today" into a permanent
	// history record: it snapshots the template content, pulls attendance,
	// persists, and then settles usage stats and the matching allocation.
	Record(ctx context.Context, templateID, slotID primitive.ObjectID, date domain.Date, instructorID *primitive.ObjectID, notes string) (*domain.Execution, error)
	GetByID(ctx context.Context, executionID primitive.ObjectID) (*domain.Execution, error)
	ListRange(ctx context.Context, from, to domain.Date) ([]domain.Execution, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Execution, error)
	ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.Execution, error)
}

// --- Service Implementation ---

// executionService implements the ExecutionService interface.
type executionService struct {
	executionRepo  repository.ExecutionRepository
	templateRepo   repository.TemplateRepository
	allocationRepo repository.AllocationRepository
	slotRepo       repository.SlotRepository
	attendance     repository.AttendanceReader
	logger         *zap.SugaredLogger
}

// NewExecutionService creates a new instance of executionService.
func NewExecutionService(
	executionRepo repository.ExecutionRepository,
	templateRepo repository.TemplateRepository,
	allocationRepo repository.AllocationRepository,
	slotRepo repository.SlotRepository,
	attendance repository.AttendanceReader,
	logger *zap.SugaredLogger,
) ExecutionService {
	return &executionService{
		executionRepo:  executionRepo,
		templateRepo:   templateRepo,
		allocationRepo: allocationRepo,
		slotRepo:       slotRepo,
		attendance:     attendance,
		logger:         logger,
	}
}

// Record is the heart of the engine. Steps 1-5 decide whether a record may
// exist and write it; steps 6-7 settle denormalized state (usage counter,
// allocation status) best-effort. A crash between 5 and 7 leaves a valid
// execution plus stale side state, which the nightly reconciler repairs —
// the history record itself is never at risk.
func (s *executionService) Record(ctx context.Context, templateID, slotID primitive.ObjectID, date domain.Date, instructorID *primitive.ObjectID, notes string) (*domain.Execution, error) {
	// 1. Validate Input
	if templateID == primitive.NilObjectID || slotID == primitive.NilObjectID {
		return nil, fmt.Errorf("%w: template ID and slot ID are required", ErrValidationFailed)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidationFailed)
	}

	// 2. Duplicate pre-check. The unique index is the real guard; this
	// catches the common case with a clean error before any other work.
	_, err := s.executionRepo.GetBySlotDate(ctx, slotID, date)
	if err == nil {
		return nil, ErrDuplicateExecution
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 3. Resolve the template. Archived templates may still be recorded:
	// the class happened whether or not somebody archived the plan between
	// scheduling and teaching it.
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	// Slot must at least exist; recording against a typo'd slot id would
	// poison the (slot, date) history keys.
	if _, err := s.slotRepo.GetByID(ctx, slotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	// 4. Pull attendance. We consume what member management marked; an
	// empty list just means attendance wasn't taken (or nobody came).
	memberIDs, err := s.attendance.GetPresentMembers(ctx, slotID, date)
	if err != nil {
		return nil, err
	}

	// 5. Snapshot the template content as of right now and persist. The
	// deep copy is what makes history immune to future template edits.
	execution := &domain.Execution{
		TemplateID:    template.ID,
		TemplateName:  template.Name,
		TemplateLevel: template.Level,
		Snapshot:      domain.CloneSections(template.Sections),
		SlotID:        slotID,
		Date:          date,
		InstructorID:  instructorID,
		Notes:         notes,
		MemberIDs:     memberIDs,
		AttendeeCount: len(memberIDs),
		RecordedAt:    time.Now().UTC(),
	}
	executionID, err := s.executionRepo.Create(ctx, execution)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateExecution // lost the race to another recorder
		}
		return nil, err
	}
	execution.ID = executionID

	// 6. Bump the template's usage stats. The execution is already safe;
	// a failure here is logged and left to the reconciler.
	if err := s.templateRepo.IncrementUsage(ctx, template.ID, execution.RecordedAt); err != nil {
		s.logger.Warnw("execution recorded but usage increment failed",
			"executionId", executionID.Hex(), "templateId", template.ID.Hex(), "error", err)
	}

	// 7. Settle the matching scheduled allocation, if there is one.
	// Ad-hoc recordings (no allocation) are perfectly normal.
	allocation, err := s.allocationRepo.GetActiveBySlotDate(ctx, slotID, date)
	switch {
	case err == nil && allocation.Status == domain.AllocationScheduled:
		if err := s.allocationRepo.MarkExecuted(ctx, allocation.ID, executionID); err != nil {
			s.logger.Warnw("execution recorded but allocation not marked executed",
				"executionId", executionID.Hex(), "allocationId", allocation.ID.Hex(), "error", err)
		}
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		s.logger.Warnw("execution recorded but allocation lookup failed",
			"executionId", executionID.Hex(), "error", err)
	}

	return execution, nil
}

// GetByID retrieves a single execution.
func (s *executionService) GetByID(ctx context.Context, executionID primitive.ObjectID) (*domain.Execution, error) {
	execution, err := s.executionRepo.GetByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExecutionNotFound
		}
		return nil, err
	}
	return execution, nil
}

// ListRange retrieves history in a date window; either end may be zero.
func (s *executionService) ListRange(ctx context.Context, from, to domain.Date) ([]domain.Execution, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: to date precedes from date", ErrValidationFailed)
	}
	return s.executionRepo.ListRange(ctx, from, to)
}

// ListByMember retrieves one member's practice history.
func (s *executionService) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Execution, error) {
	if memberID == primitive.NilObjectID {
		return nil, fmt.Errorf("%w: member ID is required", ErrValidationFailed)
	}
	return s.executionRepo.ListByMember(ctx, memberID)
}

// ListByTemplate retrieves every run of one template.
func (s *executionService) ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.Execution, error) {
	if templateID == primitive.NilObjectID {
		return nil, fmt.Errorf("%w: template ID is required", ErrValidationFailed)
	}
	return s.executionRepo.ListByTemplate(ctx, templateID)
}
