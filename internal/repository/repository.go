package repository

import (
	"alcyxob/yoga-studio/internal/domain" // Import our defined domain models
	"context"                             // Standard for request-scoped deadlines, cancellation signals, etc.
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer (optional but good practice)
var (
	ErrNotFound = RepositoryError("not found")
	// ErrDuplicateKey surfaces a unique-index violation. The schedule and
	// execution collections rely on it for their one-per-(slot,date) rules.
	ErrDuplicateKey = RepositoryError("duplicate key")
	// ErrStaleVersion means a conditional update found the document at a
	// different version than the caller read.
	ErrStaleVersion = RepositoryError("stale version")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ExerciseRepository defines read access to the exercise catalog. The catalog
// is reference data curated outside this application, so there are no CRUD
// methods here; the seed tool loads snapshots through CatalogSeeder.
type ExerciseRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	// GetByIDs batch-resolves ids to entries. Ids missing from the catalog
	// are simply absent from the result map, not an error.
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Exercise, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Exercise, error)
	ListByCategory(ctx context.Context, category domain.ExerciseCategory) ([]domain.Exercise, error)
}

// SlotRepository defines read access to the studio timetable.
type SlotRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Slot, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Slot, error)
}

// CatalogSeeder loads reference-data snapshots. Only the seed tool writes
// through this interface.
type CatalogSeeder interface {
	ReplaceExercises(ctx context.Context, exercises []domain.Exercise) error
	ReplaceSlots(ctx context.Context, slots []domain.Slot) error
}

// TemplateRepository defines the interface for interacting with plan templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.PlanTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]domain.PlanTemplate, error)
	// Update persists name, note, level, sections and the active flag, but
	// only if the stored version still equals expectedVersion; the write
	// bumps the version by one. Returns ErrStaleVersion on a lost race and
	// ErrNotFound if the template does not exist at all.
	Update(ctx context.Context, template *domain.PlanTemplate, expectedVersion int) error
	// IncrementUsage bumps usageCount and stamps lastUsedAt. Usage tracking
	// is deliberately outside the version token: recording a session must
	// not invalidate an editor's in-flight update.
	IncrementUsage(ctx context.Context, id primitive.ObjectID, usedAt time.Time) error
	// SetUsageCount overwrites the denormalized counter. Reconciliation
	// only; normal writes go through IncrementUsage.
	SetUsageCount(ctx context.Context, id primitive.ObjectID, count int) error
}

// AllocationRepository defines the interface for interacting with schedule
// allocations.
type AllocationRepository interface {
	// Create inserts a scheduled allocation. A second active allocation for
	// the same (slot, date) fails with ErrDuplicateKey.
	Create(ctx context.Context, allocation *domain.Allocation) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Allocation, error)
	// GetActiveBySlotDate returns the single non-cancelled allocation for
	// the slot and date, or ErrNotFound.
	GetActiveBySlotDate(ctx context.Context, slotID primitive.ObjectID, date domain.Date) (*domain.Allocation, error)
	ListByDate(ctx context.Context, date domain.Date) ([]domain.Allocation, error)
	ListRange(ctx context.Context, from, to domain.Date) ([]domain.Allocation, error)
	// ListScheduledThrough returns allocations still in scheduled state
	// with a date on or before the given day. Reconciliation input.
	ListScheduledThrough(ctx context.Context, date domain.Date) ([]domain.Allocation, error)
	// MarkExecuted transitions scheduled -> executed and links the
	// execution. The write is conditional on the current status being
	// scheduled; ErrNotFound means no such scheduled allocation.
	MarkExecuted(ctx context.Context, id, executionID primitive.ObjectID) error
	// Cancel transitions scheduled -> cancelled and clears the active flag,
	// freeing the (slot, date) key for a new allocation. Conditional on
	// scheduled status, like MarkExecuted.
	Cancel(ctx context.Context, id primitive.ObjectID) error
}

// ExecutionRepository defines the interface for interacting with the
// execution history. There are deliberately no update or delete methods:
// executions are immutable once written.
type ExecutionRepository interface {
	// Create inserts the execution. A second execution for the same
	// (slot, date) fails with ErrDuplicateKey.
	Create(ctx context.Context, execution *domain.Execution) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Execution, error)
	GetBySlotDate(ctx context.Context, slotID primitive.ObjectID, date domain.Date) (*domain.Execution, error)
	// ListRange returns executions with from <= date <= to, newest first.
	// A zero from or to leaves that end of the range open.
	ListRange(ctx context.Context, from, to domain.Date) ([]domain.Execution, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Execution, error)
	ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.Execution, error)
	// CountByTemplateSince counts executions of the template dated on or
	// after the given day. Overuse checks read this.
	CountByTemplateSince(ctx context.Context, templateID primitive.ObjectID, since domain.Date) (int, error)
	// CountsByTemplate tallies the whole history per template.
	// Reconciliation input for repairing usage counters.
	CountsByTemplate(ctx context.Context) (map[primitive.ObjectID]int, error)
}

// AttendanceReader exposes the attendance marks owned by member management.
// This engine only reads them, at the moment a session is recorded.
type AttendanceReader interface {
	// GetPresentMembers returns the member ids marked present for the slot
	// and date. No attendance record simply means an empty list.
	GetPresentMembers(ctx context.Context, slotID primitive.ObjectID, date domain.Date) ([]primitive.ObjectID, error)
}
