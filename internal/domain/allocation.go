// internal/domain/allocation.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AllocationStatus tracks an allocation through its lifecycle.
// scheduled -> executed and scheduled -> cancelled are the only transitions;
// executed and cancelled are terminal.
type AllocationStatus string

const (
	AllocationScheduled AllocationStatus = "scheduled"
	AllocationExecuted  AllocationStatus = "executed"
	AllocationCancelled AllocationStatus = "cancelled"
)

// Allocation books a plan template into one time slot on one calendar day.
// At most one non-cancelled allocation may exist per (slot, date); the
// allocations collection enforces that with a partial unique index.
type Allocation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TemplateID primitive.ObjectID `bson:"templateId" json:"templateId"`
	SlotID     primitive.ObjectID `bson:"slotId" json:"slotId"`
	Date       Date               `bson:"date" json:"date"`
	AssignedBy primitive.ObjectID `bson:"assignedBy,omitempty" json:"assignedBy,omitempty"`

	Status AllocationStatus `bson:"status" json:"status"`

	// Active mirrors Status != cancelled. Mongo partial indexes cannot
	// express a $ne condition, so the (slotId, date) unique index keys off
	// this flag instead. Repositories keep the two in sync.
	Active bool `bson:"active" json:"-"`

	// ExecutionID links to the execution once the allocation is executed.
	ExecutionID *primitive.ObjectID `bson:"executionId,omitempty" json:"executionId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsTerminal reports whether the allocation can no longer change status.
func (a *Allocation) IsTerminal() bool {
	return a.Status == AllocationExecuted || a.Status == AllocationCancelled
}
