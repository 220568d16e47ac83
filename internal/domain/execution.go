// internal/domain/execution.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Execution records that a session actually happened: which plan, in which
// slot, on which day, who led it and who attended. Executions are immutable
// once written — they are the studio's history, and analytics depend on them
// never changing. There is exactly one per (slot, date), enforced by a unique
// index.
//
// Snapshot holds a deep copy of the template's sections taken at record time,
// so later edits to the template never rewrite what a past session contained.
type Execution struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	TemplateID primitive.ObjectID `bson:"templateId" json:"templateId"`
	// TemplateName and TemplateLevel are captured at record time; reports
	// stay readable even after the template is renamed or archived.
	TemplateName  string `bson:"templateName" json:"templateName"`
	TemplateLevel Level  `bson:"templateLevel" json:"templateLevel"`

	Snapshot []PlanSection `bson:"snapshot" json:"snapshot"`

	SlotID primitive.ObjectID `bson:"slotId" json:"slotId"`
	Date   Date               `bson:"date" json:"date"`

	InstructorID *primitive.ObjectID `bson:"instructorId,omitempty" json:"instructorId,omitempty"`
	Notes        string              `bson:"notes,omitempty" json:"notes,omitempty"`

	// MemberIDs is the attendance list read from member management when
	// the session was recorded. AttendeeCount is denormalized for reports.
	MemberIDs     []primitive.ObjectID `bson:"memberIds,omitempty" json:"memberIds,omitempty"`
	AttendeeCount int                  `bson:"attendeeCount" json:"attendeeCount"`

	RecordedAt time.Time `bson:"recordedAt" json:"recordedAt"`
}
