// internal/domain/slot.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Slot is a recurring class time on the studio timetable, e.g.
// "Morning Flow, 07:00, 60 min". Slots are reference data: the timetable is
// managed by the studio admin tooling and loaded by the seed tool.
type Slot struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
	// StartTime is the local wall-clock start, "HH:MM" 24h format.
	StartTime   string    `bson:"startTime" json:"startTime"`
	DurationMin int       `bson:"durationMin" json:"durationMin"`
	IsActive    bool      `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
