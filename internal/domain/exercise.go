// internal/domain/exercise.go
package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseCategory classifies a catalog entry. The set is closed: analytics
// and plan validation rely on every entry carrying one of these values.
type ExerciseCategory string

const (
	CategoryPosture    ExerciseCategory = "posture"
	CategoryBreathing  ExerciseCategory = "breathing-technique"
	CategoryCleansing  ExerciseCategory = "cleansing-technique"
	CategoryGeneral    ExerciseCategory = "general-exercise"
	CategoryRelaxation ExerciseCategory = "relaxation"
	// CategoryFlow marks a named sequence built from other catalog entries
	// (e.g. a sun-salutation round). Flows must list their member steps.
	CategoryFlow ExerciseCategory = "compound-flow"
)

// IsValid checks the category against the closed set.
func (c ExerciseCategory) IsValid() bool {
	switch c {
	case CategoryPosture, CategoryBreathing, CategoryCleansing,
		CategoryGeneral, CategoryRelaxation, CategoryFlow:
		return true
	}
	return false
}

// Level grades difficulty for exercises and plan templates alike.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// IsValid checks the level against the known grades.
func (l Level) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// BodyRegion tags the anatomy an exercise works. Region tags feed the
// focus-distribution report and the per-template insight tallies.
type BodyRegion string

const (
	RegionSpine      BodyRegion = "spine"
	RegionShoulders  BodyRegion = "shoulders"
	RegionNeck       BodyRegion = "neck"
	RegionChest      BodyRegion = "chest"
	RegionCore       BodyRegion = "core"
	RegionHips       BodyRegion = "hips"
	RegionHamstrings BodyRegion = "hamstrings"
	RegionKnees      BodyRegion = "knees"
	RegionArms       BodyRegion = "arms"
	RegionLegs       BodyRegion = "legs"
	RegionFullBody   BodyRegion = "full-body"
)

// IsValid checks the region against the known vocabulary.
func (r BodyRegion) IsValid() bool {
	switch r {
	case RegionSpine, RegionShoulders, RegionNeck, RegionChest, RegionCore,
		RegionHips, RegionHamstrings, RegionKnees, RegionArms, RegionLegs,
		RegionFullBody:
		return true
	}
	return false
}

// MinFlowSteps is the smallest step count that makes a compound flow a flow.
const MinFlowSteps = 2

// Exercise is a reference-catalog entry: a posture, breathing technique,
// cleansing practice, relaxation, general exercise, or compound flow.
// The catalog is curated outside this application and loaded by the seed
// tool; the scheduling engine only ever reads it.
type Exercise struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	SanskritName string             `bson:"sanskritName,omitempty" json:"sanskritName,omitempty"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Category     ExerciseCategory   `bson:"category" json:"category"`
	Level        Level              `bson:"level" json:"level"`

	// PrimaryRegions are the regions the exercise chiefly works;
	// SecondaryRegions are tallied separately in focus reports.
	PrimaryRegions   []BodyRegion `bson:"primaryRegions,omitempty" json:"primaryRegions,omitempty"`
	SecondaryRegions []BodyRegion `bson:"secondaryRegions,omitempty" json:"secondaryRegions,omitempty"`

	// Benefits are free-form tags, e.g. "flexibility", "stress relief".
	Benefits []string `bson:"benefits,omitempty" json:"benefits,omitempty"`

	// StepIDs lists the member exercises of a compound flow, in practice
	// order. Empty for every other category.
	StepIDs []primitive.ObjectID `bson:"stepIds,omitempty" json:"stepIds,omitempty"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the entry's internal consistency. The seed tool runs this
// before loading a catalog snapshot; the engine assumes stored entries pass.
func (e *Exercise) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("exercise name is required")
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("exercise %q: unknown category %q", e.Name, e.Category)
	}
	if !e.Level.IsValid() {
		return fmt.Errorf("exercise %q: unknown level %q", e.Name, e.Level)
	}
	for _, r := range e.PrimaryRegions {
		if !r.IsValid() {
			return fmt.Errorf("exercise %q: unknown primary region %q", e.Name, r)
		}
	}
	for _, r := range e.SecondaryRegions {
		if !r.IsValid() {
			return fmt.Errorf("exercise %q: unknown secondary region %q", e.Name, r)
		}
	}
	if e.Category == CategoryFlow {
		if len(e.StepIDs) < MinFlowSteps {
			return fmt.Errorf("exercise %q: a compound flow needs at least %d steps, got %d",
				e.Name, MinFlowSteps, len(e.StepIDs))
		}
		for i, id := range e.StepIDs {
			if id.IsZero() {
				return fmt.Errorf("exercise %q: step %d has no exercise id", e.Name, i+1)
			}
			if id == e.ID {
				return fmt.Errorf("exercise %q: a flow cannot list itself as a step", e.Name)
			}
		}
	} else if len(e.StepIDs) > 0 {
		return fmt.Errorf("exercise %q: only compound flows may carry steps", e.Name)
	}
	return nil
}
