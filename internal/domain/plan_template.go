// internal/domain/plan_template.go
package domain

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SectionType names the fixed phases a session plan is built from.
type SectionType string

const (
	SectionWarmup     SectionType = "warmup"
	SectionBreathing  SectionType = "breathing"
	SectionMain       SectionType = "main"
	SectionCooldown   SectionType = "cooldown"
	SectionRelaxation SectionType = "relaxation"
)

// IsValid checks the section type against the closed set.
func (t SectionType) IsValid() bool {
	switch t {
	case SectionWarmup, SectionBreathing, SectionMain, SectionCooldown, SectionRelaxation:
		return true
	}
	return false
}

// PlanItem places one catalog exercise inside a section. Duration and rounds
// are instructor guidance, not hard timing; either may be zero.
type PlanItem struct {
	ExerciseID  primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Order       int                `bson:"order" json:"order"` // dense 1..N within the section
	DurationMin int                `bson:"durationMin,omitempty" json:"durationMin,omitempty"`
	Rounds      int                `bson:"rounds,omitempty" json:"rounds,omitempty"`
	Note        string             `bson:"note,omitempty" json:"note,omitempty"`
}

// PlanSection is one phase of a session plan: a typed, ordered list of items.
type PlanSection struct {
	Type  SectionType `bson:"type" json:"type"`
	Items []PlanItem  `bson:"items" json:"items"`
}

// Clone returns a structurally independent copy of the section. PlanItem
// holds only value types, so copying the slice is a full deep copy.
func (s PlanSection) Clone() PlanSection {
	items := make([]PlanItem, len(s.Items))
	copy(items, s.Items)
	return PlanSection{Type: s.Type, Items: items}
}

// CloneSections deep-copies a section list. Template clones and execution
// snapshots both go through here so that no slice is ever shared between a
// live template and anything derived from it.
func CloneSections(sections []PlanSection) []PlanSection {
	if sections == nil {
		return nil
	}
	out := make([]PlanSection, len(sections))
	for i, s := range sections {
		out[i] = s.Clone()
	}
	return out
}

// NormalizeSectionOrder sorts each section's items by their requested order
// and rewrites the order values to a dense 1..N sequence. The sort is stable,
// so items submitted with equal order keep their relative position.
func NormalizeSectionOrder(sections []PlanSection) {
	for si := range sections {
		items := sections[si].Items
		sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
		for i := range items {
			items[i].Order = i + 1
		}
	}
}

// ValidateSections checks section types, item references and the dense-order
// invariant. Inputs should be run through NormalizeSectionOrder first; stored
// plans are expected to pass as-is.
func ValidateSections(sections []PlanSection) error {
	if len(sections) == 0 {
		return fmt.Errorf("a plan needs at least one section")
	}
	for si, sec := range sections {
		if !sec.Type.IsValid() {
			return fmt.Errorf("section %d: unknown section type %q", si+1, sec.Type)
		}
		for ii, item := range sec.Items {
			if item.ExerciseID.IsZero() {
				return fmt.Errorf("section %d (%s): item %d has no exercise id", si+1, sec.Type, ii+1)
			}
			if item.Order != ii+1 {
				return fmt.Errorf("section %d (%s): item order %d at position %d breaks the 1..N sequence",
					si+1, sec.Type, item.Order, ii+1)
			}
			if item.DurationMin < 0 {
				return fmt.Errorf("section %d (%s): item %d has a negative duration", si+1, sec.Type, ii+1)
			}
			if item.Rounds < 0 {
				return fmt.Errorf("section %d (%s): item %d has a negative round count", si+1, sec.Type, ii+1)
			}
		}
	}
	return nil
}

// PlanTemplate is a reusable session plan. Templates are the unit the studio
// schedules, executes and reports on.
type PlanTemplate struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Note  string             `bson:"note,omitempty" json:"note,omitempty"`
	Level Level              `bson:"level" json:"level"`

	// Version is an optimistic-concurrency token. Every successful edit
	// increments it; writers must present the version they read.
	Version int `bson:"version" json:"version"`

	Sections []PlanSection `bson:"sections" json:"sections"`

	CreatedBy primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`

	// LastUsedAt and UsageCount are denormalized from the execution
	// history when a session is recorded; the nightly reconciler repairs
	// them if a crash leaves them behind.
	LastUsedAt *time.Time `bson:"lastUsedAt,omitempty" json:"lastUsedAt,omitempty"`
	UsageCount int        `bson:"usageCount" json:"usageCount"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the template's own fields plus its sections.
func (t *PlanTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if !t.Level.IsValid() {
		return fmt.Errorf("template %q: unknown level %q", t.Name, t.Level)
	}
	return ValidateSections(t.Sections)
}
