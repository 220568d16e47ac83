package service

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrTemplateNotFound = errors.New("plan template not found")
	// ErrStaleVersion means the caller edited against a version that has
	// since been superseded. The client should reload and retry.
	ErrStaleVersion = errors.New("plan template was modified by someone else")
)

// defaultInsightTopN bounds the dominant-region and top-benefit lists.
const defaultInsightTopN = 3

// TagCount is one row of a tag tally, e.g. {"spine", 4}.
type TagCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TemplateInsights bundles the derived per-template tallies. Nothing in here
// is stored; it is recomputed from the sections on demand.
type TemplateInsights struct {
	DominantBodyRegions []TagCount `json:"dominantBodyRegions"`
	TopBenefits         []TagCount `json:"topBenefits"`
}

// --- Service Interface (Optional) ---
type TemplateService interface {
	Create(ctx context.Context, name, note string, level domain.Level, sections []domain.PlanSection, createdBy primitive.ObjectID) (*domain.PlanTemplate, error)
	GetByID(ctx context.Context, templateID primitive.ObjectID) (*domain.PlanTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]domain.PlanTemplate, error)
	// Update replaces the editable fields wholesale, guarded by the version
	// token the caller read. Usage statistics are untouched.
	Update(ctx context.Context, templateID primitive.ObjectID, expectedVersion int, name, note string, level domain.Level, sections []domain.PlanSection) (*domain.PlanTemplate, error)
	// Clone deep-copies a template into an independent new one with fresh
	// version and usage statistics. newName may be empty.
	Clone(ctx context.Context, templateID primitive.ObjectID, newName string, createdBy primitive.ObjectID) (*domain.PlanTemplate, error)
	// Deactivate archives the template. History referencing it stays intact.
	Deactivate(ctx context.Context, templateID primitive.ObjectID) error
	// Insights computes the dominant body regions and top benefits for a
	// template by resolving its items against the catalog.
	Insights(ctx context.Context, templateID primitive.ObjectID) (*TemplateInsights, error)
}

// --- Service Implementation ---

// templateService implements the TemplateService interface.
type templateService struct {
	templateRepo repository.TemplateRepository
	exerciseRepo repository.ExerciseRepository
}

// NewTemplateService creates a new instance of templateService.
func NewTemplateService(
	templateRepo repository.TemplateRepository,
	exerciseRepo repository.ExerciseRepository,
) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		exerciseRepo: exerciseRepo,
	}
}

// === Lifecycle ===

// Create builds a new template at version 1 with zeroed usage statistics.
func (s *templateService) Create(ctx context.Context, name, note string, level domain.Level, sections []domain.PlanSection, createdBy primitive.ObjectID) (*domain.PlanTemplate, error) {
	// 1. Normalize and validate the plan content
	domain.NormalizeSectionOrder(sections)
	template := &domain.PlanTemplate{
		Name:      name,
		Note:      note,
		Level:     level,
		Sections:  sections,
		CreatedBy: createdBy,
		IsActive:  true,
		// Version, UsageCount, timestamps set by repository
	}
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	// 2. Verify every referenced exercise exists in the catalog
	if err := s.checkExerciseRefs(ctx, sections); err != nil {
		return nil, err
	}

	// 3. Persist
	templateID, err := s.templateRepo.Create(ctx, template)
	if err != nil {
		return nil, err
	}

	// Refetch to return repository-populated fields
	return s.templateRepo.GetByID(ctx, templateID)
}

// GetByID retrieves a single template, archived ones included.
func (s *templateService) GetByID(ctx context.Context, templateID primitive.ObjectID) (*domain.PlanTemplate, error) {
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return template, nil
}

// List retrieves templates, optionally only active ones.
func (s *templateService) List(ctx context.Context, activeOnly bool) ([]domain.PlanTemplate, error) {
	return s.templateRepo.List(ctx, activeOnly)
}

// Update applies an edit against the version the caller read. A concurrent
// edit in between surfaces as ErrStaleVersion, never a silent overwrite.
func (s *templateService) Update(ctx context.Context, templateID primitive.ObjectID, expectedVersion int, name, note string, level domain.Level, sections []domain.PlanSection) (*domain.PlanTemplate, error) {
	// 1. Validate Input
	if templateID == primitive.NilObjectID {
		return nil, fmt.Errorf("%w: template ID is required", ErrValidationFailed)
	}
	if expectedVersion < 1 {
		return nil, fmt.Errorf("%w: expected version must be at least 1", ErrValidationFailed)
	}

	// 2. Fetch the current template
	existing, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	// 3. Apply the edit to the in-memory copy
	existing.Name = name
	existing.Note = note
	existing.Level = level
	domain.NormalizeSectionOrder(sections)
	existing.Sections = sections
	if err := existing.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := s.checkExerciseRefs(ctx, sections); err != nil {
		return nil, err
	}

	// 4. Conditional write on the caller's version
	err = s.templateRepo.Update(ctx, existing, expectedVersion)
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, ErrStaleVersion
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	// Refetch for the new version number and timestamps
	return s.templateRepo.GetByID(ctx, templateID)
}

// Clone copies a template into an independent new one. The copy starts its
// own life: version 1, zero usage, and deep-copied sections, so edits to
// either side never bleed into the other.
func (s *templateService) Clone(ctx context.Context, templateID primitive.ObjectID, newName string, createdBy primitive.ObjectID) (*domain.PlanTemplate, error) {
	// 1. Fetch the source (archived sources may be cloned back to life)
	source, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	// 2. Default the name
	if newName == "" {
		newName = source.Name + " (Copy)"
	}

	// 3. Build the independent copy
	clone := &domain.PlanTemplate{
		Name:      newName,
		Note:      source.Note,
		Level:     source.Level,
		Sections:  domain.CloneSections(source.Sections),
		CreatedBy: createdBy,
		IsActive:  true,
		// Version reset to 1 by repository; UsageCount and LastUsedAt
		// start from zero — the clone has no history of its own.
	}

	// 4. Persist
	cloneID, err := s.templateRepo.Create(ctx, clone)
	if err != nil {
		return nil, err
	}
	return s.templateRepo.GetByID(ctx, cloneID)
}

// Deactivate archives the template so it stops appearing in active listings
// and can no longer be scheduled. Past allocations and executions that
// reference it are left exactly as they are.
func (s *templateService) Deactivate(ctx context.Context, templateID primitive.ObjectID) error {
	existing, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	if !existing.IsActive {
		return nil // already archived
	}

	existing.IsActive = false
	// Archiving is an edit like any other, so it goes through the version
	// token and bumps the version.
	err = s.templateRepo.Update(ctx, existing, existing.Version)
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return ErrStaleVersion
		}
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	return nil
}

// === Derived Insights ===

// Insights tallies region and benefit tags across the template's items.
func (s *templateService) Insights(ctx context.Context, templateID primitive.ObjectID) (*TemplateInsights, error) {
	template, err := s.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	// Resolve every referenced exercise once
	ids := collectExerciseIDs(template.Sections)
	resolved, err := s.exerciseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	regions := newTagTally()
	benefits := newTagTally()
	// Walk items in plan order; the walk order is what breaks ranking ties.
	for _, section := range template.Sections {
		for _, item := range section.Items {
			ex, ok := resolved[item.ExerciseID]
			if !ok {
				continue // stale reference, contributes nothing
			}
			for _, r := range ex.PrimaryRegions {
				regions.add(string(r))
			}
			for _, r := range ex.SecondaryRegions {
				regions.add(string(r))
			}
			for _, b := range ex.Benefits {
				benefits.add(b)
			}
		}
	}

	return &TemplateInsights{
		DominantBodyRegions: regions.top(defaultInsightTopN),
		TopBenefits:         benefits.top(defaultInsightTopN),
	}, nil
}

// checkExerciseRefs verifies that every item references a real catalog entry.
func (s *templateService) checkExerciseRefs(ctx context.Context, sections []domain.PlanSection) error {
	ids := collectExerciseIDs(sections)
	if len(ids) == 0 {
		return nil
	}
	resolved, err := s.exerciseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			return fmt.Errorf("%w: exercise %s is not in the catalog", ErrValidationFailed, id.Hex())
		}
	}
	return nil
}

// collectExerciseIDs gathers the distinct exercise ids of a plan, in first-
// appearance order.
func collectExerciseIDs(sections []domain.PlanSection) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, section := range sections {
		for _, item := range section.Items {
			if !seen[item.ExerciseID] {
				seen[item.ExerciseID] = true
				ids = append(ids, item.ExerciseID)
			}
		}
	}
	return ids
}

// tagTally counts string tags while remembering first-appearance order, so
// that equal counts rank in the order the walk first met them.
type tagTally struct {
	counts map[string]int
	order  map[string]int
	next   int
}

func newTagTally() *tagTally {
	return &tagTally{counts: make(map[string]int), order: make(map[string]int)}
}

func (t *tagTally) add(label string) {
	if _, ok := t.counts[label]; !ok {
		t.order[label] = t.next
		t.next++
	}
	t.counts[label]++
}

func (t *tagTally) top(n int) []TagCount {
	result := make([]TagCount, 0, len(t.counts))
	for label, count := range t.counts {
		result = append(result, TagCount{Label: label, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return t.order[result[i].Label] < t.order[result[j].Label]
	})
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}
