package service

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OverusePolicy holds the repetition thresholds. The values come from
// configuration; see config.SchedulingConfig for the defaults.
type OverusePolicy struct {
	// RecentUseDays flags a template used within the last N calendar days.
	RecentUseDays int
	// WindowDays and UsageThreshold flag a template run at least
	// UsageThreshold times within the trailing WindowDays.
	WindowDays     int
	UsageThreshold int
}

// OveruseWarning is the analyzer's verdict. Reason is set only when
// IsOverused is true and is meant to be shown to the scheduler as-is.
type OveruseWarning struct {
	IsOverused bool   `json:"isOverused"`
	Reason     string `json:"reason,omitempty"`
}

// --- Service Interface (Optional) ---
// OveruseService warns schedulers about repetitive programming. It reads the
// template's usage stats and the execution history; it never writes either.
type OveruseService interface {
	Warning(ctx context.Context, templateID primitive.ObjectID) (*OveruseWarning, error)
}

// --- Service Implementation ---

// overuseService implements the OveruseService interface.
type overuseService struct {
	templateRepo  repository.TemplateRepository
	executionRepo repository.ExecutionRepository
	policy        OverusePolicy
}

// NewOveruseService creates a new instance of overuseService.
func NewOveruseService(
	templateRepo repository.TemplateRepository,
	executionRepo repository.ExecutionRepository,
	policy OverusePolicy,
) OveruseService {
	return &overuseService{
		templateRepo:  templateRepo,
		executionRepo: executionRepo,
		policy:        policy,
	}
}

// Warning runs the two overuse checks in order. Recency is checked first and
// short-circuits; the frequency check only runs when recency passes. The two
// are independent signals: recency reads the template's own lastUsedAt,
// frequency recounts the actual execution history.
func (s *overuseService) Warning(ctx context.Context, templateID primitive.ObjectID) (*OveruseWarning, error) {
	// 1. Resolve the template
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	today := domain.Today()

	// 2. Recency check
	if template.LastUsedAt != nil {
		daysAgo := today.DaysSince(domain.DateOf(*template.LastUsedAt))
		if daysAgo <= s.policy.RecentUseDays {
			return &OveruseWarning{IsOverused: true, Reason: recencyReason(daysAgo)}, nil
		}
	}

	// 3. Frequency check over the trailing window
	since := today.AddDays(-s.policy.WindowDays)
	count, err := s.executionRepo.CountByTemplateSince(ctx, templateID, since)
	if err != nil {
		return nil, err
	}
	if count >= s.policy.UsageThreshold {
		reason := fmt.Sprintf("template was used %d times in the last %d days", count, s.policy.WindowDays)
		return &OveruseWarning{IsOverused: true, Reason: reason}, nil
	}

	return &OveruseWarning{IsOverused: false}, nil
}

// recencyReason phrases the recency verdict. daysAgo zero (or negative, with
// a skewed clock) reads as today.
func recencyReason(daysAgo int) string {
	switch {
	case daysAgo <= 0:
		return "template was last used today"
	case daysAgo == 1:
		return "template was last used 1 day ago"
	default:
		return fmt.Sprintf("template was last used %d days ago", daysAgo)
	}
}
