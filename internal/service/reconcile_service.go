package service

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"errors"

	"go.uber.org/zap"
)

// ReconcileSummary reports what one reconciliation run found and fixed.
type ReconcileSummary struct {
	ScannedAllocations  int `json:"scannedAllocations"`
	AllocationsRepaired int `json:"allocationsRepaired"`
	CountersFixed       int `json:"countersFixed"`
}

// --- Service Interface (Optional) ---
// ReconcileService repairs the two pieces of denormalized state that the
// execution recorder settles best-effort after the history write: the
// allocation status and the template usage counters. A crash between those
// steps leaves a correct execution with stale surroundings; this service
// walks the data and brings the surroundings back in line. Runs are
// idempotent — a clean database reconciles to zero repairs.
type ReconcileService interface {
	Run(ctx context.Context) (*ReconcileSummary, error)
}

// --- Service Implementation ---

// reconcileService implements the ReconcileService interface.
type reconcileService struct {
	allocationRepo repository.AllocationRepository
	executionRepo  repository.ExecutionRepository
	templateRepo   repository.TemplateRepository
	logger         *zap.SugaredLogger
}

// NewReconcileService creates a new instance of reconcileService.
func NewReconcileService(
	allocationRepo repository.AllocationRepository,
	executionRepo repository.ExecutionRepository,
	templateRepo repository.TemplateRepository,
	logger *zap.SugaredLogger,
) ReconcileService {
	return &reconcileService{
		allocationRepo: allocationRepo,
		executionRepo:  executionRepo,
		templateRepo:   templateRepo,
		logger:         logger,
	}
}

// Run executes one reconciliation pass. Per-item failures are logged and
// skipped: a single bad document must not stop the rest of the sweep.
func (s *reconcileService) Run(ctx context.Context) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{}

	// 1. Allocations still scheduled on past (or today's) dates whose
	// session actually got recorded: flip them to executed.
	stale, err := s.allocationRepo.ListScheduledThrough(ctx, domain.Today())
	if err != nil {
		return nil, err
	}
	summary.ScannedAllocations = len(stale)

	for _, allocation := range stale {
		execution, err := s.executionRepo.GetBySlotDate(ctx, allocation.SlotID, allocation.Date)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue // class never recorded; nothing to repair
			}
			s.logger.Warnw("reconcile: execution lookup failed",
				"allocationId", allocation.ID.Hex(), "error", err)
			continue
		}

		if err := s.allocationRepo.MarkExecuted(ctx, allocation.ID, execution.ID); err != nil {
			s.logger.Warnw("reconcile: could not mark allocation executed",
				"allocationId", allocation.ID.Hex(), "executionId", execution.ID.Hex(), "error", err)
			continue
		}
		summary.AllocationsRepaired++
		s.logger.Infow("reconcile: allocation marked executed",
			"allocationId", allocation.ID.Hex(), "executionId", execution.ID.Hex(),
			"slotId", allocation.SlotID.Hex(), "date", allocation.Date)
	}

	// 2. Usage counters: recount the history per template and overwrite
	// any counter that drifted.
	counts, err := s.executionRepo.CountsByTemplate(ctx)
	if err != nil {
		return summary, err
	}
	templates, err := s.templateRepo.List(ctx, false)
	if err != nil {
		return summary, err
	}

	for _, template := range templates {
		want := counts[template.ID]
		if template.UsageCount == want {
			continue
		}
		if err := s.templateRepo.SetUsageCount(ctx, template.ID, want); err != nil {
			s.logger.Warnw("reconcile: could not fix usage counter",
				"templateId", template.ID.Hex(), "have", template.UsageCount, "want", want, "error", err)
			continue
		}
		summary.CountersFixed++
		s.logger.Infow("reconcile: usage counter fixed",
			"templateId", template.ID.Hex(), "have", template.UsageCount, "want", want)
	}

	return summary, nil
}
