package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/chapterhq/chapterhq/pkg/domain"
)

// CanceledLister lists subscriptions in the canceled state.
type CanceledLister interface {
	ListCanceled(ctx context.Context) ([]*domain.Subscription, error)
}

// Reaper scans canceled subscriptions and runs the deletion workflow for
// every organization whose grace period has expired. It performs a single
// pass per Run call; the scheduler is responsible for cadence and for
// never running two passes concurrently.
type Reaper struct {
	subscriptions CanceledLister
	workflow      *DeletionWorkflow
	logger        *slog.Logger
}

// NewReaper creates a reaper.
func NewReaper(subscriptions CanceledLister, workflow *DeletionWorkflow, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		subscriptions: subscriptions,
		workflow:      workflow,
		logger:        logger,
	}
}

// Run performs one reaping pass. A failed deletion is logged and does not
// stop the pass; the organization is retried on the next run. Returns the
// number of organizations deleted.
func (r *Reaper) Run(ctx context.Context) (int, error) {
	subs, err := r.subscriptions.ListCanceled(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0
	for _, sub := range subs {
		info := ComputeGracePeriodInfoAt(sub.Snapshot(), now)
		if !info.IsGracePeriodExpired {
			continue
		}
		if err := r.workflow.Run(ctx, sub.OrganizationID); err != nil {
			r.logger.Error("organization deletion failed",
				"org_id", sub.OrganizationID, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		r.logger.Info("reaper pass complete", "deleted", deleted, "scanned", len(subs))
	}
	return deleted, nil
}
