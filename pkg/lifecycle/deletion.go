package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/billing"
	"github.com/chapterhq/chapterhq/pkg/domain"
)

// SubscriptionSource resolves an organization's subscription record.
type SubscriptionSource interface {
	GetByOrganizationID(ctx context.Context, orgID uuid.UUID) (*domain.Subscription, error)
}

// OrganizationStore performs the hard-delete teardown of an organization.
type OrganizationStore interface {
	DeleteDependents(ctx context.Context, orgID uuid.UUID) []domain.PurgeResult
	DeleteOrganization(ctx context.Context, orgID uuid.UUID) error
}

// DeletionWorkflow tears down a single organization after its grace period
// has expired. Eligibility (ShouldBlockAccess on a canceled subscription)
// is decided by the caller; the workflow assumes no concurrent run for the
// same organization, which the scheduler must enforce.
type DeletionWorkflow struct {
	subscriptions SubscriptionSource
	payments      billing.Provider
	orgs          OrganizationStore
	logger        *slog.Logger
}

// NewDeletionWorkflow creates a deletion workflow.
func NewDeletionWorkflow(subscriptions SubscriptionSource, payments billing.Provider, orgs OrganizationStore, logger *slog.Logger) *DeletionWorkflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeletionWorkflow{
		subscriptions: subscriptions,
		payments:      payments,
		orgs:          orgs,
		logger:        logger,
	}
}

// Run deletes the organization and all its dependent rows. Billing is
// stopped before any row is touched: a payment-cancel failure that is not
// "already gone" halts the whole run with no data mutated, because deleting
// tenant data while the customer keeps being billed is the failure mode to
// avoid at all costs. Re-running after a partial failure is safe; rows
// already gone produce zero-row deletes.
func (w *DeletionWorkflow) Run(ctx context.Context, orgID uuid.UUID) error {
	if err := w.cancelBilling(ctx, orgID); err != nil {
		return err
	}

	for _, res := range w.orgs.DeleteDependents(ctx, orgID) {
		if res.Err != nil {
			// Best effort per table; the final organization-row delete is
			// the only fatal step. See the retry note on Run.
			w.logger.Error("failed to delete dependent rows",
				"org_id", orgID, "table", res.Table, "error", res.Err)
			continue
		}
		if res.Rows > 0 {
			w.logger.Info("deleted dependent rows",
				"org_id", orgID, "table", res.Table, "rows", res.Rows)
		}
	}

	if err := w.orgs.DeleteOrganization(ctx, orgID); err != nil {
		if errors.Is(err, domain.ErrOrganizationNotFound) {
			w.logger.Info("organization row already deleted", "org_id", orgID)
			return nil
		}
		return fmt.Errorf("delete organization %s: %w", orgID, err)
	}

	w.logger.Info("organization deleted", "org_id", orgID)
	return nil
}

// cancelBilling stops the provider-side subscription, if any. Already
// canceled or missing subscriptions count as success; anything else halts
// the workflow before data deletion begins.
func (w *DeletionWorkflow) cancelBilling(ctx context.Context, orgID uuid.UUID) error {
	sub, err := w.subscriptions.GetByOrganizationID(ctx, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return nil
		}
		return fmt.Errorf("resolve subscription for %s: %w", orgID, err)
	}
	if sub.ProviderSubscriptionID == nil || *sub.ProviderSubscriptionID == "" {
		return nil
	}

	err = w.payments.CancelSubscription(ctx, *sub.ProviderSubscriptionID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, billing.ErrAlreadyCanceled):
		w.logger.Info("payment subscription already canceled",
			"org_id", orgID, "provider_subscription_id", *sub.ProviderSubscriptionID)
		return nil
	case errors.Is(err, billing.ErrSubscriptionMissing):
		w.logger.Warn("payment subscription not found at provider",
			"org_id", orgID, "provider_subscription_id", *sub.ProviderSubscriptionID)
		return nil
	default:
		return fmt.Errorf("cancel payment subscription for %s: %w", orgID, err)
	}
}
