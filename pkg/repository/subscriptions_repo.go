package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/domain"
)

// SubscriptionsRepository handles subscription persistence.
type SubscriptionsRepository struct {
	db *sql.DB
}

// NewSubscriptionsRepository creates a new subscriptions repository.
func NewSubscriptionsRepository(db *sql.DB) *SubscriptionsRepository {
	return &SubscriptionsRepository{db: db}
}

const subscriptionColumns = `id, organization_id, provider_subscription_id, status, current_period_end, grace_period_ends_at, created_at, updated_at`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	err := row.Scan(
		&sub.ID, &sub.OrganizationID, &sub.ProviderSubscriptionID, &sub.Status,
		&sub.CurrentPeriodEnd, &sub.GracePeriodEndsAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Create creates a new subscription record.
func (r *SubscriptionsRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, organization_id, provider_subscription_id, status, current_period_end, grace_period_ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.OrganizationID, sub.ProviderSubscriptionID, sub.Status,
		sub.CurrentPeriodEnd, sub.GracePeriodEndsAt, sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

// GetByOrganizationID retrieves the subscription for an organization.
func (r *SubscriptionsRepository) GetByOrganizationID(ctx context.Context, orgID uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE organization_id = $1`
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, orgID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// GetByProviderSubscriptionID retrieves a subscription by the payment
// provider's subscription identifier, as delivered on webhook events.
func (r *SubscriptionsRepository) GetByProviderSubscriptionID(ctx context.Context, providerID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider_subscription_id = $1`
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, providerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateStatus updates a subscription's status.
func (r *SubscriptionsRepository) UpdateStatus(ctx context.Context, orgID uuid.UUID, status domain.SubscriptionStatus) error {
	query := `
		UPDATE subscriptions
		SET status = $2, updated_at = NOW()
		WHERE organization_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, orgID, status)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

// MarkCanceled moves a subscription into canceled and records the grace
// period end. Called exactly once, at the moment of the transition.
func (r *SubscriptionsRepository) MarkCanceled(ctx context.Context, orgID uuid.UUID, gracePeriodEndsAt time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $2, grace_period_ends_at = $3, updated_at = NOW()
		WHERE organization_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, orgID, domain.SubscriptionStatusCanceled, gracePeriodEndsAt)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

// ListCanceled retrieves all canceled subscriptions; the reaper computes
// grace-period expiry on each and tears down the expired ones.
func (r *SubscriptionsRepository) ListCanceled(ctx context.Context) ([]*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status = $1 ORDER BY grace_period_ends_at ASC NULLS FIRST`
	rows, err := r.db.QueryContext(ctx, query, domain.SubscriptionStatusCanceled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
