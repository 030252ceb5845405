package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the billing state of an organization's subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusCanceling         SubscriptionStatus = "canceling"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPending           SubscriptionStatus = "pending"
	SubscriptionStatusPendingSales      SubscriptionStatus = "pending_sales"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
)

// Subscription represents an organization's billing subscription record.
type Subscription struct {
	ID                     uuid.UUID
	OrganizationID         uuid.UUID
	ProviderSubscriptionID *string
	Status                 SubscriptionStatus
	CurrentPeriodEnd       *time.Time
	GracePeriodEndsAt      *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Snapshot returns the read-only view consumed by the grace-period engine.
func (s *Subscription) Snapshot() *SubscriptionSnapshot {
	if s == nil {
		return nil
	}
	return &SubscriptionSnapshot{
		Status:            s.Status,
		GracePeriodEndsAt: s.GracePeriodEndsAt,
		CurrentPeriodEnd:  s.CurrentPeriodEnd,
	}
}

// SubscriptionSnapshot is a read-only view of a subscription's lifecycle fields.
type SubscriptionSnapshot struct {
	Status            SubscriptionStatus
	GracePeriodEndsAt *time.Time
	CurrentPeriodEnd  *time.Time
}

// GracePeriodInfo is derived fresh from a SubscriptionSnapshot on every call
// and never persisted.
//
// Invariants: IsInGracePeriod and IsGracePeriodExpired are mutually
// exclusive, and both are false unless Status is "canceled".
// IsReadOnly equals IsInGracePeriod under current policy.
type GracePeriodInfo struct {
	IsInGracePeriod      bool
	IsGracePeriodExpired bool
	DaysRemaining        int
	GracePeriodEndsAt    *time.Time
	IsCanceling          bool
	IsCanceled           bool
	IsReadOnly           bool
}
