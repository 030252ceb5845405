// Package lifecycle implements the organization subscription lifecycle:
// the grace-period engine that maps subscription status to access-control
// flags, the deletion workflow that tears an organization down once its
// grace period has expired, and the reaper that drives the workflow.
package lifecycle

import (
	"math"
	"time"

	"github.com/chapterhq/chapterhq/pkg/domain"
)

// GracePeriodDays is how long a canceled organization keeps read-only
// access before it becomes eligible for deletion.
const GracePeriodDays = 30

// ComputeGracePeriodInfo derives the grace-period flags for a subscription
// snapshot. Pure and total: no I/O, never fails, safe to call on every
// request. A nil snapshot means no subscription, which is neither in grace
// nor read-only.
func ComputeGracePeriodInfo(snapshot *domain.SubscriptionSnapshot) domain.GracePeriodInfo {
	return ComputeGracePeriodInfoAt(snapshot, time.Now())
}

// ComputeGracePeriodInfoAt is ComputeGracePeriodInfo evaluated at an
// explicit instant.
func ComputeGracePeriodInfoAt(snapshot *domain.SubscriptionSnapshot, now time.Time) domain.GracePeriodInfo {
	var info domain.GracePeriodInfo
	if snapshot == nil {
		return info
	}

	switch snapshot.Status {
	case domain.SubscriptionStatusCanceling:
		// Canceling is still fully active service through the period end.
		info.IsCanceling = true

	case domain.SubscriptionStatusCanceled:
		info.IsCanceled = true
		info.GracePeriodEndsAt = snapshot.GracePeriodEndsAt

		// A canceled subscription with no grace-period end is treated as
		// already expired rather than granting indefinite access after a
		// billing-system inconsistency. The boundary is exclusive: a grace
		// period ending exactly now is expired.
		if snapshot.GracePeriodEndsAt != nil && now.Before(*snapshot.GracePeriodEndsAt) {
			info.IsInGracePeriod = true
			info.DaysRemaining = daysRemaining(now, *snapshot.GracePeriodEndsAt)
		} else {
			info.IsGracePeriodExpired = true
		}
		info.IsReadOnly = info.IsInGracePeriod
	}

	return info
}

// daysRemaining returns the ceiling-rounded number of days from now until
// end; strictly positive whenever end is in the future.
func daysRemaining(now, end time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

// GracePeriodEnd returns the grace-period end for a subscription canceled
// at the given instant. Called exactly once, at the transition into
// canceled.
func GracePeriodEnd(now time.Time) time.Time {
	return now.Add(GracePeriodDays * 24 * time.Hour)
}

// ShouldBlockAccess decides whether all access to an organization, reads
// included, is blocked. Only a known-good status (or a canceled one still
// in grace) grants access; every other status blocks conservatively.
func ShouldBlockAccess(snapshot *domain.SubscriptionSnapshot) bool {
	return ShouldBlockAccessAt(snapshot, time.Now())
}

// ShouldBlockAccessAt is ShouldBlockAccess evaluated at an explicit instant.
func ShouldBlockAccessAt(snapshot *domain.SubscriptionSnapshot, now time.Time) bool {
	if snapshot == nil {
		return true
	}
	switch snapshot.Status {
	case domain.SubscriptionStatusActive,
		domain.SubscriptionStatusTrialing,
		domain.SubscriptionStatusCanceling:
		return false
	case domain.SubscriptionStatusCanceled:
		return ComputeGracePeriodInfoAt(snapshot, now).IsGracePeriodExpired
	default:
		return true
	}
}

// IsOrgReadOnly decides whether mutating requests are rejected while reads
// remain allowed. Distinct from ShouldBlockAccess, which gates everything.
func IsOrgReadOnly(snapshot *domain.SubscriptionSnapshot) bool {
	return IsOrgReadOnlyAt(snapshot, time.Now())
}

// IsOrgReadOnlyAt is IsOrgReadOnly evaluated at an explicit instant.
func IsOrgReadOnlyAt(snapshot *domain.SubscriptionSnapshot, now time.Time) bool {
	if snapshot == nil {
		return false
	}
	return ComputeGracePeriodInfoAt(snapshot, now).IsReadOnly
}
