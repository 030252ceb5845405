package domain

import (
	"time"

	"github.com/google/uuid"
)

// InviteStatus represents the stored state of an invite.
// Expiry is a derived condition, not a stored state: an invite past its
// ExpiresAt keeps status "pending" and is treated as expired on read.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// Invite represents a one-time invitation into an organization.
//
// Transitions: pending→accepted (atomic claim), pending→revoked (admin),
// and accepted→pending only as the compensating rollback when account
// provisioning fails inside the same request that performed the claim.
type Invite struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Code           string
	Email          string
	Role           string
	Status         InviteStatus
	ExpiresAt      time.Time
	AcceptedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsExpired reports whether the invite's expiry has passed at the given time.
// The boundary is inclusive: an invite expiring exactly now is expired.
func (i *Invite) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
