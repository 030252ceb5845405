package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoleGrantStatus represents the state of a user's role in an organization.
type RoleGrantStatus string

const (
	RoleGrantStatusActive  RoleGrantStatus = "active"
	RoleGrantStatusRevoked RoleGrantStatus = "revoked"
)

// Well-known organization roles.
const (
	RoleAdmin  = "admin"
	RoleParent = "parent"
	RoleAlumni = "alumni"
)

// RoleGrant represents a user's role membership in an organization.
// One row per (user, organization) pair, enforced by a unique constraint;
// revocation flips status rather than deleting the row so a later invite
// can reactivate it.
type RoleGrant struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           string
	Status         RoleGrantStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive returns true if the grant is active.
func (g *RoleGrant) IsActive() bool {
	return g.Status == RoleGrantStatusActive
}
