package domain

import (
	"time"

	"github.com/google/uuid"
)

// Parent represents a parent profile record in an organization's directory.
// Admins may pre-create parent records (roster imports) before the parent
// has an account; accepting an invite links the record to a user.
type Parent struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	UserID         *uuid.UUID
	Email          string
	FirstName      string
	LastName       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// ProvisionedIdentity is the outcome of a successful invite acceptance:
// the auth account, the linked or created parent record, and the role grant.
type ProvisionedIdentity struct {
	UserID      uuid.UUID
	ParentID    uuid.UUID
	RoleGrantID uuid.UUID
}
