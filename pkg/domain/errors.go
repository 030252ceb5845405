package domain

import "errors"

// Invite errors. ErrInviteNotFound covers both unknown codes and codes
// belonging to a different organization so responses never reveal which
// codes exist elsewhere.
var (
	ErrInviteNotFound        = errors.New("invalid invite code")
	ErrInviteAlreadyAccepted = errors.New("invite already accepted")
	ErrInviteRevoked         = errors.New("invite revoked")
	ErrInviteExpired         = errors.New("invite expired")
	ErrInviteNotPending      = errors.New("invite is not pending")
)

// Identity errors
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrWeakPassword           = errors.New("password does not meet requirements")
	ErrInvalidToken           = errors.New("invalid token")
)

// Organization and billing errors
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrParentNotFound       = errors.New("parent not found")
	ErrRoleGrantNotFound    = errors.New("role grant not found")
	ErrOrgReadOnly          = errors.New("organization is read-only")
	ErrAccessBlocked        = errors.New("organization access is blocked")
)
