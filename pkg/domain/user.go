package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authentication account.
type User struct {
	ID            uuid.UUID
	Email         string
	Name          string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// UserPassword stores password credentials separately from the user profile.
type UserPassword struct {
	UserID            uuid.UUID
	PasswordHash      string
	PasswordUpdatedAt time.Time
}
