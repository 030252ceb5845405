package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant root. It owns every dependent collection
// (members, events, announcements, donations, forms, schedules, invites,
// role grants, subscription) and is destroyed only by the deletion workflow
// once its grace period has expired.
type Organization struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PurgeResult reports the outcome of deleting one dependent table's rows
// during organization teardown.
type PurgeResult struct {
	Table string
	Rows  int64
	Err   error
}
