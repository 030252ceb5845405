package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/domain"
)

// InvitesRepository handles invite persistence.
type InvitesRepository struct {
	db *sql.DB
}

// NewInvitesRepository creates a new invites repository.
func NewInvitesRepository(db *sql.DB) *InvitesRepository {
	return &InvitesRepository{db: db}
}

// Create creates a new invite.
func (r *InvitesRepository) Create(ctx context.Context, invite *domain.Invite) error {
	query := `
		INSERT INTO org_invites (id, organization_id, code, email, role, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		invite.ID, invite.OrganizationID, invite.Code, invite.Email, invite.Role,
		invite.Status, invite.ExpiresAt, invite.CreatedAt, invite.UpdatedAt,
	)
	return err
}

// GetByCode retrieves an invite by its opaque lookup code.
func (r *InvitesRepository) GetByCode(ctx context.Context, code string) (*domain.Invite, error) {
	query := `
		SELECT id, organization_id, code, email, role, status, expires_at, accepted_at, created_at, updated_at
		FROM org_invites
		WHERE code = $1
	`
	invite := &domain.Invite{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&invite.ID, &invite.OrganizationID, &invite.Code, &invite.Email, &invite.Role,
		&invite.Status, &invite.ExpiresAt, &invite.AcceptedAt, &invite.CreatedAt, &invite.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// GetByID retrieves an invite by ID.
func (r *InvitesRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invite, error) {
	query := `
		SELECT id, organization_id, code, email, role, status, expires_at, accepted_at, created_at, updated_at
		FROM org_invites
		WHERE id = $1
	`
	invite := &domain.Invite{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&invite.ID, &invite.OrganizationID, &invite.Code, &invite.Email, &invite.Role,
		&invite.Status, &invite.ExpiresAt, &invite.AcceptedAt, &invite.CreatedAt, &invite.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// Claim atomically transitions an invite from pending to accepted, guarded
// by expiry. This single conditional update is the concurrency gate: under
// concurrent claims on the same invite, at most one call returns true.
func (r *InvitesRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE org_invites
		SET status = $2, accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3 AND expires_at > NOW()
	`
	result, err := r.db.ExecContext(ctx, query, id, domain.InviteStatusAccepted, domain.InviteStatusPending)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ReleaseClaim rolls an invite back from accepted to pending so the code
// remains usable after a transient provisioning failure. Conditional on the
// invite still being accepted, never unconditional.
func (r *InvitesRepository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE org_invites
		SET status = $2, accepted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, domain.InviteStatusPending, domain.InviteStatusAccepted)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInviteNotFound
	}
	return nil
}

// Revoke transitions a pending invite to revoked. Admin-only operation.
func (r *InvitesRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE org_invites
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, domain.InviteStatusRevoked, domain.InviteStatusPending)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInviteNotPending
	}
	return nil
}

// GetByOrganizationID retrieves all invites for an organization.
func (r *InvitesRepository) GetByOrganizationID(ctx context.Context, orgID uuid.UUID) ([]*domain.Invite, error) {
	query := `
		SELECT id, organization_id, code, email, role, status, expires_at, accepted_at, created_at, updated_at
		FROM org_invites
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []*domain.Invite
	for rows.Next() {
		invite := &domain.Invite{}
		err := rows.Scan(
			&invite.ID, &invite.OrganizationID, &invite.Code, &invite.Email, &invite.Role,
			&invite.Status, &invite.ExpiresAt, &invite.AcceptedAt, &invite.CreatedAt, &invite.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}
