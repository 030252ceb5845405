package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/chapterhq/chapterhq/pkg/domain"
)

// Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// RolesRepository handles user-organization role grant persistence.
type RolesRepository struct {
	db *sql.DB
}

// NewRolesRepository creates a new roles repository.
func NewRolesRepository(db *sql.DB) *RolesRepository {
	return &RolesRepository{db: db}
}

// Grant inserts a role-grant row for a (user, organization) pair. The pair
// is unique; when a row already exists, a revoked grant is reactivated with
// the requested role and an active grant is left untouched. Both conflict
// outcomes return the existing grant so the caller sees an idempotent
// success.
func (r *RolesRepository) Grant(ctx context.Context, grant *domain.RoleGrant) (*domain.RoleGrant, error) {
	query := `
		INSERT INTO user_organization_roles (id, user_id, organization_id, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		grant.ID, grant.UserID, grant.OrganizationID, grant.Role,
		grant.Status, grant.CreatedAt, grant.UpdatedAt,
	)
	if err == nil {
		return grant, nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return nil, err
	}

	existing, err := r.GetByUserAndOrg(ctx, grant.UserID, grant.OrganizationID)
	if err != nil {
		return nil, err
	}
	if existing.Status == domain.RoleGrantStatusRevoked {
		if err := r.reactivate(ctx, existing.ID, grant.Role); err != nil {
			return nil, err
		}
		existing.Status = domain.RoleGrantStatusActive
		existing.Role = grant.Role
	}
	return existing, nil
}

// GetByUserAndOrg retrieves the role grant for a user in an organization.
func (r *RolesRepository) GetByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*domain.RoleGrant, error) {
	query := `
		SELECT id, user_id, organization_id, role, status, created_at, updated_at
		FROM user_organization_roles
		WHERE user_id = $1 AND organization_id = $2
	`
	grant := &domain.RoleGrant{}
	err := r.db.QueryRowContext(ctx, query, userID, orgID).Scan(
		&grant.ID, &grant.UserID, &grant.OrganizationID, &grant.Role,
		&grant.Status, &grant.CreatedAt, &grant.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoleGrantNotFound
	}
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// Revoke flips a grant to revoked. The row is kept so a later invite can
// reactivate it.
func (r *RolesRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE user_organization_roles
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, domain.RoleGrantStatusRevoked)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrRoleGrantNotFound
	}
	return nil
}

func (r *RolesRepository) reactivate(ctx context.Context, id uuid.UUID, role string) error {
	query := `
		UPDATE user_organization_roles
		SET status = $2, role = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, domain.RoleGrantStatusActive, role)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrRoleGrantNotFound
	}
	return nil
}
