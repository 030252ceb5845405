package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/domain"
)

// ParentsRepository handles parent directory persistence.
type ParentsRepository struct {
	db *sql.DB
}

// NewParentsRepository creates a new parents repository.
func NewParentsRepository(db *sql.DB) *ParentsRepository {
	return &ParentsRepository{db: db}
}

// Create creates a new parent record.
func (r *ParentsRepository) Create(ctx context.Context, parent *domain.Parent) error {
	query := `
		INSERT INTO parents (id, organization_id, user_id, email, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		parent.ID, parent.OrganizationID, parent.UserID, parent.Email,
		parent.FirstName, parent.LastName, parent.CreatedAt, parent.UpdatedAt,
	)
	return err
}

// GetByOrgAndEmail retrieves a non-deleted parent record matching
// organization and email, case-insensitively. Admin-entered roster records
// match this way so invite acceptance can reuse them.
func (r *ParentsRepository) GetByOrgAndEmail(ctx context.Context, orgID uuid.UUID, email string) (*domain.Parent, error) {
	query := `
		SELECT id, organization_id, user_id, email, first_name, last_name, created_at, updated_at, deleted_at
		FROM parents
		WHERE organization_id = $1 AND LOWER(email) = LOWER($2) AND deleted_at IS NULL
	`
	parent := &domain.Parent{}
	err := r.db.QueryRowContext(ctx, query, orgID, email).Scan(
		&parent.ID, &parent.OrganizationID, &parent.UserID, &parent.Email,
		&parent.FirstName, &parent.LastName, &parent.CreatedAt, &parent.UpdatedAt, &parent.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrParentNotFound
	}
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// GetByID retrieves a parent record by ID.
func (r *ParentsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Parent, error) {
	query := `
		SELECT id, organization_id, user_id, email, first_name, last_name, created_at, updated_at, deleted_at
		FROM parents
		WHERE id = $1 AND deleted_at IS NULL
	`
	parent := &domain.Parent{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&parent.ID, &parent.OrganizationID, &parent.UserID, &parent.Email,
		&parent.FirstName, &parent.LastName, &parent.CreatedAt, &parent.UpdatedAt, &parent.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrParentNotFound
	}
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// LinkUser sets the parent record's user reference and refreshes its name
// fields from the submitted registration form.
func (r *ParentsRepository) LinkUser(ctx context.Context, id, userID uuid.UUID, firstName, lastName string) error {
	query := `
		UPDATE parents
		SET user_id = $2, first_name = $3, last_name = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, userID, firstName, lastName)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrParentNotFound
	}
	return nil
}
