package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/domain"
)

// OrganizationsRepository handles organization persistence, including the
// hard-delete teardown used by the deletion workflow.
type OrganizationsRepository struct {
	db *sql.DB
}

// NewOrganizationsRepository creates a new organizations repository.
func NewOrganizationsRepository(db *sql.DB) *OrganizationsRepository {
	return &OrganizationsRepository{db: db}
}

// Create creates a new organization.
func (r *OrganizationsRepository) Create(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		org.ID, org.Name, org.Slug, org.CreatedAt, org.UpdatedAt,
	)
	return err
}

// GetByID retrieves an organization by ID.
func (r *OrganizationsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	org := &domain.Organization{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

// dependentTables lists every tenant-owned table scoped by organization_id,
// ordered so that no row being deleted is still referenced by a
// not-yet-deleted row. The organization row itself is deleted separately,
// last, by DeleteOrganization.
var dependentTables = []string{
	"competition_scores",
	"competitions",
	"members",
	"alumni",
	"event_rsvps",
	"events",
	"announcements",
	"donations",
	"misc_records",
	"philanthropy_events",
	"notifications",
	"notification_preferences",
	"org_invites",
	"user_organization_roles",
	"parents",
	"subscriptions",
	"form_responses",
	"form_documents",
	"forms",
	"schedule_files",
	"academic_schedules",
}

// DeleteDependents hard-deletes every dependent row owned by the
// organization, one table at a time in FK-safe order. Each table's delete
// is attempted even if an earlier one failed; rows already gone produce
// zero-row deletes, which are not errors, so re-runs are safe.
func (r *OrganizationsRepository) DeleteDependents(ctx context.Context, orgID uuid.UUID) []domain.PurgeResult {
	results := make([]domain.PurgeResult, 0, len(dependentTables))
	for _, table := range dependentTables {
		res := domain.PurgeResult{Table: table}
		result, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE organization_id = $1", orgID)
		if err != nil {
			res.Err = err
		} else {
			res.Rows, res.Err = result.RowsAffected()
		}
		results = append(results, res)
	}
	return results
}

// DeleteOrganization hard-deletes the organization row itself.
func (r *OrganizationsRepository) DeleteOrganization(ctx context.Context, orgID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}
