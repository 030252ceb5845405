// Package invite implements the invite claim protocol: admitting a party
// holding a one-time invite code into an organization exactly once, even
// under concurrent duplicate submissions.
package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/auth"
	"github.com/chapterhq/chapterhq/pkg/domain"
	"github.com/chapterhq/chapterhq/pkg/identity"
)

const (
	codeBytes = 16

	// DefaultInviteTTL is how long a newly created invite stays claimable.
	DefaultInviteTTL = 14 * 24 * time.Hour
)

// InviteStore persists invites and provides the conditional-update
// primitives the protocol's correctness rests on.
type InviteStore interface {
	Create(ctx context.Context, invite *domain.Invite) error
	GetByCode(ctx context.Context, code string) (*domain.Invite, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invite, error)
	// Claim conditionally transitions pending -> accepted, guarded by
	// expiry. Must be atomic: at most one of N concurrent calls returns true.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	// ReleaseClaim conditionally rolls accepted -> pending.
	ReleaseClaim(ctx context.Context, id uuid.UUID) error
	Revoke(ctx context.Context, id uuid.UUID) error
}

// ParentStore links or creates parent directory records.
type ParentStore interface {
	GetByOrgAndEmail(ctx context.Context, orgID uuid.UUID, email string) (*domain.Parent, error)
	Create(ctx context.Context, parent *domain.Parent) error
	LinkUser(ctx context.Context, id, userID uuid.UUID, firstName, lastName string) error
}

// RoleStore grants organization role memberships idempotently.
type RoleStore interface {
	Grant(ctx context.Context, grant *domain.RoleGrant) (*domain.RoleGrant, error)
}

// Service runs the invite claim protocol and the admin invite operations.
type Service struct {
	invites   InviteStore
	parents   ParentStore
	roles     RoleStore
	accounts  identity.Provider
	inviteTTL time.Duration
	logger    *slog.Logger
}

// NewService creates an invite service.
func NewService(invites InviteStore, parents ParentStore, roles RoleStore, accounts identity.Provider, inviteTTL time.Duration, logger *slog.Logger) *Service {
	if inviteTTL <= 0 {
		inviteTTL = DefaultInviteTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		invites:   invites,
		parents:   parents,
		roles:     roles,
		accounts:  accounts,
		inviteTTL: inviteTTL,
		logger:    logger,
	}
}

// AcceptRequest carries the fully-validated registration details submitted
// with an invite code.
type AcceptRequest struct {
	OrganizationID uuid.UUID
	Code           string
	Email          string
	Password       string
	FirstName      string
	LastName       string
}

// Accept admits the caller into the invite's organization at most once.
//
// Concurrency rests entirely on the store's atomic conditional update: the
// pre-check before the claim is advisory (a fast, friendly error), and the
// re-fetch after a zero-row claim exists because the pre-check may be stale
// by the time the claim runs. Everything after a won claim executes once
// per invite by construction.
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (*domain.ProvisionedIdentity, error) {
	// Validate input before any state mutation so validation failures are
	// always safe to retry with corrected input.
	if err := auth.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	invite, err := s.invites.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	// An invite belonging to another organization is indistinguishable from
	// an unknown code, so codes never leak across organizations.
	if invite.OrganizationID != req.OrganizationID {
		return nil, domain.ErrInviteNotFound
	}

	if err := inviteUnclaimable(invite, time.Now()); err != nil {
		return nil, err
	}

	claimed, err := s.invites.Claim(ctx, invite.ID)
	if err != nil {
		return nil, fmt.Errorf("claim invite: %w", err)
	}
	if !claimed {
		// Lost the race, or expired between pre-check and claim. Re-fetch
		// for the precise reason.
		current, err := s.invites.GetByID(ctx, invite.ID)
		if err != nil {
			return nil, err
		}
		if err := inviteUnclaimable(current, time.Now()); err != nil {
			return nil, err
		}
		// Pending and unexpired again: the winner released its claim between
		// our claim and the re-fetch. The code is usable, so this attempt is
		// retryable.
		return nil, fmt.Errorf("claim invite %s: lost claim race", invite.ID)
	}

	userID, err := s.accounts.CreateAccount(ctx, req.Email, req.Password, req.FirstName+" "+req.LastName)
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			// Deliberate reject, not a retryable state: the caller has not
			// proven ownership of that email through this flow, so linking
			// the invite to the pre-existing account would be a privilege
			// escalation. The invite stays accepted; the user must go
			// through the authenticated acceptance path.
			return nil, err
		}
		// Transient failure: roll the claim back so the code stays usable.
		if rbErr := s.invites.ReleaseClaim(ctx, invite.ID); rbErr != nil {
			s.logger.Error("failed to release invite claim after provisioning failure",
				"invite_id", invite.ID, "error", rbErr)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	parentID, err := s.linkOrCreateParent(ctx, invite.OrganizationID, userID, req)
	if err != nil {
		return nil, fmt.Errorf("link parent record: %w", err)
	}

	now := time.Now()
	grant, err := s.roles.Grant(ctx, &domain.RoleGrant{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: invite.OrganizationID,
		Role:           invite.Role,
		Status:         domain.RoleGrantStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("grant role: %w", err)
	}

	return &domain.ProvisionedIdentity{
		UserID:      userID,
		ParentID:    parentID,
		RoleGrantID: grant.ID,
	}, nil
}

// linkOrCreateParent reuses an admin-entered parent record matching the
// organization and email (preserving its roster metadata) or creates a new
// one, and points it at the new account.
func (s *Service) linkOrCreateParent(ctx context.Context, orgID, userID uuid.UUID, req AcceptRequest) (uuid.UUID, error) {
	existing, err := s.parents.GetByOrgAndEmail(ctx, orgID, req.Email)
	if err == nil {
		if err := s.parents.LinkUser(ctx, existing.ID, userID, req.FirstName, req.LastName); err != nil {
			return uuid.Nil, err
		}
		return existing.ID, nil
	}
	if !errors.Is(err, domain.ErrParentNotFound) {
		return uuid.Nil, err
	}

	now := time.Now()
	parent := &domain.Parent{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         &userID,
		Email:          auth.NormalizeEmail(req.Email),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.parents.Create(ctx, parent); err != nil {
		return uuid.Nil, err
	}
	return parent.ID, nil
}

// inviteUnclaimable returns the business-rule error preventing a claim, or
// nil if the invite is claimable.
func inviteUnclaimable(invite *domain.Invite, now time.Time) error {
	switch invite.Status {
	case domain.InviteStatusAccepted:
		return domain.ErrInviteAlreadyAccepted
	case domain.InviteStatusRevoked:
		return domain.ErrInviteRevoked
	}
	if invite.IsExpired(now) {
		return domain.ErrInviteExpired
	}
	return nil
}

// CreateInvite creates a pending invite with an opaque random code.
func (s *Service) CreateInvite(ctx context.Context, orgID uuid.UUID, email, role string) (*domain.Invite, error) {
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	invite := &domain.Invite{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Code:           code,
		Email:          auth.NormalizeEmail(email),
		Role:           role,
		Status:         domain.InviteStatusPending,
		ExpiresAt:      now.Add(s.inviteTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// RevokeInvite revokes a pending invite. Only pending invites can be
// revoked; accepted ones already have a definite, different outcome.
func (s *Service) RevokeInvite(ctx context.Context, orgID, inviteID uuid.UUID) error {
	invite, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return err
	}
	if invite.OrganizationID != orgID {
		return domain.ErrInviteNotFound
	}
	return s.invites.Revoke(ctx, inviteID)
}

// LookupInvite resolves an invite code for an organization's signup form.
// Wrong-org codes are reported as not found.
func (s *Service) LookupInvite(ctx context.Context, orgID uuid.UUID, code string) (*domain.Invite, error) {
	invite, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite.OrganizationID != orgID {
		return nil, domain.ErrInviteNotFound
	}
	return invite, nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
