package invite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/internal/httputil"
	"github.com/chapterhq/chapterhq/internal/notification"
	"github.com/chapterhq/chapterhq/pkg/domain"
	"github.com/chapterhq/chapterhq/pkg/invite"
)

// Handler handles invite endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *invite.Service
	emailService *notification.EmailService
	orgs         OrgNames
	appBaseURL   string
}

// OrgNames resolves organization display names for invite emails.
type OrgNames interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
}

// NewHandler creates a new invite handler.
func NewHandler(logger *slog.Logger, service *invite.Service, emailService *notification.EmailService, orgs OrgNames, appBaseURL string) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		emailService: emailService,
		orgs:         orgs,
		appBaseURL:   appBaseURL,
	}
}

// AcceptRequest represents an invite acceptance request.
type AcceptRequest struct {
	Code      string `json:"code"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Accept handles invite acceptance.
// POST /v1/orgs/{orgID}/invites/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "code, email and password are required")
		return
	}

	result, err := h.service.Accept(r.Context(), invite.AcceptRequest{
		OrganizationID: orgID,
		Code:           req.Code,
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
	})
	if err != nil {
		h.writeAcceptError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"parent_id": result.ParentID,
		"user_id":   result.UserID,
	})
}

// writeAcceptError maps protocol errors onto the response taxonomy:
// 400 invalid input, 409 conflicting definite outcome, 410 never
// redeemable, 500 transient (safe to retry).
func (h *Handler) writeAcceptError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInviteNotFound):
		// Unknown codes and wrong-org codes share this message.
		httputil.Error(w, http.StatusBadRequest, "invalid invite code")
	case errors.Is(err, domain.ErrInvalidEmail):
		httputil.Error(w, http.StatusBadRequest, "invalid email address")
	case errors.Is(err, domain.ErrWeakPassword):
		httputil.Error(w, http.StatusBadRequest, "password does not meet requirements")
	case errors.Is(err, domain.ErrInviteAlreadyAccepted):
		httputil.Error(w, http.StatusConflict, "invite already accepted")
	case errors.Is(err, domain.ErrEmailAlreadyRegistered):
		httputil.Error(w, http.StatusConflict, "an account with this email already exists. sign in to accept the invite")
	case errors.Is(err, domain.ErrInviteRevoked):
		httputil.Error(w, http.StatusGone, "invite has been revoked")
	case errors.Is(err, domain.ErrInviteExpired):
		httputil.Error(w, http.StatusGone, "invite has expired")
	default:
		h.logger.Error("invite acceptance failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "invite acceptance failed. please try again")
	}
}

// CreateRequest represents an admin invite creation request.
type CreateRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Create handles admin invite creation.
// POST /v1/orgs/{orgID}/invites
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleParent
	}

	inv, err := h.service.CreateInvite(r.Context(), orgID, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEmail) {
			httputil.Error(w, http.StatusBadRequest, "invalid email address")
			return
		}
		h.logger.Error("invite creation failed", "error", err, "org_id", orgID)
		httputil.Error(w, http.StatusInternalServerError, "invite creation failed")
		return
	}

	h.sendInviteEmail(r, inv)

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"id":         inv.ID,
		"code":       inv.Code,
		"email":      inv.Email,
		"role":       inv.Role,
		"expires_at": inv.ExpiresAt,
	})
}

// sendInviteEmail emails the acceptance link when SMTP is configured.
// Best effort: a failed email never fails the creation.
func (h *Handler) sendInviteEmail(r *http.Request, inv *domain.Invite) {
	if h.emailService == nil {
		return
	}
	org, err := h.orgs.GetByID(r.Context(), inv.OrganizationID)
	if err != nil {
		h.logger.Error("failed to resolve organization for invite email",
			"error", err, "invite_id", inv.ID)
		return
	}
	acceptURL := fmt.Sprintf("%s/orgs/%s/join?code=%s", h.appBaseURL, inv.OrganizationID, inv.Code)
	if err := h.emailService.SendInviteEmail(inv.Email, org.Name, acceptURL); err != nil {
		h.logger.Error("failed to send invite email", "error", err, "invite_id", inv.ID)
	}
}

// Revoke handles admin invite revocation.
// POST /v1/orgs/{orgID}/invites/{inviteID}/revoke
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	inviteID, err := uuid.Parse(chi.URLParam(r, "inviteID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid invite id")
		return
	}

	if err := h.service.RevokeInvite(r.Context(), orgID, inviteID); err != nil {
		switch {
		case errors.Is(err, domain.ErrInviteNotFound):
			httputil.Error(w, http.StatusNotFound, "invite not found")
		case errors.Is(err, domain.ErrInviteNotPending):
			httputil.Error(w, http.StatusConflict, "invite is not pending")
		default:
			h.logger.Error("invite revocation failed", "error", err, "invite_id", inviteID)
			httputil.Error(w, http.StatusInternalServerError, "invite revocation failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// Lookup resolves an invite code for the signup form.
// GET /v1/orgs/{orgID}/invites/lookup?code=...
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	inv, err := h.service.LookupInvite(r.Context(), orgID, code)
	if err != nil {
		if errors.Is(err, domain.ErrInviteNotFound) {
			httputil.Error(w, http.StatusBadRequest, "invalid invite code")
			return
		}
		h.logger.Error("invite lookup failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "invite lookup failed")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"email":      inv.Email,
		"role":       inv.Role,
		"status":     inv.Status,
		"expires_at": inv.ExpiresAt,
	})
}
