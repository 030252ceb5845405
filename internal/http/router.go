package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chapterhq/chapterhq/internal/config"
	"github.com/chapterhq/chapterhq/internal/http/features/billing"
	"github.com/chapterhq/chapterhq/internal/http/features/invite"
	"github.com/chapterhq/chapterhq/internal/http/features/session"
	"github.com/chapterhq/chapterhq/internal/http/middleware"
	"github.com/chapterhq/chapterhq/internal/httputil"
	"github.com/chapterhq/chapterhq/internal/notification"
	"github.com/chapterhq/chapterhq/pkg/auth"
	"github.com/chapterhq/chapterhq/pkg/domain"
	invitesvc "github.com/chapterhq/chapterhq/pkg/invite"
	"github.com/chapterhq/chapterhq/pkg/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger             *slog.Logger
	InviteService      *invitesvc.Service
	SessionService     *auth.SessionService
	EmailService       *notification.EmailService
	OrganizationsRepo  *repository.OrganizationsRepository
	SubscriptionsRepo  *repository.SubscriptionsRepository
	AppBaseURL         string
	RateLimitConfig    config.RateLimitConfig
	MaxRequestBodySize int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	inviteHandler := invite.NewHandler(
		cfg.Logger,
		cfg.InviteService,
		cfg.EmailService,
		cfg.OrganizationsRepo,
		cfg.AppBaseURL,
	)
	sessionHandler := session.NewHandler(cfg.Logger, cfg.SessionService)
	billingHandler := billing.NewHandler(cfg.Logger, cfg.SubscriptionsRepo)

	// Public routes: invite acceptance and login.
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["accept"])
		r.Use(middleware.ReadOnlyGuard(cfg.SubscriptionsRepo))
		r.Post("/v1/orgs/{orgID}/invites/accept", inviteHandler.Accept)
		r.Get("/v1/orgs/{orgID}/invites/lookup", inviteHandler.Lookup)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["login"])
		r.Post("/v1/orgs/{orgID}/login", sessionHandler.Login)
	})

	// Payment provider webhook. Authenticated by the provider's delivery
	// guarantees, not by a session.
	r.Post("/v1/billing/webhook", billingHandler.Webhook)

	// Admin routes: authenticated, admin role, subscription-gated.
	// BlockExpired rejects everything once the grace period lapses;
	// ReadOnlyGuard rejects mutations during the grace period itself.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Use(middleware.BlockExpired(cfg.SubscriptionsRepo))
		r.Use(middleware.ReadOnlyGuard(cfg.SubscriptionsRepo))
		r.Post("/v1/orgs/{orgID}/invites", inviteHandler.Create)
		r.Post("/v1/orgs/{orgID}/invites/{inviteID}/revoke", inviteHandler.Revoke)
	})

	return r
}
