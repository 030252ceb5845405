package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/internal/httputil"
	"github.com/chapterhq/chapterhq/pkg/domain"
	"github.com/chapterhq/chapterhq/pkg/lifecycle"
)

// SubscriptionStore is the subscription persistence the webhook needs.
type SubscriptionStore interface {
	GetByProviderSubscriptionID(ctx context.Context, providerID string) (*domain.Subscription, error)
	UpdateStatus(ctx context.Context, orgID uuid.UUID, status domain.SubscriptionStatus) error
	MarkCanceled(ctx context.Context, orgID uuid.UUID, gracePeriodEndsAt time.Time) error
}

// Handler handles billing provider webhook events.
type Handler struct {
	logger *slog.Logger
	subs   SubscriptionStore
}

// NewHandler creates a new billing webhook handler.
func NewHandler(logger *slog.Logger, subs SubscriptionStore) *Handler {
	return &Handler{logger: logger, subs: subs}
}

// webhookEvent is the minimal slice of the provider event payload we read.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

// providerStatuses maps provider subscription statuses onto ours. Statuses
// we do not track are ignored.
var providerStatuses = map[string]domain.SubscriptionStatus{
	"active":             domain.SubscriptionStatusActive,
	"trialing":           domain.SubscriptionStatusTrialing,
	"past_due":           domain.SubscriptionStatusPastDue,
	"incomplete":         domain.SubscriptionStatusIncomplete,
	"incomplete_expired": domain.SubscriptionStatusIncompleteExpired,
	"unpaid":             domain.SubscriptionStatusUnpaid,
}

// Webhook handles subscription lifecycle events from the payment provider.
// POST /v1/billing/webhook
//
// Unknown event types and unknown subscriptions are acknowledged with 200
// so the provider does not retry them.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	switch event.Type {
	case "customer.subscription.deleted":
		h.handleDeleted(w, r, event)
	case "customer.subscription.updated":
		h.handleUpdated(w, r, event)
	default:
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

// handleDeleted moves the subscription into canceled and starts the grace
// period. Re-delivered events find the subscription already canceled and do
// not reset the grace period end.
func (h *Handler) handleDeleted(w http.ResponseWriter, r *http.Request, event webhookEvent) {
	sub, ok := h.resolve(w, r, event)
	if !ok {
		return
	}
	if sub.Status == domain.SubscriptionStatusCanceled {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "already_canceled"})
		return
	}

	graceEnd := lifecycle.GracePeriodEnd(time.Now())
	if err := h.subs.MarkCanceled(r.Context(), sub.OrganizationID, graceEnd); err != nil {
		h.logger.Error("failed to mark subscription canceled",
			"error", err, "org_id", sub.OrganizationID)
		httputil.Error(w, http.StatusInternalServerError, "failed to process event")
		return
	}
	h.logger.Info("subscription canceled, grace period started",
		"org_id", sub.OrganizationID, "grace_period_ends_at", graceEnd)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

func (h *Handler) handleUpdated(w http.ResponseWriter, r *http.Request, event webhookEvent) {
	status, ok := providerStatuses[event.Data.Object.Status]
	if !ok {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	sub, ok := h.resolve(w, r, event)
	if !ok {
		return
	}
	if sub.Status == status {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "unchanged"})
		return
	}

	if err := h.subs.UpdateStatus(r.Context(), sub.OrganizationID, status); err != nil {
		h.logger.Error("failed to update subscription status",
			"error", err, "org_id", sub.OrganizationID, "status", status)
		httputil.Error(w, http.StatusInternalServerError, "failed to process event")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// resolve looks up the subscription named by the event. When it writes a
// response itself, it returns ok=false.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, event webhookEvent) (*domain.Subscription, bool) {
	if event.Data.Object.ID == "" {
		httputil.Error(w, http.StatusBadRequest, "missing subscription id")
		return nil, false
	}
	sub, err := h.subs.GetByProviderSubscriptionID(r.Context(), event.Data.Object.ID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		h.logger.Warn("webhook for unknown subscription",
			"provider_subscription_id", event.Data.Object.ID, "type", event.Type)
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to resolve subscription", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to process event")
		return nil, false
	}
	return sub, true
}
