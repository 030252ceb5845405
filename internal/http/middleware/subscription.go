package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/internal/httputil"
	"github.com/chapterhq/chapterhq/pkg/domain"
	"github.com/chapterhq/chapterhq/pkg/lifecycle"
)

// SubscriptionSource resolves an organization's subscription for the
// access-control guards. A missing subscription is reported as
// domain.ErrSubscriptionNotFound and treated as a nil snapshot.
type SubscriptionSource interface {
	GetByOrganizationID(ctx context.Context, orgID uuid.UUID) (*domain.Subscription, error)
}

// mutatingMethods are the HTTP verbs rejected on a read-only organization.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// BlockExpired creates middleware that rejects every request, reads
// included, for organizations whose subscription blocks access. Must run
// after Auth so the organization ID is in the context.
func BlockExpired(subscriptions SubscriptionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := snapshotFor(r, subscriptions, w)
			if !ok {
				return
			}
			if lifecycle.ShouldBlockAccess(snap) {
				httputil.Error(w, http.StatusPaymentRequired, "subscription required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ReadOnlyGuard creates middleware that rejects mutating requests while the
// organization is in its grace period, leaving reads untouched. Must run
// after Auth.
func ReadOnlyGuard(subscriptions SubscriptionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutatingMethods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}
			snap, ok := snapshotFor(r, subscriptions, w)
			if !ok {
				return
			}
			if lifecycle.IsOrgReadOnly(snap) {
				httputil.Error(w, http.StatusForbidden, "organization is read-only during its grace period")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func snapshotFor(r *http.Request, subscriptions SubscriptionSource, w http.ResponseWriter) (*domain.SubscriptionSnapshot, bool) {
	// Authenticated routes carry the organization in the token; public
	// org-scoped routes carry it in the URL.
	orgID, ok := GetOrgID(r.Context())
	if !ok {
		parsed, err := uuid.Parse(chi.URLParam(r, "orgID"))
		if err != nil {
			httputil.Error(w, http.StatusUnauthorized, "missing organization context")
			return nil, false
		}
		orgID = parsed
	}

	sub, err := subscriptions.GetByOrganizationID(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return nil, true
		}
		httputil.Error(w, http.StatusInternalServerError, "failed to resolve subscription")
		return nil, false
	}
	return sub.Snapshot(), true
}
