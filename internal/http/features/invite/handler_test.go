package invite

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/domain"
	"github.com/chapterhq/chapterhq/pkg/invite"
)

// In-memory stores backing a real invite.Service for handler tests.

type memInviteStore struct {
	mu      sync.Mutex
	invites map[uuid.UUID]*domain.Invite
}

func (m *memInviteStore) Create(_ context.Context, inv *domain.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.invites[inv.ID] = &cp
	return nil
}

func (m *memInviteStore) GetByCode(_ context.Context, code string) (*domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.Code == code {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrInviteNotFound
}

func (m *memInviteStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok {
		return nil, domain.ErrInviteNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInviteStore) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok || inv.Status != domain.InviteStatusPending || !time.Now().Before(inv.ExpiresAt) {
		return false, nil
	}
	inv.Status = domain.InviteStatusAccepted
	return true, nil
}

func (m *memInviteStore) ReleaseClaim(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invites[id]; ok && inv.Status == domain.InviteStatusAccepted {
		inv.Status = domain.InviteStatusPending
	}
	return nil
}

func (m *memInviteStore) Revoke(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok {
		return domain.ErrInviteNotFound
	}
	if inv.Status != domain.InviteStatusPending {
		return domain.ErrInviteNotPending
	}
	inv.Status = domain.InviteStatusRevoked
	return nil
}

type memParentStore struct {
	mu      sync.Mutex
	parents []*domain.Parent
}

func (m *memParentStore) GetByOrgAndEmail(_ context.Context, orgID uuid.UUID, email string) (*domain.Parent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parents {
		if p.OrganizationID == orgID && strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrParentNotFound
}

func (m *memParentStore) Create(_ context.Context, parent *domain.Parent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *parent
	m.parents = append(m.parents, &cp)
	return nil
}

func (m *memParentStore) LinkUser(_ context.Context, id, userID uuid.UUID, firstName, lastName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parents {
		if p.ID == id {
			p.UserID = &userID
			return nil
		}
	}
	return domain.ErrParentNotFound
}

type memRoleStore struct{}

func (memRoleStore) Grant(_ context.Context, grant *domain.RoleGrant) (*domain.RoleGrant, error) {
	cp := *grant
	return &cp, nil
}

type memAccounts struct {
	mu     sync.Mutex
	emails map[string]bool
	err    error
}

func (m *memAccounts) CreateAccount(_ context.Context, email, password, name string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return uuid.Nil, m.err
	}
	key := strings.ToLower(email)
	if m.emails[key] {
		return uuid.Nil, domain.ErrEmailAlreadyRegistered
	}
	m.emails[key] = true
	return uuid.New(), nil
}

type handlerFixture struct {
	handler  *Handler
	invites  *memInviteStore
	accounts *memAccounts
	orgID    uuid.UUID
}

func newHandlerFixture() *handlerFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	invites := &memInviteStore{invites: make(map[uuid.UUID]*domain.Invite)}
	accounts := &memAccounts{emails: make(map[string]bool)}
	service := invite.NewService(invites, &memParentStore{}, memRoleStore{}, accounts, 0, logger)

	return &handlerFixture{
		handler:  NewHandler(logger, service, nil, nil, "https://app.example.com"),
		invites:  invites,
		accounts: accounts,
		orgID:    uuid.New(),
	}
}

func (fx *handlerFixture) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/orgs/{orgID}/invites/accept", fx.handler.Accept)
	r.Post("/v1/orgs/{orgID}/invites", fx.handler.Create)
	r.Post("/v1/orgs/{orgID}/invites/{inviteID}/revoke", fx.handler.Revoke)
	r.Get("/v1/orgs/{orgID}/invites/lookup", fx.handler.Lookup)
	return r
}

func (fx *handlerFixture) seedInvite(status domain.InviteStatus, expiresAt time.Time) *domain.Invite {
	inv := &domain.Invite{
		ID:             uuid.New(),
		OrganizationID: fx.orgID,
		Code:           "code-" + uuid.NewString(),
		Email:          "parent@example.com",
		Role:           domain.RoleParent,
		Status:         status,
		ExpiresAt:      expiresAt,
	}
	fx.invites.invites[inv.ID] = inv
	return inv
}

func acceptBody(code string) string {
	return `{"code":"` + code + `","email":"parent@example.com","password":"long enough pw","first_name":"Pat","last_name":"Larsen"}`
}

func TestAcceptHandler(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(fx *handlerFixture) string // returns request body
		wantStatus int
	}{
		{
			name: "valid invite admits",
			setup: func(fx *handlerFixture) string {
				inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(time.Hour))
				return acceptBody(inv.Code)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "unknown code",
			setup: func(fx *handlerFixture) string {
				return acceptBody("no-such-code")
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid email",
			setup: func(fx *handlerFixture) string {
				inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(time.Hour))
				return `{"code":"` + inv.Code + `","email":"not-an-email","password":"long enough pw"}`
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "weak password",
			setup: func(fx *handlerFixture) string {
				inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(time.Hour))
				return `{"code":"` + inv.Code + `","email":"parent@example.com","password":"short"}`
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing fields",
			setup: func(fx *handlerFixture) string {
				return `{"code":"x"}`
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "malformed body",
			setup: func(fx *handlerFixture) string {
				return `{not json`
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "already accepted",
			setup: func(fx *handlerFixture) string {
				inv := fx.seedInvite(domain.InviteStatusAccepted, time.Now().Add(time.Hour))
				return acceptBody(inv.Code)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "email already registered",
			setup: func(fx *handlerFixture) string {
				inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(time.Hour))
				fx.accounts.emails["parent@example.com"] = true
				return acceptBody(inv.Code)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "revoked invite",
			setup: func(fx *handlerFixture) string {
				inv := fx.seedInvite(domain.InviteStatusRevoked, time.Now().Add(time.Hour))
				return acceptBody(inv.Code)
			},
			wantStatus: http.StatusGone,
		},
		{
			name: "expired invite",
			setup: func(fx *handlerFixture) string {
				inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(-time.Hour))
				return acceptBody(inv.Code)
			},
			wantStatus: http.StatusGone,
		},
		{
			name: "transient provisioning failure",
			setup: func(fx *handlerFixture) string {
				inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(time.Hour))
				fx.accounts.err = errors.New("identity backend unavailable")
				return acceptBody(inv.Code)
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newHandlerFixture()
			body := tt.setup(fx)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost,
				"/v1/orgs/"+fx.orgID.String()+"/invites/accept", strings.NewReader(body))
			fx.router().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestAcceptHandlerWrongOrgLooksLikeUnknownCode(t *testing.T) {
	fx := newHandlerFixture()
	inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(time.Hour))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/v1/orgs/"+uuid.NewString()+"/invites/accept", strings.NewReader(acceptBody(inv.Code)))
	fx.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "invalid invite code" {
		t.Errorf("error = %q, want the same message as an unknown code", resp["error"])
	}
}

func TestCreateHandler(t *testing.T) {
	fx := newHandlerFixture()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/v1/orgs/"+fx.orgID.String()+"/invites",
		strings.NewReader(`{"email":"new@example.com"}`))
	fx.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["role"] != domain.RoleParent {
		t.Errorf("role = %v, want default %q", resp["role"], domain.RoleParent)
	}
	if code, _ := resp["code"].(string); code == "" {
		t.Error("response has no invite code")
	}
}

func TestCreateHandlerRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{}`},
		{"invalid email", `{"email":"nope"}`},
		{"malformed body", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newHandlerFixture()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost,
				"/v1/orgs/"+fx.orgID.String()+"/invites", strings.NewReader(tt.body))
			fx.router().ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestRevokeHandler(t *testing.T) {
	fx := newHandlerFixture()
	inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(time.Hour))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/v1/orgs/"+fx.orgID.String()+"/invites/"+inv.ID.String()+"/revoke", nil)
	fx.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}

	// Revoking again conflicts.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost,
		"/v1/orgs/"+fx.orgID.String()+"/invites/"+inv.ID.String()+"/revoke", nil)
	fx.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("second revoke status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRevokeHandlerUnknownInvite(t *testing.T) {
	fx := newHandlerFixture()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/v1/orgs/"+fx.orgID.String()+"/invites/"+uuid.NewString()+"/revoke", nil)
	fx.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestLookupHandler(t *testing.T) {
	fx := newHandlerFixture()
	inv := fx.seedInvite(domain.InviteStatusPending, time.Now().Add(time.Hour))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/orgs/"+fx.orgID.String()+"/invites/lookup?code="+inv.Code, nil)
	fx.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["email"] != inv.Email {
		t.Errorf("email = %v, want %q", resp["email"], inv.Email)
	}

	// Missing code parameter.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet,
		"/v1/orgs/"+fx.orgID.String()+"/invites/lookup", nil)
	fx.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing code status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
