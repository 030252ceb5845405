package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/domain"
	"github.com/chapterhq/chapterhq/pkg/repository"
)

// DefaultAccessTokenTTL is the default lifetime of access tokens.
const DefaultAccessTokenTTL = 15 * time.Minute

// SessionConfig holds session token configuration.
type SessionConfig struct {
	AccessTokenTTL time.Duration
	JWTSecret      []byte
	Issuer         string
}

// SessionService issues and validates JWT access tokens carrying the
// user's organization and role claims.
type SessionService struct {
	config SessionConfig
	users  *repository.UsersRepository
	creds  *repository.CredentialsRepository
	roles  *repository.RolesRepository
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, users *repository.UsersRepository, creds *repository.CredentialsRepository, roles *repository.RolesRepository) *SessionService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	return &SessionService{config: config, users: users, creds: creds, roles: roles}
}

// AccessTokenClaims represents the claims in an access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"org_id,omitempty"`
	Role           string `json:"role,omitempty"`
}

// Login authenticates email/password against an organization and returns a
// signed access token scoped to the user's role grant there.
func (s *SessionService) Login(ctx context.Context, orgID uuid.UUID, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	cred, err := s.creds.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if !VerifyPassword(password, cred.PasswordHash) {
		return "", domain.ErrInvalidCredentials
	}

	grant, err := s.roles.GetByUserAndOrg(ctx, user.ID, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrRoleGrantNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if !grant.IsActive() {
		return "", domain.ErrInvalidCredentials
	}

	return s.IssueAccessToken(user, orgID, grant.Role)
}

// IssueAccessToken signs an access token for the user in an organization.
func (s *SessionService) IssueAccessToken(user *domain.User, orgID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
		},
		Email:          user.Email,
		OrganizationID: orgID.String(),
		Role:           role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.JWTSecret)
}

// ValidateAccessToken verifies a token's signature and expiry and returns
// its claims.
func (s *SessionService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
