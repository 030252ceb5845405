package identity

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/chapterhq/chapterhq/pkg/auth"
	"github.com/chapterhq/chapterhq/pkg/domain"
	"github.com/chapterhq/chapterhq/pkg/repository"
)

// Service is the Postgres-backed identity provider: user account plus
// argon2id password credentials, created in one transaction.
type Service struct {
	db    *sql.DB
	users *repository.UsersRepository
	creds *repository.CredentialsRepository
}

// NewService creates an identity service.
func NewService(db *sql.DB, users *repository.UsersRepository, creds *repository.CredentialsRepository) *Service {
	return &Service{db: db, users: users, creds: creds}
}

// CreateAccount registers a new account. Email format and password policy
// are validated before any row is written, so validation failures are
// always safe to retry with corrected input.
func (s *Service) CreateAccount(ctx context.Context, email, password, name string) (uuid.UUID, error) {
	if err := auth.ValidateEmail(email); err != nil {
		return uuid.Nil, err
	}
	email = auth.NormalizeEmail(email)

	if err := auth.ValidatePassword(password); err != nil {
		return uuid.Nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &domain.UserPassword{
		UserID:            user.ID,
		PasswordHash:      hash,
		PasswordUpdatedAt: now,
	}

	err = repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return err
		}
		return s.creds.CreateTx(ctx, tx, cred)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}
