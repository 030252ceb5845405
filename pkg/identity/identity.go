// Package identity abstracts the authentication-account provider consumed
// by the invite claim protocol. The protocol branches on a closed set of
// outcomes: success, email already registered, or a transient failure.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Provider creates authentication accounts.
type Provider interface {
	// CreateAccount registers a new account with the given credentials and
	// returns its ID. An email that already has an account is reported as
	// domain.ErrEmailAlreadyRegistered; any other error is transient from
	// the caller's point of view.
	CreateAccount(ctx context.Context, email, password, name string) (uuid.UUID, error)
}
