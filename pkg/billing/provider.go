// Package billing abstracts the payment provider behind a small interface
// so the lifecycle workflow branches on a closed set of outcomes instead of
// sniffing provider error strings.
package billing

import (
	"context"
	"errors"
)

// Provider outcome classifications. Adapters translate provider SDK errors
// into these; callers must never inspect provider error text themselves.
var (
	// ErrSubscriptionMissing means the provider has no record of the
	// subscription. During teardown this counts as success.
	ErrSubscriptionMissing = errors.New("billing: subscription does not exist")
	// ErrAlreadyCanceled means the subscription exists but is already
	// canceled. During teardown this counts as success.
	ErrAlreadyCanceled = errors.New("billing: subscription already canceled")
)

// ProviderSubscription is the provider-side view of a subscription.
type ProviderSubscription struct {
	ID     string
	Status string
}

// Provider abstracts payment subscription management.
type Provider interface {
	// RetrieveSubscription fetches the provider's view of a subscription.
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
	// CancelSubscription cancels a subscription immediately. Returns
	// ErrAlreadyCanceled or ErrSubscriptionMissing when the subscription
	// has no billing left to stop; any other error is a genuine failure.
	CancelSubscription(ctx context.Context, subscriptionID string) error
}
