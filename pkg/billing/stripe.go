package billing

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/subscription"
)

// StripeProvider implements Provider using the Stripe API.
type StripeProvider struct {
	apiKey string
}

// NewStripeProvider creates a StripeProvider with the given API key.
func NewStripeProvider(apiKey string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{apiKey: apiKey}
}

// RetrieveSubscription fetches the provider's view of a subscription.
func (p *StripeProvider) RetrieveSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &ProviderSubscription{ID: sub.ID, Status: string(sub.Status)}, nil
}

// CancelSubscription cancels a Stripe subscription immediately. A
// subscription Stripe no longer knows about maps to ErrSubscriptionMissing;
// one that is already canceled maps to ErrAlreadyCanceled.
func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := subscription.Cancel(subscriptionID, params)
	if err == nil {
		return nil
	}

	classified := classifyStripeError(err)
	if errors.Is(classified, ErrSubscriptionMissing) {
		return ErrSubscriptionMissing
	}

	// Stripe rejects canceling an already-canceled subscription with a
	// generic invalid_request_error, so confirm via the current status.
	sub, retrieveErr := p.RetrieveSubscription(ctx, subscriptionID)
	if retrieveErr == nil && sub.Status == string(stripe.SubscriptionStatusCanceled) {
		return ErrAlreadyCanceled
	}
	if errors.Is(retrieveErr, ErrSubscriptionMissing) {
		return ErrSubscriptionMissing
	}
	return classified
}

// classifyStripeError maps a Stripe SDK error onto the package's closed
// outcome set. This is the only place Stripe error shapes are inspected.
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
		return ErrSubscriptionMissing
	}
	return fmt.Errorf("billing: stripe request failed: %w", err)
}
