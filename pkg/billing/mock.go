package billing

import (
	"context"
	"sync"
)

// MockProvider is a test double that records calls and returns configurable
// results.
type MockProvider struct {
	mu sync.Mutex

	// Subscriptions maps subscriptionID -> status.
	Subscriptions map[string]string
	// CancelCalls collects the subscription IDs passed to CancelSubscription.
	CancelCalls []string

	// Error fields allow tests to inject failures.
	RetrieveErr error
	CancelErr   error
}

// NewMockProvider creates a MockProvider ready for use.
func NewMockProvider() *MockProvider {
	return &MockProvider{Subscriptions: make(map[string]string)}
}

// RetrieveSubscription returns the recorded subscription, or
// ErrSubscriptionMissing for unknown IDs.
func (m *MockProvider) RetrieveSubscription(_ context.Context, subscriptionID string) (*ProviderSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}
	status, ok := m.Subscriptions[subscriptionID]
	if !ok {
		return nil, ErrSubscriptionMissing
	}
	return &ProviderSubscription{ID: subscriptionID, Status: status}, nil
}

// CancelSubscription cancels the recorded subscription, reporting
// already-canceled and missing subscriptions the way a real provider would.
func (m *MockProvider) CancelSubscription(_ context.Context, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CancelCalls = append(m.CancelCalls, subscriptionID)
	if m.CancelErr != nil {
		return m.CancelErr
	}

	status, ok := m.Subscriptions[subscriptionID]
	if !ok {
		return ErrSubscriptionMissing
	}
	if status == "canceled" {
		return ErrAlreadyCanceled
	}
	m.Subscriptions[subscriptionID] = "canceled"
	return nil
}
