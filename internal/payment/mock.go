package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/verdantmarket/verdant/internal/domain"
)

// MockProvider implements Provider for tests. Calls are recorded in CallLog;
// InitiateCheckoutFunc, when set, takes over the method.
type MockProvider struct {
	mu      sync.Mutex
	CallLog []string

	InitiateCheckoutFunc func(ctx context.Context, order *domain.Order) (*Session, error)
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock whose default session redirects to a
// deterministic URL derived from the order ID.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) InitiateCheckout(ctx context.Context, order *domain.Order) (*Session, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, "InitiateCheckout")
	m.mu.Unlock()

	if m.InitiateCheckoutFunc != nil {
		return m.InitiateCheckoutFunc(ctx, order)
	}
	return &Session{
		ID:  fmt.Sprintf("cs_test_%s", order.ID),
		URL: fmt.Sprintf("https://checkout.test/pay/%s", order.ID),
	}, nil
}

// Calls reports how many times InitiateCheckout ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CallLog)
}
