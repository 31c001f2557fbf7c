package tenant_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/satizap/gateway/pkg/tenant"
)

func createTestTenant(subdomain string, active bool) *tenant.Tenant {
	return &tenant.Tenant{
		ID:           uuid.New(),
		Name:         subdomain + " Association",
		Subdomain:    subdomain,
		Active:       active,
		WordPressURL: "https://" + subdomain + ".example.org",
		CreatedAt:    time.Now(),
	}
}

// mockProvider is a testify mock of tenant.Provider.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

// countingProvider wraps a provider and counts calls.
type countingProvider struct {
	next  tenant.Provider
	calls atomic.Int32
}

func (p *countingProvider) GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	p.calls.Add(1)
	return p.next.GetBySubdomain(ctx, subdomain)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
