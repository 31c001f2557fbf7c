package tenant

import (
	"context"
	"strings"
	"sync"
)

// MemoryProvider is an in-process Provider for development and tests.
type MemoryProvider struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
}

func NewMemoryProvider(tenants ...*Tenant) *MemoryProvider {
	p := &MemoryProvider{tenants: make(map[string]*Tenant, len(tenants))}
	for _, t := range tenants {
		p.Put(t)
	}
	return p
}

// Put adds or replaces t, keyed by its lower-cased subdomain.
func (p *MemoryProvider) Put(t *Tenant) {
	if t == nil {
		return
	}
	p.mu.Lock()
	p.tenants[strings.ToLower(t.Subdomain)] = t
	p.mu.Unlock()
}

func (p *MemoryProvider) Remove(subdomain string) {
	p.mu.Lock()
	delete(p.tenants, strings.ToLower(subdomain))
	p.mu.Unlock()
}

// GetBySubdomain returns (nil, nil) for an unknown subdomain.
func (p *MemoryProvider) GetBySubdomain(_ context.Context, subdomain string) (*Tenant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tenants[strings.ToLower(subdomain)], nil
}
