package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satizap/gateway/pkg/tenant"
)

func TestContext(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		tc := &tenant.Context{Tenant: createTestTenant("acme", true), Identifier: "acme"}
		ctx := tenant.WithContext(context.Background(), tc)

		got, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, tc, got)
		assert.Same(t, tc, tenant.MustFromContext(ctx))
	})

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		got, ok := tenant.FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("context without tenant", func(t *testing.T) {
		t.Parallel()
		ctx := tenant.WithContext(context.Background(), &tenant.Context{Identifier: "acme"})
		_, ok := tenant.FromContext(ctx)
		assert.False(t, ok)
	})

	t.Run("must panics without tenant", func(t *testing.T) {
		t.Parallel()
		assert.PanicsWithValue(t, tenant.ErrNoTenantInContext, func() {
			tenant.MustFromContext(context.Background())
		})
	})

	t.Run("logger extractor", func(t *testing.T) {
		t.Parallel()
		extract := tenant.LoggerExtractor()

		_, ok := extract(context.Background())
		assert.False(t, ok)

		ctx := tenant.WithContext(context.Background(), &tenant.Context{
			Tenant:     createTestTenant("acme", true),
			Identifier: "acme",
		})
		attr, ok := extract(ctx)
		require.True(t, ok)
		assert.Equal(t, "tenant", attr.Key)
		assert.Equal(t, "acme", attr.Value.String())
	})
}

func TestMemoryProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	acme := createTestTenant("Acme", true)
	p := tenant.NewMemoryProvider(acme, nil)

	got, err := p.GetBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Same(t, acme, got)

	got, err = p.GetBySubdomain(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)

	p.Remove("ACME")
	got, err = p.GetBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, got)
}
