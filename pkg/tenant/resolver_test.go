package tenant_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/satizap/gateway/pkg/environment"
	"github.com/satizap/gateway/pkg/tenant"
)

var devOptions = tenant.Options{EnableFallback: true, CacheEnabled: true}

type recordingObserver struct {
	mu      sync.Mutex
	hits    int
	misses  int
	lookups int
	errs    int
}

func (o *recordingObserver) CacheLookup(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *recordingObserver) Lookup(_ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups++
	if err != nil {
		o.errs++
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("resolves active tenant from localhost path", func(t *testing.T) {
		t.Parallel()
		acme := createTestTenant("acme", true)
		provider := &mockProvider{}
		provider.On("GetBySubdomain", mock.Anything, "acme").Return(acme, nil).Once()

		r := tenant.NewResolver(provider, environment.Development)
		res, err := r.Resolve(ctx, tenant.Request{Host: "localhost:9002", Path: "/acme/chat"}, devOptions)
		require.NoError(t, err)
		require.NotNil(t, res.Context)
		assert.Same(t, acme, res.Context.Tenant)
		assert.Equal(t, "acme", res.Context.Identifier)
		assert.Equal(t, tenant.MethodPathBased, res.Extraction.Method)
		provider.AssertExpectations(t)
	})

	t.Run("mixed case subdomain resolves lower-cased", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		provider.On("GetBySubdomain", mock.Anything, "tenanta").Return(createTestTenant("tenanta", true), nil).Once()

		r := tenant.NewResolver(provider, environment.Production)
		res, err := r.Resolve(ctx, tenant.Request{Host: "TenantA.example.com", Path: "/"}, tenant.Options{})
		require.NoError(t, err)
		require.NotNil(t, res.Context)
		assert.Equal(t, "tenanta", res.Context.Identifier)
		provider.AssertExpectations(t)
	})

	t.Run("no identifier skips lookup", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		r := tenant.NewResolver(provider, environment.Development)

		res, err := r.Resolve(ctx, tenant.Request{Host: "localhost:9002", Path: "/"}, devOptions)
		require.NoError(t, err)
		assert.Nil(t, res.Context)
		assert.Equal(t, tenant.MethodFallback, res.Extraction.Method)
		assert.Equal(t, "root path", res.Extraction.InvalidReason)
		provider.AssertNotCalled(t, "GetBySubdomain", mock.Anything, mock.Anything)
	})

	t.Run("invalid identifier skips lookup", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		r := tenant.NewResolver(provider, environment.Development)

		res, err := r.Resolve(ctx, tenant.Request{Host: "localhost:9002", Path: "/login"}, devOptions)
		require.NoError(t, err)
		assert.Nil(t, res.Context)
		assert.Equal(t, "login", res.Extraction.Identifier)
		assert.False(t, res.Extraction.Valid)
		assert.Equal(t, "reserved word: login", res.Extraction.InvalidReason)
		provider.AssertNotCalled(t, "GetBySubdomain", mock.Anything, mock.Anything)
	})

	t.Run("fallback disabled ignores path", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		r := tenant.NewResolver(provider, environment.Development)

		res, err := r.Resolve(ctx, tenant.Request{Host: "localhost:9002", Path: "/acme"}, tenant.Options{CacheEnabled: true})
		require.NoError(t, err)
		assert.Nil(t, res.Context)
		assert.Equal(t, "path-based routing disabled", res.Extraction.InvalidReason)
		provider.AssertNotCalled(t, "GetBySubdomain", mock.Anything, mock.Anything)
	})

	t.Run("production never uses path routing", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		r := tenant.NewResolver(provider, environment.Production)

		res, err := r.Resolve(ctx, tenant.Request{Host: "localhost:9002", Path: "/acme"}, devOptions)
		require.NoError(t, err)
		assert.Nil(t, res.Context)
		assert.Equal(t, tenant.MethodFallback, res.Extraction.Method)
		provider.AssertNotCalled(t, "GetBySubdomain", mock.Anything, mock.Anything)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		provider.On("GetBySubdomain", mock.Anything, "ghost").Return(nil, nil).Once()
		r := tenant.NewResolver(provider, environment.Development)

		res, err := r.Resolve(ctx, tenant.Request{Host: "localhost", Path: "/ghost"}, devOptions)
		require.NoError(t, err)
		assert.Nil(t, res.Context)
		assert.True(t, res.Extraction.Valid)
	})

	t.Run("provider not found error is not a failure", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		provider.On("GetBySubdomain", mock.Anything, "ghost").Return(nil, tenant.ErrTenantNotFound).Once()
		r := tenant.NewResolver(provider, environment.Production)

		res, err := r.Resolve(ctx, tenant.Request{Host: "ghost.example.com"}, tenant.Options{})
		require.NoError(t, err)
		assert.Nil(t, res.Context)
	})

	t.Run("inactive tenant is indistinguishable from unknown", func(t *testing.T) {
		t.Parallel()
		inactive := &mockProvider{}
		inactive.On("GetBySubdomain", mock.Anything, "acme").Return(createTestTenant("acme", false), nil)
		unknown := &mockProvider{}
		unknown.On("GetBySubdomain", mock.Anything, "acme").Return(nil, nil)

		req := tenant.Request{Host: "acme.example.com"}
		a, errA := tenant.NewResolver(inactive, environment.Production).Resolve(ctx, req, tenant.Options{})
		b, errB := tenant.NewResolver(unknown, environment.Production).Resolve(ctx, req, tenant.Options{})
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, b, a)
	})

	t.Run("provider failure is wrapped", func(t *testing.T) {
		t.Parallel()
		dbErr := errors.New("connection refused")
		provider := &mockProvider{}
		provider.On("GetBySubdomain", mock.Anything, "acme").Return(nil, dbErr).Twice()
		r := tenant.NewResolver(provider, environment.Development)

		req := tenant.Request{Host: "localhost", Path: "/acme"}
		res, err := r.Resolve(ctx, req, devOptions)
		require.Error(t, err)
		assert.ErrorIs(t, err, tenant.ErrLookupFailed)
		assert.ErrorIs(t, err, dbErr)
		assert.Nil(t, res.Context)
		assert.Equal(t, "acme", res.Extraction.Identifier)

		// Failures are not cached.
		_, err = r.Resolve(ctx, req, devOptions)
		assert.ErrorIs(t, err, tenant.ErrLookupFailed)
		provider.AssertExpectations(t)
	})
}

func TestResolver_Caching(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := tenant.Request{Host: "localhost:9002", Path: "/acme"}

	t.Run("repeat resolution hits the cache", func(t *testing.T) {
		t.Parallel()
		acme := createTestTenant("acme", true)
		provider := &mockProvider{}
		provider.On("GetBySubdomain", mock.Anything, "acme").Return(acme, nil).Once()
		obs := &recordingObserver{}
		r := tenant.NewResolver(provider, environment.Development, tenant.WithObserver(obs))

		first, err := r.Resolve(ctx, req, devOptions)
		require.NoError(t, err)
		second, err := r.Resolve(ctx, req, devOptions)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		provider.AssertNumberOfCalls(t, "GetBySubdomain", 1)
		assert.Equal(t, 1, obs.hits)
		assert.Equal(t, 1, obs.misses)
		assert.Equal(t, 1, obs.lookups)
	})

	t.Run("negative result is cached", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		provider.On("GetBySubdomain", mock.Anything, "acme").Return(nil, nil).Once()
		r := tenant.NewResolver(provider, environment.Development)

		for range 3 {
			res, err := r.Resolve(ctx, req, devOptions)
			require.NoError(t, err)
			assert.Nil(t, res.Context)
		}
		provider.AssertNumberOfCalls(t, "GetBySubdomain", 1)
	})

	t.Run("inactive result is cached", func(t *testing.T) {
		t.Parallel()
		provider := &countingProvider{next: tenant.NewMemoryProvider(createTestTenant("acme", false))}
		r := tenant.NewResolver(provider, environment.Development)

		for range 3 {
			res, err := r.Resolve(ctx, req, devOptions)
			require.NoError(t, err)
			assert.Nil(t, res.Context)
		}
		assert.Equal(t, int32(1), provider.calls.Load())
	})

	t.Run("expired entry is looked up again", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		provider := &countingProvider{next: tenant.NewMemoryProvider(createTestTenant("acme", true))}
		cache := tenant.NewMemoryCache(tenant.WithTTL(time.Minute), tenant.WithClock(clock.Now))
		r := tenant.NewResolver(provider, environment.Development, tenant.WithCache(cache))

		_, err := r.Resolve(ctx, req, devOptions)
		require.NoError(t, err)
		clock.Advance(time.Minute + time.Millisecond)
		_, err = r.Resolve(ctx, req, devOptions)
		require.NoError(t, err)

		assert.Equal(t, int32(2), provider.calls.Load())
	})

	t.Run("cache disabled per request", func(t *testing.T) {
		t.Parallel()
		provider := &countingProvider{next: tenant.NewMemoryProvider(createTestTenant("acme", true))}
		r := tenant.NewResolver(provider, environment.Development)

		for range 2 {
			_, err := r.Resolve(ctx, req, tenant.Options{EnableFallback: true})
			require.NoError(t, err)
		}
		assert.Equal(t, int32(2), provider.calls.Load())
		assert.Equal(t, 0, r.Cache().Stats(ctx).Total)
	})

	t.Run("production bypasses an injected cache", func(t *testing.T) {
		t.Parallel()
		provider := &countingProvider{next: tenant.NewMemoryProvider(createTestTenant("acme", true))}
		cache := tenant.NewMemoryCache()
		r := tenant.NewResolver(provider, environment.Production, tenant.WithCache(cache))

		prodReq := tenant.Request{Host: "acme.example.com"}
		for range 2 {
			res, err := r.Resolve(ctx, prodReq, devOptions)
			require.NoError(t, err)
			require.NotNil(t, res.Context)
		}
		assert.Equal(t, int32(2), provider.calls.Load())
		assert.Equal(t, 0, cache.Stats(ctx).Total)
	})

	t.Run("production default cache is no-op", func(t *testing.T) {
		t.Parallel()
		r := tenant.NewResolver(tenant.NewMemoryProvider(), environment.Production)
		assert.IsType(t, tenant.NoOpCache{}, r.Cache())
	})
}

func TestResolver_LookupTimeout(t *testing.T) {
	t.Parallel()

	slow := tenant.ProviderFunc(func(ctx context.Context, _ string) (*tenant.Tenant, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := tenant.NewResolver(slow, environment.Production, tenant.WithLookupTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := r.Resolve(context.Background(), tenant.Request{Host: "acme.example.com"}, tenant.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, tenant.ErrLookupFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolver_Breaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	failing := tenant.ProviderFunc(func(context.Context, string) (*tenant.Tenant, error) {
		calls.Add(1)
		return nil, errors.New("database is down")
	})
	breaker := tenant.NewBreaker(2, 1, time.Hour)
	r := tenant.NewResolver(failing, environment.Production, tenant.WithBreaker(breaker))
	req := tenant.Request{Host: "acme.example.com"}

	for range 2 {
		_, err := r.Resolve(context.Background(), req, tenant.Options{})
		assert.ErrorIs(t, err, tenant.ErrLookupFailed)
	}
	assert.Equal(t, tenant.BreakerOpen, breaker.State())

	_, err := r.Resolve(context.Background(), req, tenant.Options{})
	assert.ErrorIs(t, err, tenant.ErrLookupUnavailable)
	assert.NotErrorIs(t, err, tenant.ErrLookupFailed)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolver_BreakerIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	acme := createTestTenant("acme", true)
	ctxAware := tenant.ProviderFunc(func(ctx context.Context, _ string) (*tenant.Tenant, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return acme, nil
	})
	breaker := tenant.NewBreaker(5, 0, 30*time.Second)
	r := tenant.NewResolver(ctxAware, environment.Production, tenant.WithBreaker(breaker))
	req := tenant.Request{Host: "acme.example.com"}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for range 10 {
		_, err := r.Resolve(cancelled, req, tenant.Options{})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, tenant.BreakerClosed, breaker.State())

	res, err := r.Resolve(context.Background(), req, tenant.Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Context)
	assert.Same(t, acme, res.Context.Tenant)
}

func TestResolver_BreakerCountsLookupTimeout(t *testing.T) {
	t.Parallel()

	slow := tenant.ProviderFunc(func(ctx context.Context, _ string) (*tenant.Tenant, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	breaker := tenant.NewBreaker(2, 0, time.Hour)
	r := tenant.NewResolver(slow, environment.Production,
		tenant.WithBreaker(breaker),
		tenant.WithLookupTimeout(10*time.Millisecond),
	)

	for range 2 {
		_, err := r.Resolve(context.Background(), tenant.Request{Host: "acme.example.com"}, tenant.Options{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, tenant.BreakerOpen, breaker.State())
}

func TestResolver_CoalescingSurvivesFirstCallerCancel(t *testing.T) {
	t.Parallel()

	acme := createTestTenant("acme", true)
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	blocking := tenant.ProviderFunc(func(ctx context.Context, _ string) (*tenant.Tenant, error) {
		entered <- struct{}{}
		select {
		case <-release:
			return acme, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	r := tenant.NewResolver(blocking, environment.Production, tenant.WithCoalescing())
	req := tenant.Request{Host: "acme.example.com"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(firstCtx, req, tenant.Options{})
		firstErr <- err
	}()
	<-entered

	type outcome struct {
		res tenant.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := r.Resolve(context.Background(), req, tenant.Options{})
		second <- outcome{res: res, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	err := <-firstErr
	assert.ErrorIs(t, err, tenant.ErrLookupFailed)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.res.Context)
	assert.Same(t, acme, got.res.Context.Tenant)
}

func TestResolver_Coalescing(t *testing.T) {
	t.Parallel()

	const callers = 10
	var calls atomic.Int32
	entered := make(chan struct{}, callers)
	release := make(chan struct{})
	acme := createTestTenant("acme", true)

	blocking := tenant.ProviderFunc(func(context.Context, string) (*tenant.Tenant, error) {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		return acme, nil
	})
	r := tenant.NewResolver(blocking, environment.Production, tenant.WithCoalescing())

	var wg sync.WaitGroup
	results := make([]tenant.Result, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), tenant.Request{Host: "acme.example.com"}, tenant.Options{})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Less(t, calls.Load(), int32(callers))
	for _, res := range results {
		require.NotNil(t, res.Context)
		assert.Same(t, acme, res.Context.Tenant)
	}
}

func TestResolver_ConcurrentResolve(t *testing.T) {
	t.Parallel()

	provider := tenant.NewMemoryProvider(createTestTenant("acme", true), createTestTenant("beta", true))
	r := tenant.NewResolver(provider, environment.Development)

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := "/acme"
			if i%2 == 0 {
				path = "/beta"
			}
			res, err := r.Resolve(context.Background(), tenant.Request{Host: "localhost", Path: path}, devOptions)
			assert.NoError(t, err)
			assert.NotNil(t, res.Context)
			if i%7 == 0 {
				r.Cache().Clear(context.Background())
			}
		}(i)
	}
	wg.Wait()
}
