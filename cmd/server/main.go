// Command server runs the Satizap tenant gateway.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/satizap/gateway/internal/config"
	"github.com/satizap/gateway/internal/metrics"
	"github.com/satizap/gateway/internal/server"
	"github.com/satizap/gateway/internal/store"
	"github.com/satizap/gateway/pkg/environment"
	"github.com/satizap/gateway/pkg/gate"
	"github.com/satizap/gateway/pkg/httpserver"
	"github.com/satizap/gateway/pkg/logger"
	"github.com/satizap/gateway/pkg/pg"
	"github.com/satizap/gateway/pkg/rbac"
	"github.com/satizap/gateway/pkg/redis"
	"github.com/satizap/gateway/pkg/requestid"
	"github.com/satizap/gateway/pkg/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}

	env := cfg.Environment()
	log := logger.New(
		logger.WithEnvironment(env, cfg.ServiceName),
		logger.WithContextExtractors(tenant.LoggerExtractor(), requestid.LoggerExtractor()),
	)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, env, log); err != nil {
		log.Error("gateway stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, env environment.Environment, log *slog.Logger) (err error) {
	var (
		checks  []httpserver.Check
		closers []func()
	)
	closeAll := sync.OnceFunc(func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	})
	defer func() {
		if err != nil {
			closeAll()
		}
	}()

	provider, closeProvider, err := newProvider(ctx, cfg, log, &checks)
	if err != nil {
		return err
	}
	closers = append(closers, closeProvider)

	cache, closeCache, err := newCache(ctx, cfg, env, log, &checks)
	if err != nil {
		return err
	}
	closers = append(closers, closeCache)

	m := metrics.New()
	if err := m.RegisterCacheStats(cache); err != nil {
		return err
	}

	resolverOpts := []tenant.ResolverOption{
		tenant.WithCache(cache),
		tenant.WithLookupTimeout(cfg.Tenant.LookupTimeout),
		tenant.WithBreaker(tenant.NewBreaker(cfg.Tenant.BreakerThreshold, 0, cfg.Tenant.BreakerRecovery)),
		tenant.WithObserver(m),
		tenant.WithLogger(log),
		tenant.WithTracer(otel.Tracer("github.com/satizap/gateway/pkg/tenant")),
	}
	if cfg.Tenant.CoalesceLookups {
		resolverOpts = append(resolverOpts, tenant.WithCoalescing())
	}
	resolver := tenant.NewResolver(provider, env, resolverOpts...)

	gateOpts := []gate.Option{
		gate.WithFailOpen(cfg.Tenant.FailOpen),
		gate.WithLogger(log),
		gate.WithObserver(m),
	}
	accessControl := cfg.SessionSecret != ""
	if accessControl {
		codec, err := rbac.NewCodec(cfg.SessionSecret, rbac.WithTokenTTL(cfg.SessionTTL))
		if err != nil {
			return err
		}
		gateOpts = append(gateOpts, gate.WithAccessControl(rbac.NewPolicy(codec)))
	} else {
		log.WarnContext(ctx, "SESSION_SECRET not set, admin access control disabled", logger.Component("rbac"))
	}

	srv := server.New(gate.New(resolver, env, gateOpts...), cache, env,
		server.WithLogger(log),
		server.WithMetrics(m),
		server.WithReadinessChecks(2*time.Second, checks...),
		server.WithAccessControl(accessControl),
		server.WithServiceName(cfg.ServiceName),
	)

	httpSrv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(closeAll),
	)
	return httpSrv.Run(ctx, srv.Handler())
}

// newProvider returns the association source: Postgres when configured,
// otherwise an in-memory set seeded from DEV_TENANTS.
func newProvider(ctx context.Context, cfg config.Config, log *slog.Logger, checks *[]httpserver.Check) (tenant.Provider, func(), error) {
	if !cfg.PG.Enabled() {
		log.WarnContext(ctx, "PG_CONN_URL not set, serving associations from memory",
			logger.Component("store"), slog.Any("tenants", cfg.DevTenants))
		return tenant.NewMemoryProvider(devTenants(ctx, cfg.DevTenants, log)...), func() {}, nil
	}

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := pg.Migrate(ctx, pool, store.Migrations, store.MigrationsDir, cfg.PG, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	*checks = append(*checks, httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)})
	return store.NewAssociationStore(pool), pool.Close, nil
}

// newCache returns the tenant cache for TENANT_CACHE_DRIVER.
func newCache(ctx context.Context, cfg config.Config, env environment.Environment, log *slog.Logger, checks *[]httpserver.Check) (tenant.Cache, func(), error) {
	if cfg.Tenant.CacheDriver != config.CacheDriverRedis {
		return tenant.NewCacheForEnvironment(env, tenant.WithTTL(cfg.Tenant.CacheTTL)), func() {}, nil
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	*checks = append(*checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
	cache := tenant.NewRedisCache(client,
		tenant.WithRedisPrefix(cfg.Redis.KeyPrefix),
		tenant.WithRedisTTL(cfg.Tenant.CacheTTL),
		tenant.WithRedisLogger(log),
	)
	return cache, func() {
		if err := client.Close(); err != nil {
			log.Error("failed to close redis client", logger.Error(err))
		}
	}, nil
}

func devTenants(ctx context.Context, slugs []string, log *slog.Logger) []*tenant.Tenant {
	now := time.Now().UTC()
	out := make([]*tenant.Tenant, 0, len(slugs))
	for _, raw := range slugs {
		slug := strings.ToLower(strings.TrimSpace(raw))
		if v := tenant.ValidateSlug(slug); !v.Valid {
			log.WarnContext(ctx, "skipping dev tenant", logger.Tenant(slug), slog.String("reason", v.Reason))
			continue
		}
		out = append(out, &tenant.Tenant{
			ID:        uuid.New(),
			Name:      slug,
			Subdomain: slug,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return out
}
