// Package logger builds the gateway's *slog.Logger.
//
// New creates a text or JSON handler, applies static attributes and wraps the
// result in a decorator that pulls request-scoped values (request id, tenant,
// environment) out of the context on every record. Attribute helpers keep key
// names consistent across packages:
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Development, "satizap-gateway"),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	log.ErrorContext(ctx, "tenant lookup failed", logger.Tenant("acme"), logger.Error(err))
package logger
