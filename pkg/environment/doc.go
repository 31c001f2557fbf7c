// Package environment models the deployment mode the gateway runs in.
//
// The mode is parsed once at startup into an Environment value and passed
// explicitly to every component whose behaviour differs between development
// and production: the tenant extractor (path-based routing on localhost), the
// tenant cache (disabled in production) and the request gate (diagnostic
// redirects and headers). Nothing in the request path reads the process
// environment directly.
//
// The value can also travel on a request context via Middleware, which lets
// the logger tag every record with the current mode:
//
//	env, err := environment.Parse(os.Getenv("APP_ENV"))
//	if err != nil {
//		return err
//	}
//	r.Use(environment.Middleware(env))
//
//	log := logger.New(logger.WithContextExtractors(environment.LoggerExtractor()))
package environment
