// Package server runs the gateway's HTTP server.
//
// The Manager owns the router and its common middleware (panic recovery,
// request ids, access logs, metrics, CORS). RouteProviders contribute their
// endpoints to the rate-limited /api group; /health, /status and the
// metrics endpoint are added by the Manager itself.
//
// Usage:
//
//	mgr := server.NewManager(cfg, logger)
//	mgr.AddProvider(api.NewHandlers(services, cfg, logger))
//	if err := mgr.Start(ctx); err != nil {
//		...
//	}
//	defer mgr.Shutdown(shutdownCtx)
package server
