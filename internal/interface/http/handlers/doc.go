// Package handlers holds HTTP pieces that do not depend on the API server:
// dependency health checks and small standalone middleware.
//
// # Health Checks
//
// Checks run in parallel, each under its own timeout. Required checks gate
// readiness; optional ones only mark the service unhealthy:
//
//	checker := handlers.NewCompositeHealthChecker(version)
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddOptionalCheck("cache", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//
// The results cache is optional because queries fall back to computing
// results when it is unavailable.
//
// # Middleware
//
//	r.Use(handlers.SecurityHeaders)
//	r.Use(handlers.RequestSizeLimit(4 << 20))
//	r.With(handlers.CacheControl(5 * time.Minute)).Get("/api/v1/points", h)
package handlers
