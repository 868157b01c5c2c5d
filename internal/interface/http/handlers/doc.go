// Package handlers contains HTTP handler interfaces and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - API key authentication middleware
//   - Reusable middleware components
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(conn))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("catalog", handlers.NewCatalogCheck(catalogClient))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//		// degraded
//	}
package handlers
