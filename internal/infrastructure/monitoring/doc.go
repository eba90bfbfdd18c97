// Package monitoring exposes Prometheus metrics for the HTTP API, the tool
// registry, the task scheduler, the guarded executor, terminal sessions and
// the event bus.
//
// Metrics live on a private registry served by Handler at /metrics. All
// recording methods tolerate a nil receiver.
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	defer metrics.Close()
//	router.Use(monitoring.Middleware(metrics))
//	router.GET("/metrics", gin.WrapH(metrics.Handler()))
package monitoring
