// Package http provides the REST endpoints of the shellcore server.
//
// Endpoints:
//   - Health: / and /health
//   - Services: GET /services, POST /services/discover, POST /services/execute
//   - Metrics: /metrics (Prometheus text), /metrics/json
//
// Tool failures are mapped onto HTTP status codes by error class and carry a
// stable "code" field alongside the message.
//
// Example Usage:
//
//	handlers := http.NewHandlers(registry, scheduler, terminals, bus, metrics)
//	router.GET("/health", handlers.Health)
//	router.POST("/services/execute", handlers.ExecuteService)
package http
