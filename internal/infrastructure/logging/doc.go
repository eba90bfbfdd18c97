// Package logging builds the process-wide zap logger.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Components take a *zap.Logger and name it after themselves
// (logger.Named("tasks")); OrNop lets them accept nil in tests.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Named("terminal").Warn("write failed", zap.Error(err))
package logging
