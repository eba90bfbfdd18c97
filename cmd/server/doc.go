// Package main is the entry point for the shellcore server.
//
// The server exposes three services over HTTP and WebSocket:
//   - tasks: background shell commands with bounded concurrency and
//     batched output events
//   - executor: guarded one-shot commands with a denylist, privilege
//     check and timeout
//   - terminal: interactive PTY sessions, local or over SSH
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - An optional .env file, or the file named by ENV_FILE
//   - CLI flags override the environment
//
// Usage:
//
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
