// Package providers groups the service providers exposed by the server.
//
// Each provider implements service.Provider: Definition returns the service
// metadata and tool list, Execute runs one tool with map-shaped parameters.
//
// Available Providers:
//   - tasks: Background commands with bounded concurrency and output events
//   - executor: Guarded one-shot commands
//   - terminal: Interactive PTY sessions, local or over SSH
//
// Example Usage:
//
//	registry.Register(tasks.NewProvider(scheduler))
//	result, err := registry.Execute(ctx, "tasks.run", params, appCtx)
package providers
