// Package service provides the registry that dispatches tool calls to the
// tasks, executor and terminal providers.
//
// Tool ids have the form "<service>.<tool>". The registry routes a call by
// its service prefix, times it, and records the outcome by error code.
//
// Discovery ranks services against a free-text query by keyword, capability
// and category matches.
//
// Example Usage:
//
//	registry := service.NewRegistry(logger, metrics)
//	registry.Register(tasks.NewProvider(scheduler))
//	services := registry.Discover("run a background build", 5)
//	result, err := registry.Execute(ctx, "tasks.run", params, appCtx)
package service
