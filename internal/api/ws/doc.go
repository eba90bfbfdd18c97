// Package ws provides the /stream WebSocket endpoint.
//
// A connection is an events.Bus subscription plus a command channel. Task
// events are forwarded by default; terminal output is forwarded once the
// client subscribes to its topic. Browser connections are accepted only from
// the server's own host or an allowed origin.
//
// Message Types (Client → Server):
//   - subscribe / unsubscribe: Change topic patterns ("task-*", "terminal-output-<id>")
//   - execute: Call a service tool, answered by a result or error frame
//   - terminal_input: Write data to a terminal session
//   - terminal_resize: Resize a terminal session
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established
//   - event: A bus event with its topic and payload
//   - subscribed: Current topic patterns after a change
//   - result: Tool call result
//   - error: Failure with a stable code
//   - pong: Reply to ping
//
// Example Usage:
//
//	handler := ws.NewHandler(bus, registry, terminals, metrics, logger, corsCfg.AllowsOrigin)
//	router.GET("/stream", handler.HandleConnection)
package ws
