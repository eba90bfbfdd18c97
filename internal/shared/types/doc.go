// Package types provides the wire types shared by the service registry, the
// providers and the API layer.
//
// Core Types:
//   - Service, Tool, Parameter: provider self-description
//   - Context: caller context passed to Execute
//   - Result: standard tool result
//
// Request Types:
//   - ExecuteRequest: HTTP tool execution
//   - WSMessage: websocket client messages
package types
