// Package utils provides input validation and tool-parameter extraction.
//
// Validation:
//   - String length and null-byte checks
//   - Task and session ID format
//   - Tool ID format ("service.tool")
//   - SSH host and username argument safety
//
// Params:
//   - Typed accessors over the map[string]interface{} decoded from JSON
//     (numbers arrive as float64)
package utils
