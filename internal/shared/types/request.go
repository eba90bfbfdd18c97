package types

// ExecuteRequest represents a service execution request
type ExecuteRequest struct {
	ToolID string                 `json:"tool_id" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// WSMessage is a message sent by a websocket client.
//
// Type is one of "subscribe", "unsubscribe", "execute", "terminal_input",
// "terminal_resize" or "ping".
type WSMessage struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"request_id,omitempty"`
	Topics    []string               `json:"topics,omitempty"`
	ToolID    string                 `json:"tool_id,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Data      string                 `json:"data,omitempty"`
	Cols      uint16                 `json:"cols,omitempty"`
	Rows      uint16                 `json:"rows,omitempty"`
}
