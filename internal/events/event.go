package events

import (
	"strings"
	"time"
)

const (
	TopicTaskUpdated = "task-updated"
	TopicTaskOutput  = "task-output"
	TopicTaskError   = "task-error"

	TerminalOutputPrefix = "terminal-output-"
)

// Event is a single notification
type Event struct {
	ID      string      `json:"id"`
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
	Time    time.Time   `json:"time"`
}

// Emitter accepts events from producers
type Emitter interface {
	Emit(topic string, payload interface{})
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(topic string, payload interface{})

// Emit calls f
func (f EmitterFunc) Emit(topic string, payload interface{}) { f(topic, payload) }

// Discard drops every event
var Discard Emitter = EmitterFunc(func(string, interface{}) {})

// TerminalTopic returns the output topic of a terminal session
func TerminalTopic(sessionID string) string {
	return TerminalOutputPrefix + sessionID
}

// Kind collapses per-session topics into one label for metrics
func Kind(topic string) string {
	if strings.HasPrefix(topic, TerminalOutputPrefix) {
		return "terminal-output"
	}
	return topic
}

// Match reports whether topic is selected by pattern
func Match(pattern, topic string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(topic, prefix)
	}
	return pattern == topic
}
