// Package eventstest provides an in-memory events.Emitter for tests.
package eventstest

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/shellcore/internal/events"
)

// Recorder stores every emitted event in order
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// New creates an empty recorder
func New() *Recorder {
	return &Recorder{}
}

// Emit records the event
func (r *Recorder) Emit(topic string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events.Event{Topic: topic, Payload: payload, Time: time.Now()})
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Topic returns the payloads recorded on topic, in order
func (r *Recorder) Topic(topic string) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interface{}
	for _, ev := range r.events {
		if ev.Topic == topic {
			out = append(out, ev.Payload)
		}
	}
	return out
}

// Reset forgets recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
