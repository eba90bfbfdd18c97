package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellcore/internal/shared/id"
)

const DefaultBuffer = 256

// Bus fans events out to subscribers
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	closed  bool
	buffer  int
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewBus creates a bus whose subscribers queue up to buffer events each
func NewBus(buffer int, logger *zap.Logger, metrics *monitoring.Metrics) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:    make(map[string]*Subscription),
		buffer:  buffer,
		logger:  logger,
		metrics: metrics,
	}
}

// Emit publishes payload on topic without blocking
func (b *Bus) Emit(topic string, payload interface{}) {
	ev := Event{
		ID:      id.NewEventID().String(),
		Topic:   topic,
		Payload: payload,
		Time:    time.Now(),
	}
	kind := Kind(topic)
	b.metrics.RecordEventPublished(kind)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if !sub.Matches(topic) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.metrics.RecordEventDropped(kind)
			b.logger.Debug("subscriber queue full, dropping event",
				zap.String("subscriber", sub.ID),
				zap.String("topic", topic))
		}
	}
}

// Subscribe registers a subscriber for the given topic patterns.
// A subscription without patterns receives nothing; "*" selects every topic.
func (b *Bus) Subscribe(patterns ...string) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		ch:     make(chan Event, b.buffer),
		bus:    b,
		topics: make(map[string]struct{}),
	}
	sub.C = sub.ch
	sub.Add(patterns...)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub.ID] = sub
	return sub
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.ID]; !ok {
		return
	}
	delete(b.subs, sub.ID)
	close(sub.ch)
}

// Close ends every subscription; later events are discarded
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for key, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, key)
	}
}

// Subscription receives events matching its topic patterns on C.
// C is closed by Close or when the bus shuts down.
type Subscription struct {
	ID string
	C  <-chan Event

	ch     chan Event
	bus    *Bus
	mu     sync.RWMutex
	topics map[string]struct{}
}

// Add adds topic patterns
func (s *Subscription) Add(patterns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patterns {
		if p != "" {
			s.topics[p] = struct{}{}
		}
	}
}

// Remove removes topic patterns
func (s *Subscription) Remove(patterns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patterns {
		delete(s.topics, p)
	}
}

// Matches reports whether topic is selected by the subscription
func (s *Subscription) Matches(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := range s.topics {
		if Match(p, topic) {
			return true
		}
	}
	return false
}

// Close unregisters the subscription
func (s *Subscription) Close() {
	s.bus.remove(s)
}
