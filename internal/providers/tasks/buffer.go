package tasks

import (
	"strings"
	"sync"
)

// DefaultMaxLines is the per-stream line cap
const DefaultMaxLines = 10000

// OutputBuffer keeps the most recent lines of one stream. Appending to a
// full buffer evicts the oldest line.
type OutputBuffer struct {
	mu    sync.Mutex
	lines []string
	head  int // index of the oldest line
	size  int
}

// NewOutputBuffer creates a buffer holding at most capacity lines
func NewOutputBuffer(capacity int) *OutputBuffer {
	if capacity <= 0 {
		capacity = DefaultMaxLines
	}
	return &OutputBuffer{lines: make([]string, capacity)}
}

// Append adds a line, evicting the oldest one when full
func (b *OutputBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.lines)
	if b.size < capacity {
		b.lines[(b.head+b.size)%capacity] = line
		b.size++
		return
	}
	b.lines[b.head] = line
	b.head = (b.head + 1) % capacity
}

// Len returns the number of stored lines
func (b *OutputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the line capacity
func (b *OutputBuffer) Cap() int {
	return len(b.lines)
}

// Lines returns the stored lines, oldest first
func (b *OutputBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.lines[(b.head+i)%len(b.lines)]
	}
	return out
}

// String joins the stored lines with "\n"
func (b *OutputBuffer) String() string {
	return strings.Join(b.Lines(), "\n")
}
