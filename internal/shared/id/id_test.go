package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	assert.NotEqual(t, gen.Generate().String(), gen.Generate().String())
	assert.Len(t, gen.GenerateString(), 26)
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{TaskPrefix, TerminalPrefix, RequestPrefix} {
		t.Run(prefix, func(t *testing.T) {
			got := gen.GenerateWithPrefix(prefix)

			parts := strings.Split(got, "_")
			require.Len(t, parts, 2)
			assert.Equal(t, prefix, parts[0])
			assert.True(t, IsValid(parts[1]))
		})
	}
}

func TestTypedIDs(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewTaskID().String(), "task_"))
	assert.True(t, strings.HasPrefix(NewTerminalID().String(), "term_"))
	assert.True(t, strings.HasPrefix(NewRequestID().String(), "req_"))
	assert.True(t, strings.HasPrefix(NewSpanID().String(), "span_"))
	assert.True(t, strings.HasPrefix(NewEventID().String(), "evt_"))
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	taskID := NewTaskID()

	ts, err := Timestamp(taskID.String())
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	_, err = Timestamp("task_not-a-ulid")
	assert.Error(t, err)
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers, perWorker = 8, 200

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s := gen.GenerateString()
				mu.Lock()
				seen[s] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
