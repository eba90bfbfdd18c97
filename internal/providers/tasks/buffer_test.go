package tasks

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputBufferEvictsOldest(t *testing.T) {
	buf := NewOutputBuffer(DefaultMaxLines)

	for i := 0; i <= DefaultMaxLines; i++ {
		buf.Append(fmt.Sprintf("line %d", i))
	}

	lines := buf.Lines()
	require.Len(t, lines, DefaultMaxLines)
	assert.Equal(t, "line 1", lines[0])
	assert.Equal(t, fmt.Sprintf("line %d", DefaultMaxLines), lines[len(lines)-1])
	assert.NotContains(t, lines, "line 0")
}

func TestOutputBufferOrderAndString(t *testing.T) {
	buf := NewOutputBuffer(3)
	assert.Equal(t, "", buf.String())

	buf.Append("a")
	buf.Append("b")
	assert.Equal(t, "a\nb", buf.String())

	buf.Append("c")
	buf.Append("d")
	buf.Append("e")
	assert.Equal(t, []string{"c", "d", "e"}, buf.Lines())
	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, 3, buf.Cap())
}

func TestOutputBufferDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultMaxLines, NewOutputBuffer(0).Cap())
}

func TestOutputBufferNeverExceedsCapacity(t *testing.T) {
	buf := NewOutputBuffer(50)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				buf.Append(fmt.Sprintf("%d-%d", w, i))
				assert.LessOrEqual(t, buf.Len(), 50)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 50, buf.Len())
}
