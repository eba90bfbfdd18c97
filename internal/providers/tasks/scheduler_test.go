//go:build !windows

package tasks

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shellcore/internal/events"
	"github.com/GriffinCanCode/shellcore/internal/events/eventstest"
	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
)

func newTestScheduler(t *testing.T, mutate ...func(*Config)) (*Scheduler, *eventstest.Recorder) {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	rec := eventstest.New()
	s := NewScheduler(cfg, rec)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, rec
}

func waitTask(t *testing.T, s *Scheduler, id string) Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	task, err := s.Wait(ctx, id)
	require.NoError(t, err)
	return task
}

func statuses(rec *eventstest.Recorder, id string) []Status {
	var out []Status
	for _, p := range rec.Topic(events.TopicTaskUpdated) {
		if task := p.(Task); task.ID == id {
			out = append(out, task.Status)
		}
	}
	return out
}

func joinedOutput(rec *eventstest.Recorder, topic, id string) string {
	var parts []string
	for _, p := range rec.Topic(topic) {
		if out := p.(Output); out.TaskID == id {
			parts = append(parts, out.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestCreateTask(t *testing.T) {
	s, _ := newTestScheduler(t)

	task, err := s.Create("t1", "build", "echo hi", nil)
	require.NoError(t, err)

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "build", task.Name)
	assert.Equal(t, StatusPending, task.Status)
	assert.Empty(t, task.Output)
	assert.Empty(t, task.Error)
	assert.Nil(t, task.StartTime)
	assert.Nil(t, task.EndTime)
	assert.NotNil(t, task.EnvVars)
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Create("t1", "", "echo hi", nil)
	require.NoError(t, err)

	_, err = s.Create("t1", "", "echo again", nil)
	assert.ErrorIs(t, err, errs.ErrDuplicateID)

	_, err = s.Create("", "", "echo hi", nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = s.Create("t2", "", "  ", nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	task, err := s.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", task.Name)
	assert.Equal(t, "echo hi", task.Command)
}

func TestRunEchoSucceeds(t *testing.T) {
	s, rec := newTestScheduler(t)

	_, err := s.Create("t1", "build", "echo hi", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))

	task := waitTask(t, s, "t1")
	assert.Equal(t, StatusSuccess, task.Status)
	assert.Contains(t, task.Output, "hi")
	require.NotNil(t, task.StartTime)
	require.NotNil(t, task.EndTime)
	assert.GreaterOrEqual(t, *task.EndTime, *task.StartTime)

	assert.Equal(t, []Status{StatusPending, StatusRunning, StatusSuccess}, statuses(rec, "t1"))
	assert.Equal(t, "hi", joinedOutput(rec, events.TopicTaskOutput, "t1"))
}

func TestRunUnknownTask(t *testing.T) {
	s, _ := newTestScheduler(t)

	assert.ErrorIs(t, s.Run(context.Background(), "missing"), errs.ErrNotFound)
}

func TestRunFailingCommand(t *testing.T) {
	s, rec := newTestScheduler(t)

	_, err := s.Create("t1", "", "echo out; echo oops >&2; exit 3", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))

	task := waitTask(t, s, "t1")
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "out", task.Output)
	assert.Equal(t, "oops", task.Error)
	assert.NotNil(t, task.EndTime)
	assert.Equal(t, "oops", joinedOutput(rec, events.TopicTaskError, "t1"))
}

func TestRunSpawnFailure(t *testing.T) {
	s, _ := newTestScheduler(t, func(c *Config) {
		c.Shell.Path = "/nonexistent/shell"
	})

	_, err := s.Create("t1", "", "echo hi", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))

	task := waitTask(t, s, "t1")
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "Error: ")
	assert.Contains(t, task.Error, errs.ErrSpawnFailure.Error())
}

func TestRunAlreadyRunning(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Create("t1", "", "sleep 5", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))

	assert.ErrorIs(t, s.Run(context.Background(), "t1"), errs.ErrAlreadyRunning)

	_, err = s.Cancel("t1")
	require.NoError(t, err)
}

func TestRunReturnsImmediately(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Create("t1", "", "sleep 2", nil)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.Run(context.Background(), "t1"))
	assert.Less(t, time.Since(start), time.Second)

	task, err := s.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, task.Status)
	assert.NotNil(t, task.StartTime)
	assert.Nil(t, task.EndTime)
}

func TestEnvironmentOverlay(t *testing.T) {
	t.Setenv("SHELLCORE_SECRET", "leak")
	t.Setenv("SHELLCORE_TEST_INHERITED", "kept")
	s, _ := newTestScheduler(t, func(c *Config) {
		c.EnvExclude = []string{"SHELLCORE_SECRET"}
	})

	_, err := s.Create("t1", "", `echo "[$GREETING][$SHELLCORE_SECRET][$SHELLCORE_TEST_INHERITED]"`,
		map[string]string{"GREETING": "hello"})
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))

	task := waitTask(t, s, "t1")
	assert.Equal(t, "[hello][][kept]", task.Output)
}

func TestCancelRunningTask(t *testing.T) {
	s, rec := newTestScheduler(t)

	_, err := s.Create("t1", "", "echo started; sleep 30", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))

	require.Eventually(t, func() bool { return s.Stats().Active == 1 }, 5*time.Second, 10*time.Millisecond)

	task, err := s.Cancel("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, task.Status)
	assert.NotNil(t, task.EndTime)

	start := time.Now()
	task = waitTask(t, s, "t1")
	assert.Less(t, time.Since(start), 3*time.Second, "process should be killed, not left sleeping")
	assert.Equal(t, StatusCancelled, task.Status)

	assert.Eventually(t, func() bool { return s.Stats().Active == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []Status{StatusPending, StatusRunning, StatusCancelled}, statuses(rec, "t1"))
}

func TestCancelPendingTask(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Create("t1", "", "echo hi", nil)
	require.NoError(t, err)

	task, err := s.Cancel("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, task.Status)
	assert.NotNil(t, task.EndTime)
}

func TestCancelFinishedTaskIsNoop(t *testing.T) {
	s, rec := newTestScheduler(t)

	_, err := s.Create("t1", "", "echo hi", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))
	done := waitTask(t, s, "t1")

	task, err := s.Cancel("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, task.Status)
	assert.Equal(t, done.EndTime, task.EndTime)
	assert.Equal(t, []Status{StatusPending, StatusRunning, StatusSuccess}, statuses(rec, "t1"))
}

func TestCancelUnknownTask(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Cancel("missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRerunFinishedTask(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Create("t1", "", "echo again", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))
	waitTask(t, s, "t1")

	require.NoError(t, s.Run(context.Background(), "t1"))
	task := waitTask(t, s, "t1")

	assert.Equal(t, StatusSuccess, task.Status)
	assert.Equal(t, "again", task.Output, "a new run starts with fresh buffers")
}

func TestRerunLeavesEveryTerminalState(t *testing.T) {
	t.Run("failed", func(t *testing.T) {
		s, rec := newTestScheduler(t)
		marker := t.TempDir() + "/ran"

		_, err := s.Create("t1", "", fmt.Sprintf("test -f %[1]s || { touch %[1]s; exit 1; }", marker), nil)
		require.NoError(t, err)
		require.NoError(t, s.Run(context.Background(), "t1"))
		require.Equal(t, StatusFailed, waitTask(t, s, "t1").Status)

		require.NoError(t, s.Run(context.Background(), "t1"))
		task := waitTask(t, s, "t1")
		assert.Equal(t, StatusSuccess, task.Status)
		assert.Empty(t, task.Error)
		assert.Equal(t,
			[]Status{StatusPending, StatusRunning, StatusFailed, StatusRunning, StatusSuccess},
			statuses(rec, "t1"))
	})

	t.Run("cancelled", func(t *testing.T) {
		s, rec := newTestScheduler(t)

		_, err := s.Create("t1", "", "echo back", nil)
		require.NoError(t, err)
		_, err = s.Cancel("t1")
		require.NoError(t, err)

		require.NoError(t, s.Run(context.Background(), "t1"))
		task := waitTask(t, s, "t1")
		assert.Equal(t, StatusSuccess, task.Status)
		assert.Equal(t, "back", task.Output)
		assert.Equal(t,
			[]Status{StatusPending, StatusCancelled, StatusRunning, StatusSuccess},
			statuses(rec, "t1"))
	})
}

func TestConcurrencyNeverExceedsLimit(t *testing.T) {
	s, _ := newTestScheduler(t)

	const n = 15
	for i := 0; i < n; i++ {
		_, err := s.Create(fmt.Sprintf("t%02d", i), "", "sleep 0.3", nil)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, s.RunAll(ctx))

	stats := s.Stats()
	assert.Equal(t, n, stats.Success)
	assert.LessOrEqual(t, stats.Peak, DefaultMaxConcurrent)
	assert.Equal(t, DefaultMaxConcurrent, stats.Capacity)
	assert.Equal(t, 0, stats.Active)
}

func TestSmallGateSerializes(t *testing.T) {
	s, _ := newTestScheduler(t, func(c *Config) { c.MaxConcurrent = 1 })

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Create(id, "", "sleep 0.1", nil)
		require.NoError(t, err)
	}
	require.NoError(t, s.RunAll(context.Background()))

	assert.Equal(t, 1, s.Stats().Peak)
}

func TestOutputIsCapped(t *testing.T) {
	s, _ := newTestScheduler(t, func(c *Config) { c.MaxOutputLines = 5 })

	_, err := s.Create("t1", "", "i=1; while [ $i -le 20 ]; do echo $i; i=$((i+1)); done", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))

	task := waitTask(t, s, "t1")
	assert.Equal(t, "16\n17\n18\n19\n20", task.Output)
}

func TestOutputIsBatched(t *testing.T) {
	s, rec := newTestScheduler(t, func(c *Config) { c.FlushInterval = time.Second })

	_, err := s.Create("t1", "", "echo one; echo two; echo three", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))
	waitTask(t, s, "t1")

	batches := rec.Topic(events.TopicTaskOutput)
	require.Len(t, batches, 1, "lines read within one interval are flushed together at EOF")
	assert.Equal(t, Output{TaskID: "t1", Text: "one\ntwo\nthree"}, batches[0])
}

func TestOutputFlushedPeriodically(t *testing.T) {
	s, rec := newTestScheduler(t)

	_, err := s.Create("t1", "", "echo first; sleep 0.5; echo second", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))

	require.Eventually(t, func() bool {
		return joinedOutput(rec, events.TopicTaskOutput, "t1") == "first"
	}, 2*time.Second, 10*time.Millisecond, "first line arrives before the process exits")

	waitTask(t, s, "t1")
	assert.Equal(t, "first\nsecond", joinedOutput(rec, events.TopicTaskOutput, "t1"))
}

func TestClearRemovesAndAborts(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Create("t1", "", "sleep 30", nil)
	require.NoError(t, err)
	_, err = s.Create("t2", "", "echo hi", nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "t1"))
	require.Eventually(t, func() bool { return s.Stats().Active == 1 }, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, s.Clear())
	assert.Empty(t, s.List())

	_, err = s.Get("t1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Eventually(t, func() bool { return s.Stats().Active == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestListSnapshotsAreIndependent(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Create("b", "", "echo b", map[string]string{"K": "v"})
	require.NoError(t, err)
	_, err = s.Create("a", "", "echo a", nil)
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	list[1].EnvVars["K"] = "mutated"
	task, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "v", task.EnvVars["K"])
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusSuccess, false},
		{StatusRunning, StatusSuccess, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, true},
		{StatusSuccess, StatusCancelled, false},
		{StatusFailed, StatusRunning, false},
		{StatusCancelled, StatusSuccess, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
}
