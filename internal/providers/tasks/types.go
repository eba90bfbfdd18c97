package tasks

import "time"

// Status is the lifecycle state of a task
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether s ends a run. Within a run nothing leaves a
// terminal state; only a new Run restarts the task at StatusRunning.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is a legal transition within a run.
// Restarting a finished task is a new run and is not checked here.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		return to == StatusSuccess || to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}

// Task is a snapshot of a registered command. Timestamps are Unix seconds.
type Task struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Command   string            `json:"command"`
	Status    Status            `json:"status"`
	Output    string            `json:"output"`
	Error     string            `json:"error"`
	StartTime *int64            `json:"start_time"`
	EndTime   *int64            `json:"end_time"`
	EnvVars   map[string]string `json:"env_vars"`
}

func (t Task) clone() Task {
	c := t
	if t.EnvVars != nil {
		c.EnvVars = make(map[string]string, len(t.EnvVars))
		for k, v := range t.EnvVars {
			c.EnvVars[k] = v
		}
	}
	return c
}

// Output is the payload of task-output and task-error events: the lines
// captured since the previous flush, joined with "\n".
type Output struct {
	TaskID string `json:"task_id"`
	Text   string `json:"text"`
}

// Stats summarizes the registry and the execution gate
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`

	// Active counts commands currently holding a slot; Peak is its
	// high-water mark since the scheduler started.
	Active   int `json:"active_executions"`
	Peak     int `json:"peak_executions"`
	Capacity int `json:"capacity"`
}

func unixNow() *int64 {
	ts := time.Now().Unix()
	return &ts
}
