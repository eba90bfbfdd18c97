package monitoring

import "time"

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a service tool call
func (m *Metrics) RecordServiceCall(service, tool, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ServiceCalls.WithLabelValues(service, tool, status).Inc()
	m.ServiceDuration.WithLabelValues(service, tool).Observe(duration.Seconds())
}

// SetTasksActive sets the number of executing tasks
func (m *Metrics) SetTasksActive(count int) {
	if m == nil {
		return
	}
	m.TasksActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveTasks = int64(count)
	m.mu.Unlock()
}

// RecordTaskFinished records the end of a task run
func (m *Metrics) RecordTaskFinished(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TasksFinished.WithLabelValues(status).Inc()
	m.TaskDuration.Observe(duration.Seconds())
}

// AddTaskLines counts captured output lines for a stream
func (m *Metrics) AddTaskLines(stream string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.TaskLines.WithLabelValues(stream).Add(float64(n))
}

// RecordExecution records a guarded execution outcome
// ("success", "failure", "timeout", "rejected", "error")
func (m *Metrics) RecordExecution(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(outcome).Inc()
	m.ExecutionDuration.Observe(duration.Seconds())
}

// RecordSafetyViolation records a policy rejection
func (m *Metrics) RecordSafetyViolation(reason string) {
	if m == nil {
		return
	}
	m.SafetyViolations.WithLabelValues(reason).Inc()
}

// SetTerminalsActive sets the number of open PTY sessions
func (m *Metrics) SetTerminalsActive(count int) {
	if m == nil {
		return
	}
	m.TerminalsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// AddTerminalBytes counts bytes read from a PTY
func (m *Metrics) AddTerminalBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TerminalBytes.Add(float64(n))
}

// RecordEventPublished counts a published event by kind
func (m *Metrics) RecordEventPublished(kind string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(kind).Inc()
}

// RecordEventDropped counts an event dropped for a slow subscriber
func (m *Metrics) RecordEventDropped(kind string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(kind).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}
