// Package tasks runs named shell commands in the background.
//
// A Scheduler owns the task registry. Run marks a task running and returns
// at once; the command executes under a system-wide concurrency gate while
// its stdout and stderr are captured line by line into capped buffers and
// streamed to clients as batched events. Cancel kills the command's whole
// process group.
//
// State machine:
//
//	pending -> running -> success | failed
//	pending | running -> cancelled
//
// success, failed and cancelled are final for a run. Running a finished task
// again starts a fresh run.
package tasks
