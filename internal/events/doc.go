// Package events is the one-way channel from background work to clients.
//
// Producers (task runs, PTY readers) call Emit and never block: each
// subscriber owns a bounded queue and an event that does not fit is dropped
// for that subscriber only. Topics are plain strings; a subscription pattern
// ending in "*" matches by prefix, "*" alone matches every topic and an
// empty pattern set matches none.
//
// Topics:
//   - task-updated: full task snapshot on every state change
//   - task-output: batched stdout lines of one task
//   - task-error: batched stderr lines of one task
//   - terminal-output-<session id>: raw PTY bytes
package events
