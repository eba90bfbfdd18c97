// Package terminal manages interactive pseudo-terminal sessions.
//
// A Manager owns a registry of live PTY sessions keyed by caller-supplied
// ids. Each session runs either a local interactive shell or an ssh client
// and streams its raw output bytes to an events.Emitter on the
// "terminal-output-<id>" topic.
//
// Local shells report their working directory through OSC 7 escape
// sequences. For zsh and bash a hook is written into the shell right after
// it starts; other shells are tracked only if they emit OSC 7 themselves.
// CurrentDirectory is therefore an advisory cache: it lags behind the shell
// and goes stale when the shell stops reporting.
//
// Password-authenticated ssh sessions are driven by a short-lived expect
// script written with owner-only permissions and removed when the session
// closes.
//
// Tools:
//   - terminal.open: Start a local interactive shell
//   - terminal.open_ssh: Connect to a remote host over ssh
//   - terminal.write: Send input to a session
//   - terminal.resize: Resize a session's PTY
//   - terminal.close: Terminate a session
//   - terminal.current_dir: Last directory reported by the shell
//   - terminal.list_sessions: List registered sessions
//   - terminal.get_session: Describe one session
package terminal
