// Package executor runs one-shot shell commands under a safety policy.
//
// Every command is screened before it is spawned:
//   - a case-insensitive denylist of destructive patterns, always enforced
//   - a privilege-escalation check on the leading program (sudo, su, doas,
//     pkexec), enforced when safety checking is on and privilege is not
//     allowed
//
// Commands run through the platform shell in their own process group and are
// killed as a group when the timeout fires.
package executor
