package executor

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
)

// DefaultTimeout bounds a guarded command
const DefaultTimeout = 300 * time.Second

// DangerousPatterns are rejected anywhere in a command line, ignoring case
var DangerousPatterns = []string{
	"rm -rf /",
	"rm -rf /*",
	"rm -rf ~",
	"rm -rf ~/*",
	"mkfs",
	"dd if=",
	"> /dev/sda",
	"> /dev/hda",
	":(){ :|:& };:",
	"chmod -R 777 /",
	"chown -R",
}

// PrivilegedCommands escalate privileges when they lead a command line
var PrivilegedCommands = []string{"sudo", "su", "doas", "pkexec"}

// Policy controls how a command is screened and bounded
type Policy struct {
	Timeout           time.Duration
	EnableSafetyCheck bool
	AllowPrivileged   bool
}

// DefaultPolicy returns the policy used when the caller supplies none
func DefaultPolicy() Policy {
	return Policy{
		Timeout:           DefaultTimeout,
		EnableSafetyCheck: true,
		AllowPrivileged:   false,
	}
}

// Violation describes why a command was rejected
type Violation struct {
	Reason  string // "denylist" or "privilege"
	Pattern string
}

func (v *Violation) Error() string {
	if v.Reason == "privilege" {
		return fmt.Sprintf("%s: privileged command %q is not allowed", errs.ErrSafetyViolation, v.Pattern)
	}
	return fmt.Sprintf("%s: command matches blocked pattern %q", errs.ErrSafetyViolation, v.Pattern)
}

// Unwrap makes errors.Is(v, errs.ErrSafetyViolation) hold
func (v *Violation) Unwrap() error {
	return errs.ErrSafetyViolation
}

// Check screens command against policy
func Check(command string, policy Policy) error {
	lower := strings.ToLower(command)
	for _, pattern := range DangerousPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return &Violation{Reason: "denylist", Pattern: pattern}
		}
	}

	if policy.EnableSafetyCheck && !policy.AllowPrivileged {
		if program := leadingProgram(command); program != "" {
			for _, priv := range PrivilegedCommands {
				if program == priv {
					return &Violation{Reason: "privilege", Pattern: priv}
				}
			}
		}
	}
	return nil
}

// leadingProgram returns the lower-cased base name of the first word of command
func leadingProgram(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(filepath.Base(fields[0]))
}
