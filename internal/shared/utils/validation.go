package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
)

// Size and length limits
const (
	MaxMessageSize = 1 * 1024 * 1024 // websocket frame limit
	MaxIDLength    = 128
	MaxNameLength  = 256
	MaxCommandSize = 64 * 1024
	MaxHostLength  = 253
)

var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores and dots
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// ToolIDPattern requires the service.tool format
	ToolIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.[a-zA-Z0-9._-]+$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if value == "" {
		if required {
			return fmt.Errorf("%w: %s is required", errs.ErrInvalidArgument, fieldName)
		}
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%w: %s must be at least %d characters", errs.ErrInvalidArgument, fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%w: %s must not exceed %d characters", errs.ErrInvalidArgument, fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%w: %s contains invalid characters", errs.ErrInvalidArgument, fieldName)
	}

	return nil
}

// ValidateID validates a task or session identifier
func ValidateID(id, fieldName string) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, true); err != nil {
		return err
	}
	if !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %s contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)", errs.ErrInvalidArgument, fieldName)
	}
	return nil
}

// ValidateToolID validates a "service.tool" identifier
func ValidateToolID(toolID string) error {
	if err := ValidateString(toolID, "tool_id", 3, MaxIDLength, true); err != nil {
		return err
	}
	if !ToolIDPattern.MatchString(toolID) {
		return fmt.Errorf("%w: tool_id must have the form service.tool", errs.ErrInvalidArgument)
	}
	return nil
}

// ValidateCommand validates a shell command line
func ValidateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("%w: command is required", errs.ErrInvalidArgument)
	}
	if len(command) > MaxCommandSize {
		return fmt.Errorf("%w: command exceeds %d bytes", errs.ErrInvalidArgument, MaxCommandSize)
	}
	if strings.Contains(command, "\x00") {
		return fmt.Errorf("%w: command contains invalid characters", errs.ErrInvalidArgument)
	}
	return nil
}

// ValidateSSHArg rejects values that ssh would parse as an option or that
// carry whitespace or control characters.
func ValidateSSHArg(value, fieldName string) error {
	if err := ValidateString(value, fieldName, 1, MaxHostLength, true); err != nil {
		return err
	}
	if strings.HasPrefix(value, "-") {
		return fmt.Errorf("%w: %s must not start with '-'", errs.ErrInvalidArgument, fieldName)
	}
	for _, r := range value {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: %s contains whitespace or control characters", errs.ErrInvalidArgument, fieldName)
		}
	}
	return nil
}
