// Package errs defines the error taxonomy shared by the task scheduler, the
// guarded executor and the terminal manager.
//
// Operations wrap one of the sentinels with context and callers classify
// with errors.Is. Code and HTTPStatus translate a wrapped error for the API
// layer.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrDuplicateID             = errors.New("duplicate id")
	ErrAlreadyRunning          = errors.New("already running")
	ErrSafetyViolation         = errors.New("safety violation")
	ErrInvalidWorkingDirectory = errors.New("invalid working directory")
	ErrSpawnFailure            = errors.New("failed to spawn process")
	ErrTimeout                 = errors.New("timed out")
	ErrIOFailure               = errors.New("i/o failure")
	ErrShellNotFound           = errors.New("shell not found")
	ErrInvalidArgument         = errors.New("invalid argument")
)

type class struct {
	err    error
	code   string
	status int
}

// Ordered so a chain wrapping several sentinels resolves to the most specific.
var classes = []class{
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrDuplicateID, "duplicate_id", http.StatusConflict},
	{ErrAlreadyRunning, "already_running", http.StatusConflict},
	{ErrSafetyViolation, "safety_violation", http.StatusForbidden},
	{ErrInvalidWorkingDirectory, "invalid_working_directory", http.StatusBadRequest},
	{ErrInvalidArgument, "invalid_argument", http.StatusBadRequest},
	{ErrShellNotFound, "shell_not_found", http.StatusBadRequest},
	{ErrTimeout, "timeout", http.StatusGatewayTimeout},
	{ErrSpawnFailure, "spawn_failure", http.StatusInternalServerError},
	{ErrIOFailure, "io_failure", http.StatusInternalServerError},
}

// Code returns a stable machine-readable code for err, or "internal" when err
// does not belong to the taxonomy.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// HTTPStatus maps err onto an HTTP status code
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}
