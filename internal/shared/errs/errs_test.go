package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"nil", nil, "", http.StatusOK},
		{"not found", fmt.Errorf("%w: task %q", ErrNotFound, "t1"), "not_found", http.StatusNotFound},
		{"duplicate", fmt.Errorf("%w: t1", ErrDuplicateID), "duplicate_id", http.StatusConflict},
		{"safety", fmt.Errorf("%w: blocked", ErrSafetyViolation), "safety_violation", http.StatusForbidden},
		{"workdir", ErrInvalidWorkingDirectory, "invalid_working_directory", http.StatusBadRequest},
		{"timeout", fmt.Errorf("command %w after 1s", ErrTimeout), "timeout", http.StatusGatewayTimeout},
		{"spawn", ErrSpawnFailure, "spawn_failure", http.StatusInternalServerError},
		{"unknown", errors.New("boom"), "internal", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Code(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNestedWrapping(t *testing.T) {
	inner := fmt.Errorf("%w: /nope", ErrInvalidWorkingDirectory)
	outer := fmt.Errorf("execute: %w", inner)

	assert.ErrorIs(t, outer, ErrInvalidWorkingDirectory)
	assert.Equal(t, "invalid_working_directory", Code(outer))
}
