//go:build !windows

package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
)

func TestProviderDefinition(t *testing.T) {
	def := NewProvider(New(DefaultPolicy())).Definition()

	assert.Equal(t, "executor", def.ID)
	ids := make([]string, 0, len(def.Tools))
	for _, tool := range def.Tools {
		ids = append(ids, tool.ID)
	}
	assert.ElementsMatch(t, []string{
		"executor.execute", "executor.simple",
		"executor.working_directory", "executor.home_directory",
	}, ids)
}

func TestProviderExecute(t *testing.T) {
	p := NewProvider(New(DefaultPolicy()))
	dir := t.TempDir()

	res, err := p.Execute(context.Background(), "executor.execute", map[string]interface{}{
		"command":     "echo hi",
		"working_dir": dir,
	}, nil)
	require.NoError(t, err)
	result := res.Data["result"].(*CommandResult)
	assert.Equal(t, "hi\n", result.Stdout)
	assert.True(t, result.Success)
}

func TestProviderPolicyParams(t *testing.T) {
	p := NewProvider(New(DefaultPolicy()))
	dir := t.TempDir()
	ctx := context.Background()

	_, err := p.Execute(ctx, "executor.execute", map[string]interface{}{
		"command":     "sudo -n true",
		"working_dir": dir,
	}, nil)
	assert.ErrorIs(t, err, errs.ErrSafetyViolation)

	policy, err := p.policyFrom(map[string]interface{}{
		"timeout_secs":     2.0,
		"allow_privileged": true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, policy.Timeout)
	assert.True(t, policy.AllowPrivileged)
	assert.True(t, policy.EnableSafetyCheck)

	_, err = p.policyFrom(map[string]interface{}{"timeout_secs": 0.0})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	for _, secs := range []float64{1e10, 1e19, 1e300} {
		_, err = p.policyFrom(map[string]interface{}{"timeout_secs": secs})
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, "timeout_secs=%g", secs)
	}
	policy, err = p.policyFrom(map[string]interface{}{"timeout_secs": float64(maxTimeoutSecs)})
	require.NoError(t, err)
	assert.Positive(t, policy.Timeout)

	start := time.Now()
	_, err = p.Execute(ctx, "executor.execute", map[string]interface{}{
		"command":      "sleep 5",
		"working_dir":  dir,
		"timeout_secs": 1.0,
	}, nil)
	assert.ErrorIs(t, err, errs.ErrTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestProviderSimpleAndDirectories(t *testing.T) {
	p := NewProvider(New(DefaultPolicy()))
	ctx := context.Background()
	home := t.TempDir()
	t.Setenv("HOME", home)

	res, err := p.Execute(ctx, "executor.simple", map[string]interface{}{"command": "echo simple"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "simple\n", res.Data["output"])

	res, err = p.Execute(ctx, "executor.home_directory", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, home, res.Data["path"])

	res, err = p.Execute(ctx, "executor.working_directory", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Data["path"])

	_, err = p.Execute(ctx, "executor.nope", nil, nil)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = p.Execute(ctx, "executor.execute", map[string]interface{}{"command": "ls"}, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
