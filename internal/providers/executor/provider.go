package executor

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/shell"
	"github.com/GriffinCanCode/shellcore/internal/shared/types"
	"github.com/GriffinCanCode/shellcore/internal/shared/utils"
)

// Provider exposes the executor as the "executor" service
type Provider struct {
	executor *Executor
}

// NewProvider creates a new executor provider
func NewProvider(executor *Executor) *Provider {
	return &Provider{executor: executor}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "executor",
		Name:        "Guarded Command Executor",
		Description: "Run one-shot shell commands behind a denylist, a privilege check and a timeout",
		Category:    types.CategoryExecutor,
		Capabilities: []string{
			"shell",
			"safety_policy",
			"timeout",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "executor.execute":
		return p.execute(ctx, params)
	case "executor.simple":
		return p.simple(ctx, params)
	case "executor.working_directory":
		return p.workingDirectory()
	case "executor.home_directory":
		return p.homeDirectory()
	default:
		return nil, fmt.Errorf("%w: unknown tool %s", errs.ErrNotFound, toolID)
	}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "executor.execute",
			Name:        "Execute Command",
			Description: "Screen and run a command, returning its captured output and exit code",
			Parameters: []types.Parameter{
				{Name: "command", Type: "string", Description: "Shell command line", Required: true},
				{Name: "working_dir", Type: "string", Description: "Directory to run in; ~ expands to the home directory", Required: true},
				{Name: "timeout_secs", Type: "number", Description: "Timeout in seconds. Defaults to 300", Required: false},
				{Name: "enable_safety_check", Type: "boolean", Description: "Enforce the privilege escalation check. Defaults to true", Required: false},
				{Name: "allow_privileged", Type: "boolean", Description: "Allow sudo, su, doas and pkexec. Defaults to false", Required: false},
			},
			Returns: "command_result",
		},
		{
			ID:          "executor.simple",
			Name:        "Execute Simple Command",
			Description: "Run a command with the default policy and return stdout followed by stderr",
			Parameters: []types.Parameter{
				{Name: "command", Type: "string", Description: "Shell command line", Required: true},
				{Name: "working_dir", Type: "string", Description: "Directory to run in. Defaults to the server's working directory", Required: false},
			},
			Returns: "output",
		},
		{
			ID:          "executor.working_directory",
			Name:        "Working Directory",
			Description: "Get the server process's working directory",
			Parameters:  []types.Parameter{},
			Returns:     "path",
		},
		{
			ID:          "executor.home_directory",
			Name:        "Home Directory",
			Description: "Get the user's home directory",
			Parameters:  []types.Parameter{},
			Returns:     "path",
		},
	}
}

func (p *Provider) execute(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	command, err := utils.GetString(params, "command", true)
	if err != nil {
		return nil, err
	}
	workingDir, err := utils.GetString(params, "working_dir", true)
	if err != nil {
		return nil, err
	}
	policy, err := p.policyFrom(params)
	if err != nil {
		return nil, err
	}

	result, err := p.executor.Execute(ctx, command, workingDir, policy)
	if err != nil {
		return nil, err
	}
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"result": result},
	}, nil
}

// maxTimeoutSecs is the largest timeout a time.Duration can hold
const maxTimeoutSecs = math.MaxInt64 / int64(time.Second)

func (p *Provider) policyFrom(params map[string]interface{}) (Policy, error) {
	policy := p.executor.Defaults()

	secs, err := utils.GetInt(params, "timeout_secs", int(policy.Timeout/time.Second))
	if err != nil {
		return Policy{}, err
	}
	if secs <= 0 {
		return Policy{}, fmt.Errorf("%w: timeout_secs must be positive", errs.ErrInvalidArgument)
	}
	if int64(secs) > maxTimeoutSecs {
		return Policy{}, fmt.Errorf("%w: timeout_secs must not exceed %d", errs.ErrInvalidArgument, maxTimeoutSecs)
	}
	policy.Timeout = time.Duration(secs) * time.Second

	if policy.EnableSafetyCheck, err = utils.GetBool(params, "enable_safety_check", policy.EnableSafetyCheck); err != nil {
		return Policy{}, err
	}
	if policy.AllowPrivileged, err = utils.GetBool(params, "allow_privileged", policy.AllowPrivileged); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

func (p *Provider) simple(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	command, err := utils.GetString(params, "command", true)
	if err != nil {
		return nil, err
	}
	workingDir, err := utils.GetString(params, "working_dir", false)
	if err != nil {
		return nil, err
	}

	output, err := p.executor.ExecuteSimple(ctx, command, workingDir)
	if err != nil {
		return nil, err
	}
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"output": output},
	}, nil
}

func (p *Provider) workingDirectory() (*types.Result, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIOFailure, err)
	}
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"path": wd},
	}, nil
}

func (p *Provider) homeDirectory() (*types.Result, error) {
	home := shell.HomeDir()
	if home == "" {
		return nil, fmt.Errorf("%w: home directory is not set", errs.ErrNotFound)
	}
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"path": home},
	}, nil
}
