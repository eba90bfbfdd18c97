package tasks

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/id"
	"github.com/GriffinCanCode/shellcore/internal/shared/types"
	"github.com/GriffinCanCode/shellcore/internal/shared/utils"
)

// Provider exposes the scheduler as the "tasks" service
type Provider struct {
	scheduler *Scheduler
}

// NewProvider creates a new tasks provider
func NewProvider(scheduler *Scheduler) *Provider {
	return &Provider{scheduler: scheduler}
}

// Scheduler returns the underlying scheduler
func (p *Provider) Scheduler() *Scheduler {
	return p.scheduler
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "tasks",
		Name:        "Task Scheduler",
		Description: "Run named shell commands in the background with streamed, buffered output",
		Category:    types.CategoryTasks,
		Capabilities: []string{
			"background",
			"streaming",
			"cancellation",
			"bounded_concurrency",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "tasks.create":
		return p.create(params)
	case "tasks.run":
		return p.run(ctx, params)
	case "tasks.run_all":
		return p.runAll(ctx)
	case "tasks.get":
		return p.get(params)
	case "tasks.list":
		return p.list()
	case "tasks.cancel":
		return p.cancel(params)
	case "tasks.clear":
		return p.clear()
	case "tasks.stats":
		return p.stats()
	default:
		return nil, fmt.Errorf("%w: unknown tool %s", errs.ErrNotFound, toolID)
	}
}

func idParam() types.Parameter {
	return types.Parameter{Name: "id", Type: "string", Description: "Task ID", Required: true}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "tasks.create",
			Name:        "Create Task",
			Description: "Register a pending task",
			Parameters: []types.Parameter{
				{Name: "id", Type: "string", Description: "Task ID. Generated when omitted", Required: false},
				{Name: "name", Type: "string", Description: "Display name. Defaults to the ID", Required: false},
				{Name: "command", Type: "string", Description: "Shell command line", Required: true},
				{Name: "env_vars", Type: "object", Description: "Environment variables layered over the inherited environment", Required: false},
			},
			Returns: "task",
		},
		{
			ID:          "tasks.run",
			Name:        "Run Task",
			Description: "Start a task in the background; completion arrives as task-updated events",
			Parameters:  []types.Parameter{idParam()},
			Returns:     "task",
		},
		{
			ID:          "tasks.run_all",
			Name:        "Run All Tasks",
			Description: "Run every registered task and wait for all of them to finish",
			Parameters:  []types.Parameter{},
			Returns:     "tasks_list",
		},
		{
			ID:          "tasks.get",
			Name:        "Get Task",
			Description: "Get a snapshot of one task",
			Parameters:  []types.Parameter{idParam()},
			Returns:     "task",
		},
		{
			ID:          "tasks.list",
			Name:        "List Tasks",
			Description: "List snapshots of all tasks",
			Parameters:  []types.Parameter{},
			Returns:     "tasks_list",
		},
		{
			ID:          "tasks.cancel",
			Name:        "Cancel Task",
			Description: "Abort a pending or running task",
			Parameters:  []types.Parameter{idParam()},
			Returns:     "task",
		},
		{
			ID:          "tasks.clear",
			Name:        "Clear Tasks",
			Description: "Remove all tasks and abort their executions",
			Parameters:  []types.Parameter{},
			Returns:     "count",
		},
		{
			ID:          "tasks.stats",
			Name:        "Task Statistics",
			Description: "Counts by status and execution slot usage",
			Parameters:  []types.Parameter{},
			Returns:     "stats",
		},
	}
}

func (p *Provider) create(params map[string]interface{}) (*types.Result, error) {
	taskID, err := utils.GetString(params, "id", false)
	if err != nil {
		return nil, err
	}
	if taskID == "" {
		taskID = id.NewTaskID().String()
	}
	name, err := utils.GetString(params, "name", false)
	if err != nil {
		return nil, err
	}
	command, err := utils.GetString(params, "command", true)
	if err != nil {
		return nil, err
	}
	env, err := utils.GetStringMap(params, "env_vars")
	if err != nil {
		return nil, err
	}

	task, err := p.scheduler.Create(taskID, name, command, env)
	if err != nil {
		return nil, err
	}
	return taskResult(task), nil
}

func (p *Provider) run(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	taskID, err := utils.GetString(params, "id", true)
	if err != nil {
		return nil, err
	}
	if err := p.scheduler.Run(ctx, taskID); err != nil {
		return nil, err
	}
	task, err := p.scheduler.Get(taskID)
	if err != nil {
		return nil, err
	}
	return taskResult(task), nil
}

func (p *Provider) runAll(ctx context.Context) (*types.Result, error) {
	if err := p.scheduler.RunAll(ctx); err != nil {
		return nil, err
	}
	return p.list()
}

func (p *Provider) get(params map[string]interface{}) (*types.Result, error) {
	taskID, err := utils.GetString(params, "id", true)
	if err != nil {
		return nil, err
	}
	task, err := p.scheduler.Get(taskID)
	if err != nil {
		return nil, err
	}
	return taskResult(task), nil
}

func (p *Provider) list() (*types.Result, error) {
	tasks := p.scheduler.List()
	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"tasks": tasks,
			"count": len(tasks),
		},
	}, nil
}

func (p *Provider) cancel(params map[string]interface{}) (*types.Result, error) {
	taskID, err := utils.GetString(params, "id", true)
	if err != nil {
		return nil, err
	}
	task, err := p.scheduler.Cancel(taskID)
	if err != nil {
		return nil, err
	}
	return taskResult(task), nil
}

func (p *Provider) clear() (*types.Result, error) {
	removed := p.scheduler.Clear()
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"removed": removed},
	}, nil
}

func (p *Provider) stats() (*types.Result, error) {
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"stats": p.scheduler.Stats()},
	}, nil
}

func taskResult(task Task) *types.Result {
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"task": task},
	}
}
