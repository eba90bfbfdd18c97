package terminal

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/types"
	"github.com/GriffinCanCode/shellcore/internal/shared/utils"
)

// Provider exposes the session manager as the "terminal" service
type Provider struct {
	manager *Manager
}

// NewProvider creates a new terminal provider
func NewProvider(manager *Manager) *Provider {
	return &Provider{manager: manager}
}

// Manager returns the underlying session manager
func (p *Provider) Manager() *Manager {
	return p.manager
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Interactive PTY sessions for local shells and ssh, with working directory tracking",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"ssh",
			"interactive",
			"resize",
			"cwd_tracking",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "terminal.open":
		return p.open(params)
	case "terminal.open_ssh":
		return p.openSSH(params)
	case "terminal.write":
		return p.write(params)
	case "terminal.resize":
		return p.resize(params)
	case "terminal.close":
		return p.close(params)
	case "terminal.current_dir":
		return p.currentDir(params)
	case "terminal.list_sessions":
		return p.listSessions()
	case "terminal.get_session":
		return p.getSession(params)
	default:
		return nil, fmt.Errorf("%w: unknown tool %s", errs.ErrNotFound, toolID)
	}
}

func sessionIDParam() types.Parameter {
	return types.Parameter{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "terminal.open",
			Name:        "Open Terminal",
			Description: "Start an interactive local shell in a new PTY; output streams on terminal-output-<session_id>",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "shell", Type: "string", Description: "Shell name (zsh, bash) or absolute path. Defaults to the first available shell", Required: false},
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.open_ssh",
			Name:        "Open SSH Terminal",
			Description: "Connect to a remote host over ssh in a new PTY",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "host", Type: "string", Description: "Remote host", Required: true},
				{Name: "port", Type: "number", Description: "Remote port. Defaults to 22", Required: false},
				{Name: "username", Type: "string", Description: "Remote user", Required: true},
				{Name: "password", Type: "string", Description: "Password typed at the remote prompt. Key-based authentication when omitted", Required: false},
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send input to a terminal session",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "input", Type: "string", Description: "Input to send to terminal", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change terminal dimensions",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "cols", Type: "number", Description: "New width in columns", Required: true},
				{Name: "rows", Type: "number", Description: "New height in rows", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.close",
			Name:        "Close Terminal",
			Description: "Terminate a terminal session",
			Parameters:  []types.Parameter{sessionIDParam()},
			Returns:     "success",
		},
		{
			ID:          "terminal.current_dir",
			Name:        "Current Directory",
			Description: "Last working directory reported by the session's shell. Advisory: it lags behind the shell",
			Parameters:  []types.Parameter{sessionIDParam()},
			Returns:     "path",
		},
		{
			ID:          "terminal.list_sessions",
			Name:        "List Terminal Sessions",
			Description: "List all registered terminal sessions",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
		{
			ID:          "terminal.get_session",
			Name:        "Get Session Info",
			Description: "Get information about a terminal session",
			Parameters:  []types.Parameter{sessionIDParam()},
			Returns:     "session_info",
		},
	}
}

func (p *Provider) open(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := utils.GetString(params, "session_id", true)
	if err != nil {
		return nil, err
	}
	shellKind, err := utils.GetString(params, "shell", false)
	if err != nil {
		return nil, err
	}
	if err := p.manager.Open(sessionID, shellKind); err != nil {
		return nil, err
	}
	return p.sessionResult(sessionID)
}

func (p *Provider) openSSH(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := utils.GetString(params, "session_id", true)
	if err != nil {
		return nil, err
	}
	host, err := utils.GetString(params, "host", true)
	if err != nil {
		return nil, err
	}
	username, err := utils.GetString(params, "username", true)
	if err != nil {
		return nil, err
	}
	password, err := utils.GetString(params, "password", false)
	if err != nil {
		return nil, err
	}
	port, err := utils.GetUint16(params, "port", defaultSSHPort)
	if err != nil {
		return nil, err
	}

	opts := SSHOptions{Host: host, Port: port, Username: username, Password: password}
	if err := p.manager.OpenSSH(sessionID, opts); err != nil {
		return nil, err
	}
	return p.sessionResult(sessionID)
}

func (p *Provider) write(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := utils.GetString(params, "session_id", true)
	if err != nil {
		return nil, err
	}
	input, err := utils.GetString(params, "input", false)
	if err != nil {
		return nil, err
	}
	if err := p.manager.Write(sessionID, []byte(input)); err != nil {
		return nil, err
	}
	return successResult(), nil
}

func (p *Provider) resize(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := utils.GetString(params, "session_id", true)
	if err != nil {
		return nil, err
	}
	if _, ok := params["cols"]; !ok {
		return nil, fmt.Errorf("%w: cols parameter required", errs.ErrInvalidArgument)
	}
	if _, ok := params["rows"]; !ok {
		return nil, fmt.Errorf("%w: rows parameter required", errs.ErrInvalidArgument)
	}
	cols, err := utils.GetUint16(params, "cols", 0)
	if err != nil {
		return nil, err
	}
	rows, err := utils.GetUint16(params, "rows", 0)
	if err != nil {
		return nil, err
	}
	if err := p.manager.Resize(sessionID, cols, rows); err != nil {
		return nil, err
	}
	return successResult(), nil
}

func (p *Provider) close(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := utils.GetString(params, "session_id", true)
	if err != nil {
		return nil, err
	}
	if err := p.manager.Close(sessionID); err != nil {
		return nil, err
	}
	return successResult(), nil
}

func (p *Provider) currentDir(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := utils.GetString(params, "session_id", true)
	if err != nil {
		return nil, err
	}
	dir, err := p.manager.CurrentDirectory(sessionID)
	if err != nil {
		return nil, err
	}
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"path": dir},
	}, nil
}

func (p *Provider) listSessions() (*types.Result, error) {
	sessions := p.manager.List()
	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"sessions": sessions,
			"count":    len(sessions),
		},
	}, nil
}

func (p *Provider) getSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := utils.GetString(params, "session_id", true)
	if err != nil {
		return nil, err
	}
	return p.sessionResult(sessionID)
}

func (p *Provider) sessionResult(sessionID string) (*types.Result, error) {
	info, err := p.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"session": info},
	}, nil
}

func successResult() *types.Result {
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true},
	}
}
