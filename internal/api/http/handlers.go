package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/shellcore/internal/events"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shellcore/internal/providers/tasks"
	"github.com/GriffinCanCode/shellcore/internal/providers/terminal"
	"github.com/GriffinCanCode/shellcore/internal/service"
	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/id"
	"github.com/GriffinCanCode/shellcore/internal/shared/types"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// maxQueryLength bounds discovery queries
const maxQueryLength = 1000

// Handlers contains all HTTP handlers
type Handlers struct {
	registry  *service.Registry
	scheduler *tasks.Scheduler
	terminals *terminal.Manager
	bus       *events.Bus
	metrics   *monitoring.Metrics
}

// NewHandlers creates a new handler set. Any dependency except the registry
// may be nil; its section is then omitted from health output.
func NewHandlers(
	registry *service.Registry,
	scheduler *tasks.Scheduler,
	terminals *terminal.Manager,
	bus *events.Bus,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		registry:  registry,
		scheduler: scheduler,
		terminals: terminals,
		bus:       bus,
		metrics:   metrics,
	}
}

// DiscoverRequest is the body of POST /services/discover
type DiscoverRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// Root handles liveness checks
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "shellcore",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":           "healthy",
		"service_registry": h.registry.Stats(),
	}
	if h.scheduler != nil {
		body["tasks"] = h.scheduler.Stats()
	}
	if h.terminals != nil {
		body["terminals"] = gin.H{"sessions": len(h.terminals.List())}
	}
	if h.bus != nil {
		body["events"] = gin.H{"subscribers": h.bus.Subscribers()}
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.GetSnapshot()
	}
	c.JSON(http.StatusOK, body)
}

// ListServices lists registered services, optionally filtered by ?category=
func (h *Handlers) ListServices(c *gin.Context) {
	var category *types.Category
	if raw := c.Query("category"); raw != "" {
		cat := types.Category(raw)
		if !cat.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "unknown category: " + raw,
				"code":  errs.Code(errs.ErrInvalidArgument),
			})
			return
		}
		category = &cat
	}

	c.JSON(http.StatusOK, gin.H{
		"services": h.registry.List(category),
		"stats":    h.registry.Stats(),
	})
}

// DiscoverServices ranks services against a free-text query
func (h *Handlers) DiscoverServices(c *gin.Context) {
	var req DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errs.Code(errs.ErrInvalidArgument)})
		return
	}
	if len(req.Query) > maxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query too long", "code": errs.Code(errs.ErrInvalidArgument)})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	c.JSON(http.StatusOK, gin.H{
		"query":    req.Query,
		"services": h.registry.Discover(req.Query, req.Limit),
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errs.Code(errs.ErrInvalidArgument)})
		return
	}

	requestID := string(tracing.GetTraceID(c.Request.Context()))
	if requestID == "" {
		requestID = id.NewRequestID().String()
	}
	appCtx := &types.Context{RequestID: &requestID}

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MetricsJSON returns a summary of the collected metrics
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}

// writeError renders a failed tool call as a Result with a status derived
// from the error class.
func writeError(c *gin.Context, err error) {
	msg := err.Error()
	c.JSON(errs.HTTPStatus(err), types.Result{
		Success: false,
		Error:   &msg,
		Code:    errs.Code(err),
	})
}
