package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellcore/internal/events"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellcore/internal/providers/terminal"
	"github.com/GriffinCanCode/shellcore/internal/service"
	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/id"
	"github.com/GriffinCanCode/shellcore/internal/shared/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// DefaultTopics are forwarded to every new connection
var DefaultTopics = []string{"task-*"}

// Handler manages WebSocket connections
type Handler struct {
	bus       *events.Bus
	registry  *service.Registry
	terminals *terminal.Manager
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	upgrader  websocket.Upgrader

	allowOrigin func(origin string) bool
}

// NewHandler creates a new WebSocket handler. terminals may be nil.
//
// Browsers may only connect from the request's own host or from an origin
// accepted by allowOrigin; a nil allowOrigin accepts no other origin.
// Clients that send no Origin header are not browsers and are accepted.
func NewHandler(bus *events.Bus, registry *service.Registry, terminals *terminal.Manager, metrics *monitoring.Metrics, logger *zap.Logger, allowOrigin func(origin string) bool) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		bus:         bus,
		registry:    registry,
		terminals:   terminals,
		metrics:     metrics,
		logger:      logger,
		allowOrigin: allowOrigin,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if h.allowOrigin != nil && h.allowOrigin(origin) {
		return true
	}
	h.logger.Warn("websocket origin rejected", zap.String("origin", origin))
	return false
}

// client is one live connection
type client struct {
	h      *Handler
	conn   *websocket.Conn
	sub    *events.Subscription
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	wg     sync.WaitGroup
}

// frame is a server to client message
type frame map[string]interface{}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &client{
		h:      h,
		conn:   conn,
		sub:    h.bus.Subscribe(DefaultTopics...),
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		logger: h.logger.With(zap.String("remote", conn.RemoteAddr().String())),
	}
	h.metrics.IncWSConnections()
	cl.logger.Debug("websocket connected")

	cl.enqueue(frame{
		"type":            "system",
		"message":         "connected",
		"subscription_id": cl.sub.ID,
		"topics":          DefaultTopics,
	})

	done := make(chan struct{})
	go func() {
		cl.writePump()
		close(done)
	}()
	cl.readPump()

	cancel()
	cl.sub.Close()
	cl.wg.Wait()
	<-done
	conn.Close()
	h.metrics.DecWSConnections()
	cl.logger.Debug("websocket disconnected")
}

// readPump handles client messages until the connection fails
func (cl *client) readPump() {
	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg types.WSMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			cl.sendError("", errs.ErrInvalidArgument, "malformed message")
			continue
		}
		cl.h.metrics.RecordWSMessage("in", msg.Type)
		cl.handle(msg)
	}
}

func (cl *client) handle(msg types.WSMessage) {
	switch msg.Type {
	case "subscribe":
		cl.sub.Add(msg.Topics...)
		cl.enqueue(frame{"type": "subscribed", "request_id": msg.RequestID, "topics": msg.Topics})
	case "unsubscribe":
		cl.sub.Remove(msg.Topics...)
		cl.enqueue(frame{"type": "unsubscribed", "request_id": msg.RequestID, "topics": msg.Topics})
	case "execute":
		// tool calls such as tasks.run_all may take a while
		cl.wg.Add(1)
		go func() {
			defer cl.wg.Done()
			cl.execute(msg)
		}()
	case "terminal_input":
		if cl.h.terminals == nil {
			cl.sendError(msg.RequestID, errs.ErrNotFound, "terminal service unavailable")
			return
		}
		cl.h.terminals.Write(msg.SessionID, []byte(msg.Data))
	case "terminal_resize":
		if cl.h.terminals == nil {
			cl.sendError(msg.RequestID, errs.ErrNotFound, "terminal service unavailable")
			return
		}
		if err := cl.h.terminals.Resize(msg.SessionID, msg.Cols, msg.Rows); err != nil {
			cl.sendError(msg.RequestID, err, err.Error())
		}
	case "ping":
		cl.enqueue(frame{"type": "pong", "request_id": msg.RequestID, "timestamp": time.Now().Unix()})
	default:
		cl.sendError(msg.RequestID, errs.ErrInvalidArgument, "unknown message type: "+msg.Type)
	}
}

func (cl *client) execute(msg types.WSMessage) {
	requestID := msg.RequestID
	if requestID == "" {
		requestID = id.NewRequestID().String()
	}
	appCtx := &types.Context{RequestID: &requestID}

	result, err := cl.h.registry.Execute(cl.ctx, msg.ToolID, msg.Params, appCtx)
	if err != nil {
		cl.sendError(requestID, err, err.Error())
		return
	}
	cl.enqueue(frame{
		"type":       "result",
		"request_id": requestID,
		"tool_id":    msg.ToolID,
		"result":     result,
	})
}

func (cl *client) sendError(requestID string, err error, message string) {
	cl.enqueue(frame{
		"type":       "error",
		"request_id": requestID,
		"code":       errs.Code(err),
		"message":    message,
		"timestamp":  time.Now().Unix(),
	})
}

// enqueue queues a frame for the writer; it gives up once the connection ends
func (cl *client) enqueue(f frame) {
	data, err := sonic.Marshal(f)
	if err != nil {
		cl.logger.Error("failed to encode websocket frame", zap.Error(err))
		return
	}
	select {
	case cl.send <- data:
	case <-cl.ctx.Done():
	}
}

// writePump is the connection's only writer
func (cl *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-cl.send:
			if err := cl.write(websocket.TextMessage, data); err != nil {
				cl.fail(err)
				return
			}
		case ev, ok := <-cl.sub.C:
			if !ok {
				// bus closed
				cl.cancel()
				cl.conn.Close()
				return
			}
			data, err := sonic.Marshal(frame{
				"type":    "event",
				"id":      ev.ID,
				"topic":   ev.Topic,
				"payload": ev.Payload,
				"time":    ev.Time,
			})
			if err != nil {
				cl.logger.Error("failed to encode event", zap.String("topic", ev.Topic), zap.Error(err))
				continue
			}
			if err := cl.write(websocket.TextMessage, data); err != nil {
				cl.fail(err)
				return
			}
			cl.h.metrics.RecordWSMessage("out", events.Kind(ev.Topic))
		case <-ticker.C:
			if err := cl.write(websocket.PingMessage, nil); err != nil {
				cl.fail(err)
				return
			}
		case <-cl.ctx.Done():
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			cl.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (cl *client) write(messageType int, data []byte) error {
	cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteMessage(messageType, data)
}

// fail stops the read side after a write error
func (cl *client) fail(err error) {
	if !errors.Is(err, websocket.ErrCloseSent) {
		cl.logger.Debug("websocket write failed", zap.Error(err))
	}
	cl.cancel()
	cl.conn.Close()
}
