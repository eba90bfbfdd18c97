// Package server wires configuration, providers and the HTTP surface into
// one runnable process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellcore/internal/api/http"
	"github.com/GriffinCanCode/shellcore/internal/api/middleware"
	"github.com/GriffinCanCode/shellcore/internal/api/ws"
	"github.com/GriffinCanCode/shellcore/internal/events"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/config"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shellcore/internal/providers/executor"
	"github.com/GriffinCanCode/shellcore/internal/providers/tasks"
	"github.com/GriffinCanCode/shellcore/internal/providers/terminal"
	"github.com/GriffinCanCode/shellcore/internal/service"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	http      *nethttp.Server
	registry  *service.Registry
	scheduler *tasks.Scheduler
	terminals *terminal.Manager
	bus       *events.Bus
	tracer    *tracing.Tracer
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing shellcore server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("shellcore", logger.Logger)
	bus := events.NewBus(cfg.Events.Buffer, logger.Named("events"), metrics)

	schedCfg := tasks.DefaultConfig()
	schedCfg.MaxConcurrent = cfg.Scheduler.MaxConcurrent
	schedCfg.MaxOutputLines = cfg.Scheduler.MaxOutputLines
	schedCfg.FlushInterval = cfg.Scheduler.FlushInterval
	schedCfg.EnvExclude = cfg.Terminal.EnvExclude
	scheduler := tasks.NewScheduler(schedCfg, bus,
		tasks.WithLogger(logger.Named("tasks")),
		tasks.WithMetrics(metrics),
		tasks.WithTracer(tracer),
	)

	exec := executor.New(executor.Policy{
		Timeout:           cfg.Executor.Timeout,
		EnableSafetyCheck: cfg.Executor.SafetyCheck,
		AllowPrivileged:   cfg.Executor.AllowPrivileged,
	},
		executor.WithLogger(logger.Named("executor")),
		executor.WithMetrics(metrics),
		executor.WithTracer(tracer),
	)

	terminals := terminal.NewManager(terminal.Config{
		Shell:        cfg.Terminal.Shell,
		ScriptDir:    cfg.Terminal.ScriptDir,
		StartupDelay: cfg.Terminal.StartupDelay,
		ClearOnStart: cfg.Terminal.ClearOnStart,
		EnvExclude:   cfg.Terminal.EnvExclude,
	}, bus,
		terminal.WithLogger(logger.Named("terminal")),
		terminal.WithMetrics(metrics),
	)

	registry := service.NewRegistry(logger.Named("registry"), metrics)
	for _, p := range []service.Provider{
		tasks.NewProvider(scheduler),
		executor.NewProvider(exec),
		terminal.NewProvider(terminals),
	} {
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("failed to register %s provider: %w", p.Definition().ID, err)
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RequestLogger(logger.Named("http")))
	corsCfg := middleware.DefaultCORSConfig().WithOrigins(cfg.CORS.AllowedOrigins)
	router.Use(middleware.CORS(corsCfg))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := http.NewHandlers(registry, scheduler, terminals, bus, metrics)
	wsHandler := ws.NewHandler(bus, registry, terminals, metrics, logger.Named("ws"), corsCfg.AllowsOrigin)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	router.GET("/services", handlers.ListServices)
	router.POST("/services/discover", handlers.DiscoverServices)
	router.POST("/services/execute", handlers.ExecuteService)

	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)

	logger.Info("Server initialized successfully", zap.Int("services", len(registry.List(nil))))

	return &Server{
		router: router,
		http: &nethttp.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry:  registry,
		scheduler: scheduler,
		terminals: terminals,
		bus:       bus,
		tracer:    tracer,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

// Handler returns the configured router
func (s *Server) Handler() nethttp.Handler {
	return s.router
}

// Run serves HTTP until Shutdown is called
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes terminals, tasks and
// background workers in that order
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errList []error
	if err := s.http.Shutdown(ctx); err != nil {
		errList = append(errList, fmt.Errorf("http: %w", err))
	}
	if err := s.terminals.Shutdown(ctx); err != nil {
		errList = append(errList, fmt.Errorf("terminals: %w", err))
	}
	if err := s.scheduler.Shutdown(ctx); err != nil {
		errList = append(errList, fmt.Errorf("scheduler: %w", err))
	}
	s.bus.Close()
	s.tracer.Close()
	s.metrics.Close()

	if err := errors.Join(errList...); err != nil {
		s.logger.Error("Shutdown incomplete", zap.Error(err))
		s.logger.Sync()
		return err
	}
	s.logger.Info("Shutdown complete")
	s.logger.Sync()
	return nil
}
