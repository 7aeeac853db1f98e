package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/windowctx/internal/http"
	"github.com/GriffinCanCode/windowctx/internal/api/middleware"
	"github.com/GriffinCanCode/windowctx/internal/app"
	"github.com/GriffinCanCode/windowctx/internal/config"
	"github.com/GriffinCanCode/windowctx/internal/logging"
	"github.com/GriffinCanCode/windowctx/internal/monitoring"
	"github.com/GriffinCanCode/windowctx/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	runtime *app.App
	logger  *logging.Logger
	config  *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing window server",
		zap.String("port", cfg.Server.Port),
		zap.Duration("timeout", cfg.Sandbox.Timeout),
		zap.Int("max_windows", cfg.Sandbox.MaxWindows),
	)

	runtime, err := app.New(cfg, logger.Logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Window runtime initialized",
		zap.Int("primitives", runtime.Host.Catalog().Len()),
		zap.Int("pool_size", cfg.Sandbox.PoolSize),
	)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Trace(logger.Logger))
	router.Use(monitoring.Middleware(runtime.Metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
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

	// Create handlers
	handlers := apihttp.NewHandlers(runtime.Windows, runtime.Loader, logger.Logger)
	wsHandler := ws.NewHandler(runtime.Windows, logger.Logger)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(runtime.Registry, promhttp.HandlerOpts{})))

	// Window management
	router.POST("/windows", handlers.CreateWindow)
	router.GET("/windows", handlers.ListWindows)
	router.GET("/windows/:id", handlers.GetWindow)
	router.DELETE("/windows/:id", handlers.CloseWindow)

	// Scripts
	router.POST("/windows/:id/evaluate", handlers.Evaluate)
	router.GET("/windows/:id/globals", handlers.Globals)
	router.POST("/windows/:id/load", handlers.LoadPage)

	// WebSocket
	router.GET("/windows/:id/ws", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully")

	s := &Server{
		router:  router,
		runtime: runtime,
		logger:  logger,
		config:  cfg,
	}
	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler, gzip-compressing responses for clients
// that accept it
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// Run starts the HTTP server and blocks until it stops. A graceful
// shutdown returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops accepting requests, waits for in-flight ones until ctx is
// done, then closes every window
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to drain HTTP server", zap.Error(err))
	}

	s.runtime.Close()
	s.logger.Info("Closed all windows")

	// Sync logger before exit
	s.logger.Sync()

	return err
}
