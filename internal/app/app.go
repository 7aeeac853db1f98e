package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/config"
	"github.com/GriffinCanCode/windowctx/internal/monitoring"
	"github.com/GriffinCanCode/windowctx/internal/page"
	"github.com/GriffinCanCode/windowctx/internal/sandbox"
	"github.com/GriffinCanCode/windowctx/internal/window"
)

// App wires the window runtime from configuration: one sandbox host, the
// window manager over it, and the page loader.
type App struct {
	Host     *sandbox.Host
	Windows  *window.Manager
	Loader   *page.Loader
	Metrics  *monitoring.Metrics
	Registry *prometheus.Registry

	logger *zap.Logger
}

// New builds the runtime. Metrics go to a private registry that also
// carries the Go and process collectors.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	opts := []sandbox.Option{
		sandbox.WithLogger(logger),
		sandbox.WithMetrics(metrics),
	}
	if cfg.Sandbox.PrimitivesFile != "" {
		catalog, err := sandbox.LoadCatalog(cfg.Sandbox.PrimitivesFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded primitive catalog",
			zap.String("path", cfg.Sandbox.PrimitivesFile),
			zap.Int("primitives", catalog.Len()))
		opts = append(opts, sandbox.WithCatalog(catalog))
	}
	host := sandbox.NewHost(SandboxConfig(cfg), opts...)

	windows, err := window.NewManager(host, window.Config{
		MaxWindows: cfg.Sandbox.MaxWindows,
		PoolSize:   cfg.Sandbox.PoolSize,
		Console:    cfg.Sandbox.Console,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create window manager: %w", err)
	}

	loader := page.NewLoader(page.Config{
		Timeout:        cfg.Loader.Timeout,
		Retries:        cfg.Loader.Retries,
		UserAgent:      cfg.Loader.UserAgent,
		MaxScriptBytes: cfg.Loader.MaxScriptBytes,
	}, logger, metrics)

	return &App{
		Host:     host,
		Windows:  windows,
		Loader:   loader,
		Metrics:  metrics,
		Registry: registry,
		logger:   logger,
	}, nil
}

// SandboxConfig maps configuration onto window context settings
func SandboxConfig(cfg *config.Config) sandbox.Config {
	return sandbox.Config{
		MaxCallStackSize: cfg.Sandbox.MaxCallStack,
		Timeout:          cfg.Sandbox.Timeout,
		DefaultFilename:  cfg.Sandbox.DefaultFilename,
	}
}

// Close closes every window
func (a *App) Close() {
	a.Windows.CloseAll()
	a.logger.Debug("Window runtime closed")
}
