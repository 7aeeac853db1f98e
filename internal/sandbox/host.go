package sandbox

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/monitoring"
)

// Host owns what its window contexts share: the primitive catalog, logging,
// metrics and the stack of entered scopes. A host and its contexts are
// driven from one goroutine at a time.
type Host struct {
	config  Config
	catalog *Catalog
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu     sync.Mutex
	scopes []*Context
}

// Option configures a Host
type Option func(*Host)

// WithCatalog replaces the default primitive catalog
func WithCatalog(catalog *Catalog) Option {
	return func(h *Host) {
		h.catalog = catalog
	}
}

// WithLogger sets the logger used by the host and its contexts
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithMetrics enables metrics collection
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(h *Host) {
		h.metrics = metrics
	}
}

// NewHost creates a host for window contexts
func NewHost(config Config, opts ...Option) *Host {
	if config.DefaultFilename == "" {
		config.DefaultFilename = DefaultFilename
	}

	h := &Host{config: config}
	for _, opt := range opts {
		opt(h)
	}
	if h.catalog == nil {
		h.catalog = DefaultCatalog()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// Config returns the host configuration
func (h *Host) Config() Config {
	return h.config
}

// Catalog returns the primitive catalog contexts are bootstrapped from
func (h *Host) Catalog() *Catalog {
	return h.catalog
}

// Active returns the context whose scope is currently entered, or nil.
func (h *Host) Active() *Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.scopes) == 0 {
		return nil
	}
	return h.scopes[len(h.scopes)-1]
}

// Depth returns the number of entered scopes.
func (h *Host) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.scopes)
}

// enter pushes c onto the scope stack. The returned func pops it again and
// must run on every exit path.
func (h *Host) enter(c *Context) (exit func()) {
	h.mu.Lock()
	frame := len(h.scopes)
	h.scopes = append(h.scopes, c)
	h.mu.Unlock()
	c.depth++

	return func() {
		c.depth--
		h.mu.Lock()
		defer h.mu.Unlock()

		if frame >= len(h.scopes) || h.scopes[frame] != c || frame != len(h.scopes)-1 {
			h.logger.Error("Scope stack corrupted",
				zap.String("window_id", c.id.String()),
				zap.Int("frame", frame),
				zap.Int("depth", len(h.scopes)),
				zap.Error(ErrScopeMismatch))
		}
		if frame < len(h.scopes) {
			clear(h.scopes[frame:])
			h.scopes = h.scopes[:frame]
		}
	}
}
