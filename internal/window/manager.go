package window

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/monitoring"
	"github.com/GriffinCanCode/windowctx/internal/sandbox"
	"github.com/GriffinCanCode/windowctx/internal/shared/id"
)

var (
	ErrWindowNotFound = errors.New("window not found")
	ErrTooManyWindows = errors.New("too many windows")
	ErrManagerClosed  = errors.New("window manager is closed")
)

// Config defines window manager limits
type Config struct {
	MaxWindows int  // Open windows allowed at once, 0 means unlimited
	PoolSize   int  // Pre-bootstrapped contexts, 0 disables the pool
	Console    bool // Install a capturing console on new windows
}

// Manager owns named windows on one host. All engine access goes through
// the manager's lock because the host's scope stack is not goroutine-safe.
type Manager struct {
	host    *sandbox.Host
	pool    *sandbox.Pool
	config  Config
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	windows map[id.WindowID]*Window
	closed  bool
}

// NewManager creates a window manager. A positive PoolSize warms that many
// contexts up front.
func NewManager(host *sandbox.Host, config Config, logger *zap.Logger, metrics *monitoring.Metrics) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		host:    host,
		config:  config,
		logger:  logger,
		metrics: metrics,
		windows: make(map[id.WindowID]*Window),
	}

	if config.PoolSize > 0 {
		pool, err := sandbox.NewPool(host, config.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to warm window pool: %w", err)
		}
		m.pool = pool
	}

	return m, nil
}

// Create opens a new window
func (m *Manager) Create(ctx context.Context) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if m.config.MaxWindows > 0 && len(m.windows) >= m.config.MaxWindows {
		return nil, ErrTooManyWindows
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := m.acquire()
	if err != nil {
		return nil, err
	}
	delegate, ok := c.Global().(*sandbox.Object)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("unexpected window delegate %T", c.Global())
	}

	w := &Window{
		ctx:       c,
		delegate:  delegate,
		createdAt: time.Now(),
	}

	global := c.GlobalObject()
	for _, name := range []string{"window", "self", "top"} {
		delegate.Set(name, global)
	}
	if m.config.Console {
		w.installConsole(m.logger)
	}

	m.windows[w.ID()] = w
	m.metrics.SetWindowsActive(len(m.windows))
	m.logger.Info("Window created",
		zap.String("window_id", w.ID().String()),
		zap.Int("windows", len(m.windows)))

	return w, nil
}

// acquire prefers a warm context and bootstraps a new one when the pool is
// empty. The pool refills only as windows close.
func (m *Manager) acquire() (*sandbox.Context, error) {
	if m.pool != nil {
		if c, ok := m.pool.TryAcquire(); ok {
			return c, nil
		}
	}
	return m.host.NewContext(sandbox.NewObject())
}

func (m *Manager) release(c *sandbox.Context) error {
	if m.pool != nil {
		return m.pool.Release(c)
	}
	return c.Close()
}

// Evaluate runs script in window wid. Script failures are reported in the
// result; the error return is for host failures only.
func (m *Manager) Evaluate(ctx context.Context, wid id.WindowID, script, filename string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[wid]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return m.evaluate(ctx, w, script, filename)
}

func (m *Manager) evaluate(ctx context.Context, w *Window, script, filename string) (*Result, error) {
	start := time.Now()
	v, err := w.ctx.EvaluateContext(ctx, script, filename)
	w.evaluations++

	result := &Result{
		Duration: time.Since(start),
		Console:  w.drain(),
	}
	if err != nil {
		if !sandbox.IsScriptError(err) {
			return nil, err
		}
		result.Error = errorText(err)
		m.logger.Debug("Window script failed",
			zap.String("window_id", w.ID().String()),
			zap.String("filename", filename),
			zap.String("error", result.Error))
		return result, nil
	}

	result.Value = sandbox.Describe(v)
	return result, nil
}

// Globals returns the window's properties in enumeration order, described
// as JSON-friendly values.
func (m *Manager) Globals(wid id.WindowID) ([]Global, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[wid]
	if !ok {
		return nil, ErrWindowNotFound
	}

	keys := w.delegate.Keys()
	globals := make([]Global, 0, len(keys))
	for _, key := range keys {
		v, ok := w.delegate.Get(key)
		if !ok {
			continue
		}
		globals = append(globals, describeGlobal(key, v))
	}
	return globals, nil
}

// Get returns information about window wid
func (m *Manager) Get(wid id.WindowID) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[wid]
	if !ok {
		return Info{}, ErrWindowNotFound
	}
	return w.info(), nil
}

// List returns all windows, oldest first
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.windows))
	for _, w := range m.windows {
		infos = append(infos, w.info())
	}
	slices.SortFunc(infos, func(a, b Info) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return infos
}

// Close closes window wid
func (m *Manager) Close(wid id.WindowID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[wid]
	if !ok {
		return ErrWindowNotFound
	}
	delete(m.windows, wid)
	m.metrics.SetWindowsActive(len(m.windows))

	if err := m.release(w.ctx); err != nil {
		m.logger.Warn("Failed to release window", zap.String("window_id", wid.String()), zap.Error(err))
		return err
	}
	m.logger.Info("Window closed",
		zap.String("window_id", wid.String()),
		zap.Int("evaluations", w.evaluations))
	return nil
}

// CloseAll closes every window and the pool. The manager cannot be used
// afterwards.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	for wid, w := range m.windows {
		if err := w.ctx.Close(); err != nil {
			m.logger.Warn("Failed to close window", zap.String("window_id", wid.String()), zap.Error(err))
		}
	}
	clear(m.windows)
	m.metrics.SetWindowsActive(0)

	if m.pool != nil {
		m.pool.Close()
	}
}

// Stats returns manager statistics
func (m *Manager) Stats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := map[string]interface{}{
		"windows":     len(m.windows),
		"max_windows": m.config.MaxWindows,
		"primitives":  m.host.Catalog().Len(),
		"closed":      m.closed,
	}
	if m.pool != nil {
		stats["pool"] = m.pool.Stats()
	}
	return stats
}
