package window

import (
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/sandbox"
	"github.com/GriffinCanCode/windowctx/internal/shared/id"
)

// LogEntry is one console call captured from a window
type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the outcome of one evaluation
type Result struct {
	Value    any           `json:"value"`
	Console  []LogEntry    `json:"console,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Info describes a managed window
type Info struct {
	ID          id.WindowID `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	Evaluations int         `json:"evaluations"`
	Globals     int         `json:"globals"`
	Retained    int         `json:"retained"`
}

// Window is a window context owned by a Manager
type Window struct {
	ctx         *sandbox.Context
	delegate    *sandbox.Object
	createdAt   time.Time
	evaluations int

	mu      sync.Mutex
	console []LogEntry
}

// ID returns the window identifier
func (w *Window) ID() id.WindowID {
	return w.ctx.ID()
}

// Context returns the underlying window context
func (w *Window) Context() *sandbox.Context {
	return w.ctx
}

// Delegate returns the object holding the window's properties
func (w *Window) Delegate() *sandbox.Object {
	return w.delegate
}

func (w *Window) info() Info {
	return Info{
		ID:          w.ID(),
		CreatedAt:   w.createdAt,
		Evaluations: w.evaluations,
		Globals:     w.delegate.Len(),
		Retained:    w.ctx.Retained(),
	}
}

// drain returns and clears captured console entries
func (w *Window) drain() []LogEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := w.console
	w.console = nil
	return entries
}

func (w *Window) record(level, msg string) {
	w.mu.Lock()
	w.console = append(w.console, LogEntry{
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
	})
	w.mu.Unlock()
}

// installConsole puts a console object on the window. Entries are captured
// for the next Result and mirrored to logger.
func (w *Window) installConsole(logger *zap.Logger) {
	vm := w.ctx.Runtime()
	console := vm.NewObject()

	logAt := func(level string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			msg := formatArgs(call.Arguments)
			w.record(level, msg)

			fields := []zap.Field{zap.String("window_id", w.ID().String()), zap.String("message", msg)}
			switch level {
			case "error":
				logger.Warn("Window console error", fields...)
			case "debug":
				logger.Debug("Window console debug", fields...)
			default:
				logger.Debug("Window console", append(fields, zap.String("level", level))...)
			}
			return goja.Undefined()
		}
	}

	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, logAt(level))
	}
	w.delegate.Set("console", console)
}

func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}
