package window

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/windowctx/internal/shared/id"
)

// ScriptError is a script failure seen by a Runner
type ScriptError struct {
	Filename string
	Message  string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, e.Message)
}

// Runner evaluates a sequence of scripts in one window, collecting console
// output across them. It satisfies the page loader's evaluator.
type Runner struct {
	manager *Manager
	window  id.WindowID
	console []LogEntry
}

// Runner returns a script runner bound to window wid
func (m *Manager) Runner(wid id.WindowID) *Runner {
	return &Runner{manager: m, window: wid}
}

// Evaluate runs src; a script failure comes back as *ScriptError
func (r *Runner) Evaluate(ctx context.Context, src, filename string) error {
	result, err := r.manager.Evaluate(ctx, r.window, src, filename)
	if err != nil {
		return err
	}
	r.console = append(r.console, result.Console...)
	if result.Error != "" {
		return &ScriptError{Filename: filename, Message: result.Error}
	}
	return nil
}

// Console returns console entries captured so far
func (r *Runner) Console() []LogEntry {
	return r.console
}
