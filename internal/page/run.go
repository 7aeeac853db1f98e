package page

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ScriptResult is the outcome of one page script
type ScriptResult struct {
	Index    int           `json:"index"`
	Filename string        `json:"filename"`
	Source   string        `json:"source"` // "inline" or "external"
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report summarizes a page run
type Report struct {
	URL     string         `json:"url"`
	Title   string         `json:"title,omitempty"`
	Charset string         `json:"charset"`
	Scripts []ScriptResult `json:"scripts"`
	Failed  int            `json:"failed"`
}

// Run evaluates the document's scripts in order. A script that cannot be
// fetched or that fails is recorded and the next one still runs; only a
// done ctx stops the run early.
func (l *Loader) Run(ctx context.Context, doc *Document, eval Evaluator) *Report {
	report := &Report{
		URL:     doc.URL.String(),
		Title:   doc.Title,
		Charset: doc.Charset,
		Scripts: make([]ScriptResult, 0, len(doc.Scripts)),
	}

	for _, script := range doc.Scripts {
		if ctx.Err() != nil {
			break
		}

		result := ScriptResult{
			Index:    script.Index,
			Filename: doc.Filename(script),
			Source:   "inline",
		}
		if script.External() {
			result.Source = "external"
		}

		start := time.Now()
		err := l.runScript(ctx, script, result.Filename, eval)
		result.Duration = time.Since(start)

		status := "ok"
		if err != nil {
			status = "error"
			result.Error = err.Error()
			report.Failed++
			l.logger.Debug("Page script failed",
				zap.String("page", report.URL),
				zap.String("filename", result.Filename),
				zap.Error(err))
		}
		l.metrics.ScriptLoaded(result.Source, status)
		report.Scripts = append(report.Scripts, result)
	}

	l.logger.Info("Page scripts run",
		zap.String("page", report.URL),
		zap.Int("scripts", len(report.Scripts)),
		zap.Int("failed", report.Failed))
	return report
}

func (l *Loader) runScript(ctx context.Context, script Script, filename string, eval Evaluator) error {
	src, err := l.Source(ctx, script)
	if err != nil {
		return err
	}
	return eval.Evaluate(ctx, src, filename)
}

// Load opens target and runs its scripts
func (l *Loader) Load(ctx context.Context, target string, eval Evaluator) (*Report, error) {
	doc, err := l.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	return l.Run(ctx, doc, eval), nil
}

// Breakers returns the state of each origin circuit
func (l *Loader) Breakers() map[string]string {
	states := l.breakers.States()
	out := make(map[string]string, len(states))
	for origin, state := range states {
		out[origin] = state.String()
	}
	return out
}
