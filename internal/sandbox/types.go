package sandbox

import (
	"time"
)

// DefaultFilename labels source evaluated without a filename.
const DefaultFilename = "<window>"

// Config defines window context configuration
type Config struct {
	MaxCallStackSize int           // Call stack limit, 0 keeps the engine default
	Timeout          time.Duration // Applied by EvaluateContext to outermost calls, 0 disables
	DefaultFilename  string        // Diagnostic origin for unnamed source
}

// DefaultConfig returns the default window context configuration
func DefaultConfig() Config {
	return Config{
		MaxCallStackSize: 1024,
		Timeout:          5 * time.Second,
		DefaultFilename:  DefaultFilename,
	}
}

// Evaluation kinds reported to metrics
const (
	kindSource   = "source"
	kindFunction = "function"
)

// Evaluation outcomes reported to metrics
const (
	statusOK          = "ok"
	statusError       = "error"
	statusInterrupted = "interrupted"
)
