package sandbox

import (
	"errors"

	"github.com/dop251/goja"
)

var (
	ErrNilDelegate   = errors.New("window context requires a delegate")
	ErrClosed        = errors.New("window context is closed")
	ErrScopeMismatch = errors.New("window scope exited out of order")
	ErrPoolClosed    = errors.New("window pool is closed")
	ErrTimeout       = errors.New("window acquisition timeout")
)

// IsScriptError reports whether err was thrown by script (including syntax
// errors and interruptions) rather than produced by the host.
func IsScriptError(err error) bool {
	var ex *goja.Exception
	var intr *goja.InterruptedError
	return errors.As(err, &ex) || errors.As(err, &intr)
}

// ExceptionValue returns the value script threw, or nil when err does not
// carry one.
func ExceptionValue(err error) goja.Value {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.Value()
	}
	return nil
}
