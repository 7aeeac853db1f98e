package sandbox

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/shared/id"
)

// ErrInUse is returned when closing a context whose scope is still entered.
var ErrInUse = errors.New("window context is in use")

// Context is an isolated scope whose global object is mediated to a
// host-owned delegate. It must not be used from more than one goroutine at
// a time; re-entrant calls from script are fine.
type Context struct {
	id       id.WindowID
	host     *Host
	vm       *goja.Runtime
	delegate Delegate
	med      *mediator
	global   *goja.Object
	binding  *goja.Object
	thrower  goja.Callable
	depth    int
	closed   bool
}

// NewContext creates a window context around delegate and seeds it with the
// host's primitive catalog.
func (h *Host) NewContext(delegate Delegate) (*Context, error) {
	if isNil(delegate) {
		return nil, ErrNilDelegate
	}

	start := time.Now()
	vm := goja.New()
	if h.config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(h.config.MaxCallStackSize)
	}

	c := &Context{
		id:       id.NewWindowID(),
		host:     h,
		vm:       vm,
		delegate: delegate,
		med:      newMediator(vm, delegate),
	}
	c.global = vm.NewDynamicObject(dynamicGlobal{m: c.med})

	thrower, ok := goja.AssertFunction(vm.ToValue(func(call goja.FunctionCall) goja.Value {
		panic(call.Argument(0))
	}))
	if !ok {
		return nil, errors.New("failed to create exception thrower")
	}
	c.thrower = thrower

	if err := vm.GlobalObject().DefineDataProperty(globalBinding, c.global,
		goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
		return nil, fmt.Errorf("failed to install window binding: %w", err)
	}

	if err := c.bootstrap(); err != nil {
		c.dispose()
		h.logger.Warn("Window bootstrap failed", zap.String("window_id", c.id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to bootstrap window context: %w", err)
	}

	h.metrics.ContextCreated(time.Since(start))
	h.metrics.AddRetainedHandles(c.med.handles.count())
	h.logger.Debug("Window context created",
		zap.String("window_id", c.id.String()),
		zap.Int("primitives", h.catalog.Len()),
		zap.Duration("duration", time.Since(start)))

	return c, nil
}

// bootstrap stores every catalog primitive on the delegate: sandbox-locus
// entries with the scope entered, then ambient entries outside it.
func (c *Context) bootstrap() error {
	store := func(name string, v goja.Value) {
		c.med.Set(name, v)
	}

	exit := c.host.enter(c)
	err := c.host.catalog.bootstrap(c.vm, InSandboxScope, store)
	exit()
	if err != nil {
		return err
	}

	return c.host.catalog.bootstrap(c.vm, InAmbientScope, store)
}

// Evaluate runs payload inside the window scope. A callable payload is
// invoked with the window as this and no arguments; anything else is
// coerced to source text and compiled with filename as its origin.
//
// Script failures are returned unchanged: a *goja.Exception whose Value is
// the thrown object, a SyntaxError for malformed source, or a
// *goja.InterruptedError.
func (c *Context) Evaluate(payload any, filename string) (goja.Value, error) {
	if c.closed {
		return nil, ErrClosed
	}

	if fn, ok := c.callable(payload); ok {
		return c.run(kindFunction, func() (goja.Value, error) {
			return fn(c.global)
		})
	}

	if filename == "" {
		filename = c.host.config.DefaultFilename
	}

	var src string
	if err := c.catch(func() { src = c.sourceText(payload) }); err != nil {
		c.host.metrics.EvaluationDone(kindSource, statusError, 0)
		return nil, err
	}

	prg, err := c.compile(filename, src)
	if err != nil {
		c.host.metrics.EvaluationDone(kindSource, statusError, 0)
		return nil, err
	}

	return c.run(kindSource, func() (goja.Value, error) {
		return c.vm.RunProgram(prg)
	})
}

// EvaluateContext is Evaluate with cancellation. The outermost call on this
// context interrupts the runtime when ctx is done or the configured timeout
// elapses; nested calls run under the outer call's deadline.
func (c *Context) EvaluateContext(ctx context.Context, payload any, filename string) (goja.Value, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.depth > 0 {
		return c.Evaluate(payload, filename)
	}

	if timeout := c.host.config.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			c.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	v, err := c.Evaluate(payload, filename)

	close(done)
	<-stopped
	c.vm.ClearInterrupt()

	return v, err
}

// run executes fn with the scope entered and records the outcome.
func (c *Context) run(kind string, fn func() (goja.Value, error)) (v goja.Value, err error) {
	start := time.Now()
	retained := c.med.handles.count()

	exit := c.host.enter(c)
	defer func() {
		exit()
		c.host.metrics.AddRetainedHandles(c.med.handles.count() - retained)
		c.host.metrics.EvaluationDone(kind, evaluationStatus(err), time.Since(start))
	}()

	var runErr error
	if err = c.catch(func() { v, runErr = fn() }); err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}
	if v == nil {
		v = goja.Undefined()
	}
	return v, nil
}

// compile checks src on its own so diagnostics refer to the caller's code,
// then compiles it inside the window scope with the window as receiver.
func (c *Context) compile(filename, src string) (*goja.Program, error) {
	parsed, err := goja.Parse(filename, src)
	if err == nil {
		_, err = goja.CompileAST(parsed, false)
	}
	if err != nil {
		return nil, c.syntaxError(err)
	}

	if strictDirective(parsed) {
		c.host.logger.Warn("Strict mode directive ignored in window scope",
			zap.String("window_id", c.id.String()),
			zap.String("filename", filename))
	}

	body := rebindReceiver(src, parsed)
	prg, err := goja.Compile(filename, wrapSource(body, topLevelFunctions(parsed)), false)
	if err != nil {
		return nil, c.syntaxError(err)
	}
	return prg, nil
}

// syntaxError turns a compiler error into a thrown SyntaxError of this
// runtime.
func (c *Context) syntaxError(cause error) error {
	msg := strings.TrimPrefix(cause.Error(), "SyntaxError: ")
	obj, err := c.vm.New(c.vm.GlobalObject().Get("SyntaxError"), c.vm.ToValue(msg))
	if err != nil {
		return cause
	}
	if _, err = c.thrower(goja.Undefined(), obj); err != nil {
		return err
	}
	return cause
}

func (c *Context) callable(payload any) (goja.Callable, bool) {
	switch p := payload.(type) {
	case nil, string:
		return nil, false
	case goja.Callable:
		return p, true
	case goja.Value:
		return goja.AssertFunction(p)
	default:
		return goja.AssertFunction(c.vm.ToValue(payload))
	}
}

func (c *Context) sourceText(payload any) string {
	switch p := payload.(type) {
	case nil:
		return "undefined"
	case string:
		return p
	case goja.Value:
		return p.String()
	default:
		return c.vm.ToValue(payload).String()
	}
}

// catch converts a script exception raised outside RunProgram, such as a
// throwing toString during coercion, into an error.
func (c *Context) catch(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch x := r.(type) {
			case *goja.Exception:
				err = x
			case *goja.InterruptedError:
				err = x
			default:
				panic(r)
			}
		}
	}()
	f()
	return nil
}

// Global returns the delegate the window's properties live on.
func (c *Context) Global() Delegate {
	return c.delegate
}

// GlobalObject returns the mediated object script sees as the window.
func (c *Context) GlobalObject() *goja.Object {
	return c.global
}

// NativeGlobal returns the runtime's own global object. Bindings installed
// here bypass the delegate.
func (c *Context) NativeGlobal() *goja.Object {
	if c.vm == nil {
		return nil
	}
	return c.vm.GlobalObject()
}

// Runtime returns the underlying goja runtime.
func (c *Context) Runtime() *goja.Runtime {
	return c.vm
}

// ID returns the window identifier
func (c *Context) ID() id.WindowID {
	return c.id
}

// Depth returns how many evaluations of this context are in progress.
func (c *Context) Depth() int {
	return c.depth
}

// Retained returns the number of values held for properties set by script.
func (c *Context) Retained() int {
	return c.med.handles.count()
}

// Released returns how many retained values have been let go.
func (c *Context) Released() int {
	return c.med.handles.released
}

// Closed reports whether Close has been called
func (c *Context) Closed() bool {
	return c.closed
}

// Close releases the runtime, the retained values and the delegate
// reference. Closing twice is a no-op.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	if c.depth > 0 {
		return ErrInUse
	}

	released := c.med.handles.releaseAll()
	c.dispose()

	c.host.metrics.AddRetainedHandles(-released)
	c.host.metrics.ContextClosed()
	c.host.logger.Debug("Window context closed",
		zap.String("window_id", c.id.String()),
		zap.Int("released", released))
	return nil
}

func (c *Context) dispose() {
	c.closed = true
	c.med.handles.releaseAll()
	c.med.delegate = nil
	c.delegate = nil
	c.global = nil
	c.binding = nil
	c.thrower = nil
	c.vm = nil
}

func evaluationStatus(err error) string {
	if err == nil {
		return statusOK
	}
	var intr *goja.InterruptedError
	if errors.As(err, &intr) {
		return statusInterrupted
	}
	return statusError
}

func topLevelFunctions(prg *ast.Program) []string {
	var names []string
	for _, stmt := range prg.Body {
		decl, ok := stmt.(*ast.FunctionDeclaration)
		if !ok || decl.Function == nil || decl.Function.Name == nil {
			continue
		}
		names = append(names, decl.Function.Name.Name.String())
	}
	return names
}

func isNil(d Delegate) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}
