package sandbox

import (
	"errors"

	"github.com/dop251/goja"
)

// Binding returns the script-facing handle of the context, the shape a host
// script sees: evaluate(payload, filename), plus global and g accessors.
// Failures raised by evaluate are rethrown with the original value.
func (c *Context) Binding() *goja.Object {
	if c.closed {
		return nil
	}
	if c.binding != nil {
		return c.binding
	}

	vm := c.vm
	obj := vm.NewObject()

	_ = obj.Set("evaluate", func(call goja.FunctionCall) goja.Value {
		filename := ""
		if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			filename = arg.String()
		}
		v, err := c.Evaluate(call.Argument(0), filename)
		if err != nil {
			panic(rethrow(vm, err))
		}
		return v
	})

	_ = obj.DefineAccessorProperty("global", vm.ToValue(func(goja.FunctionCall) goja.Value {
		if c.global == nil {
			return goja.Undefined()
		}
		return c.global
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	_ = obj.DefineAccessorProperty("g", vm.ToValue(func(goja.FunctionCall) goja.Value {
		if native := c.NativeGlobal(); native != nil {
			return native
		}
		return goja.Undefined()
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	c.binding = obj
	return obj
}

// rethrow picks the panic value that makes goja raise err inside script.
func rethrow(vm *goja.Runtime, err error) any {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex
	}
	var intr *goja.InterruptedError
	if errors.As(err, &intr) {
		return intr
	}
	return vm.NewGoError(err)
}
