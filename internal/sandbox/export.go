package sandbox

import (
	"github.com/dop251/goja"
)

// Export converts a script value to a Go value. Undefined and null become nil.
func Export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// Describe returns a JSON-friendly form of v: primitives, arrays and plain
// objects export as data, functions and other opaque values as their string
// form.
func Describe(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if _, ok := goja.AssertFunction(v); ok {
		return v.String()
	}
	return describe(v.Export(), 0)
}

func describe(x any, depth int) any {
	if depth > 32 {
		return nil
	}
	switch t := x.(type) {
	case nil, bool, string, int64, float64, int, int32, uint32:
		return t
	case []interface{}:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = describe(e, depth+1)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = describe(e, depth+1)
		}
		return out
	case goja.Value:
		return Describe(t)
	case func(goja.FunctionCall) goja.Value:
		return "function"
	default:
		if s, ok := x.(interface{ String() string }); ok {
			return s.String()
		}
		return nil
	}
}
