package window

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/windowctx/internal/sandbox"
)

// Global is one window property as reported to API clients
type Global struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

func describeGlobal(name string, v any) Global {
	g := Global{Name: name}

	value, ok := v.(goja.Value)
	if !ok {
		g.Type = fmt.Sprintf("go:%T", v)
		g.Value = v
		return g
	}

	switch {
	case goja.IsUndefined(value):
		g.Type = "undefined"
	case goja.IsNull(value):
		g.Type = "null"
	default:
		if _, fn := goja.AssertFunction(value); fn {
			g.Type = "function"
			return g
		}
		if obj, isObj := value.(*goja.Object); isObj {
			g.Type = "object"
			if obj.ClassName() == "Array" {
				g.Type = "array"
			}
			// Self references and host objects are not expanded
			return g
		}
		g.Type = primitiveType(value)
		g.Value = sandbox.Describe(value)
	}
	return g
}

func primitiveType(v goja.Value) string {
	switch v.Export().(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	case *goja.Symbol:
		return "symbol"
	default:
		return "unknown"
	}
}

// errorText renders a script failure. Thrown values may have a throwing
// toString, so failures fall back to a fixed message.
func errorText(err error) (text string) {
	defer func() {
		if recover() != nil {
			text = "uncaught exception"
		}
	}()
	if v := sandbox.ExceptionValue(err); v != nil {
		return v.String()
	}
	return err.Error()
}
