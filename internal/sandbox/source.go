package sandbox

import (
	"reflect"
	"slices"
	"strings"

	"github.com/dop251/goja/ast"
)

// globalBinding names the native-global property that holds the mediated
// window object. Window code never sees it: the mediator refuses to resolve
// it, so lookups fall through to the native global only from the wrapper.
const globalBinding = "__windowctx_global__"

// wrapSource places src inside the mediated scope. The prologue stays on the
// first line so reported line numbers match the caller's source. Hoisted
// function names are copied onto the window when the block is entered.
//
// Code inside a with block is sloppy, so a leading "use strict" directive
// becomes an ordinary expression statement and has no effect.
func wrapSource(src string, hoist []string) string {
	var b strings.Builder
	b.Grow(len(src) + len(globalBinding)*(len(hoist)+1) + 16)
	b.WriteString("with (")
	b.WriteString(globalBinding)
	b.WriteString(") {")
	for _, name := range hoist {
		b.WriteString(globalBinding)
		b.WriteByte('.')
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(name)
		b.WriteByte(';')
	}
	b.WriteString(src)
	b.WriteString("\n}")
	return b.String()
}

// rebindReceiver replaces every top-level this in src with the window
// binding, so the window is the receiver of source text the same way it is
// for function payloads. Lines are preserved; columns after a replacement
// shift right.
func rebindReceiver(src string, prg *ast.Program) string {
	refs := receiverRefs(prg)
	if len(refs) == 0 {
		return src
	}

	var b strings.Builder
	b.Grow(len(src) + len(refs)*(len(globalBinding)-len("this")))
	last := 0
	for _, off := range refs {
		if off < last || off+len("this") > len(src) || src[off:off+len("this")] != "this" {
			continue
		}
		b.WriteString(src[last:off])
		b.WriteString(globalBinding)
		last = off + len("this")
	}
	b.WriteString(src[last:])
	return b.String()
}

var (
	thisExprType = reflect.TypeOf(&ast.ThisExpression{})
	functionType = reflect.TypeOf(&ast.FunctionLiteral{})
	classType    = reflect.TypeOf(&ast.ClassLiteral{})
	astPackage   = thisExprType.Elem().PkgPath()
)

// receiverRefs returns the byte offsets of this expressions bound to the
// top-level receiver. Function literals and class bodies have their own
// receiver and are skipped; arrow functions share the enclosing one.
func receiverRefs(prg *ast.Program) []int {
	seen := make(map[int]bool)

	var walk func(v reflect.Value)
	walk = func(v reflect.Value) {
		switch v.Kind() {
		case reflect.Interface:
			if !v.IsNil() {
				walk(v.Elem())
			}
		case reflect.Pointer:
			if v.IsNil() || v.Type().Elem().PkgPath() != astPackage || !v.CanInterface() {
				return
			}
			switch v.Type() {
			case thisExprType:
				// Parsed files start at base 1
				seen[int(v.Interface().(*ast.ThisExpression).Idx)-1] = true
			case functionType:
			case classType:
				walkClass(v.Interface().(*ast.ClassLiteral), walk)
			default:
				walk(v.Elem())
			}
		case reflect.Struct:
			if v.Type().PkgPath() != astPackage {
				return
			}
			for i := 0; i < v.NumField(); i++ {
				walk(v.Field(i))
			}
		case reflect.Slice:
			for i := 0; i < v.Len(); i++ {
				walk(v.Index(i))
			}
		}
	}

	for _, stmt := range prg.Body {
		walk(reflect.ValueOf(stmt))
	}

	refs := make([]int, 0, len(seen))
	for off := range seen {
		refs = append(refs, off)
	}
	slices.Sort(refs)
	return refs
}

// walkClass visits the parts of a class evaluated with the outer receiver:
// the heritage expression and computed member keys.
func walkClass(class *ast.ClassLiteral, walk func(reflect.Value)) {
	if class.SuperClass != nil {
		walk(reflect.ValueOf(class.SuperClass))
	}
	for _, el := range class.Body {
		switch member := el.(type) {
		case *ast.FieldDefinition:
			if member.Computed {
				walk(reflect.ValueOf(member.Key))
			}
		case *ast.MethodDefinition:
			if member.Computed {
				walk(reflect.ValueOf(member.Key))
			}
		}
	}
}

// strictDirective reports whether the program's directive prologue asks for
// strict mode.
func strictDirective(prg *ast.Program) bool {
	for _, stmt := range prg.Body {
		expr, ok := stmt.(*ast.ExpressionStatement)
		if !ok {
			return false
		}
		lit, ok := expr.Expression.(*ast.StringLiteral)
		if !ok {
			return false
		}
		if raw := lit.Literal; len(raw) >= 2 && raw[1:len(raw)-1] == "use strict" {
			return true
		}
	}
	return false
}
