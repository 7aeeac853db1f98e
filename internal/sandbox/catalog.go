package sandbox

import (
	"errors"
	"fmt"
	"iter"

	"github.com/dop251/goja"
)

// Locus selects the scope a primitive's bootstrap code runs in.
type Locus int

const (
	// InAmbientScope runs against the runtime's unmediated native global.
	InAmbientScope Locus = iota
	// InSandboxScope runs inside the mediated window scope, so values created
	// from literals carry the sandbox's own intrinsics.
	InSandboxScope
)

// String returns the string representation of the locus
func (l Locus) String() string {
	switch l {
	case InSandboxScope:
		return "sandbox"
	case InAmbientScope:
		return "ambient"
	default:
		return "unknown"
	}
}

// PrimitiveSpec describes one intrinsic exposed on the window.
type PrimitiveSpec struct {
	Name  string
	Code  string
	Locus Locus
}

// Primitive copies a value from the ambient scope under its own name.
func Primitive(name string) PrimitiveSpec {
	return PrimitiveSpec{Name: name, Code: name, Locus: InAmbientScope}
}

// PrimitiveFrom obtains a value by running code in the given scope.
func PrimitiveFrom(name, code string, locus Locus) PrimitiveSpec {
	return PrimitiveSpec{Name: name, Code: code, Locus: locus}
}

func (p PrimitiveSpec) normalize() PrimitiveSpec {
	if p.Code == "" {
		p.Code = p.Name
		p.Locus = InAmbientScope
	}
	return p
}

// Catalog is an ordered, immutable table of primitives. Bootstrap programs
// are compiled once and shared by every context built from the catalog.
type Catalog struct {
	specs    []PrimitiveSpec
	programs []*goja.Program
	index    map[string]int
}

// NewCatalog validates and compiles the given primitives.
func NewCatalog(specs ...PrimitiveSpec) (*Catalog, error) {
	c := &Catalog{
		specs:    make([]PrimitiveSpec, 0, len(specs)),
		programs: make([]*goja.Program, 0, len(specs)),
		index:    make(map[string]int, len(specs)),
	}

	for _, spec := range specs {
		spec = spec.normalize()
		if spec.Name == "" {
			return nil, errors.New("primitive name required")
		}
		if _, dup := c.index[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate primitive %q", spec.Name)
		}

		src := spec.Code
		if spec.Locus == InSandboxScope {
			src = wrapSource(spec.Code, nil)
		}
		prg, err := goja.Compile("primitive:"+spec.Name, src, false)
		if err != nil {
			return nil, fmt.Errorf("failed to compile primitive %q: %w", spec.Name, err)
		}

		c.index[spec.Name] = len(c.specs)
		c.specs = append(c.specs, spec)
		c.programs = append(c.programs, prg)
	}

	return c, nil
}

// DefaultCatalog returns the window primitives. Constructors reachable from
// literals are produced inside the sandbox; everything else is copied from
// the ambient scope.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultPrimitives()...)
	if err != nil {
		// The table is static; a failure here is a programming error.
		panic(err)
	}
	return c
}

func defaultPrimitives() []PrimitiveSpec {
	return []PrimitiveSpec{
		PrimitiveFrom("Array", "[].constructor", InSandboxScope),
		PrimitiveFrom("Boolean", "true.constructor", InSandboxScope),
		PrimitiveFrom("Function", "(function() {}).constructor", InSandboxScope),
		PrimitiveFrom("Number", "(1).constructor", InSandboxScope),
		PrimitiveFrom("Object", "({}).constructor", InSandboxScope),
		PrimitiveFrom("RegExp", "/./.constructor", InSandboxScope),
		PrimitiveFrom("String", "''.constructor", InSandboxScope),
		Primitive("Date"),
		Primitive("Error"),
		PrimitiveFrom("Image", "({})", InAmbientScope),
		Primitive("Math"),
		Primitive("decodeURI"),
		Primitive("decodeURIComponent"),
		Primitive("encodeURI"),
		Primitive("encodeURIComponent"),
		Primitive("escape"),
		Primitive("eval"),
		Primitive("isFinite"),
		Primitive("isNaN"),
		Primitive("parseFloat"),
		Primitive("parseInt"),
		Primitive("unescape"),

		Primitive("JSON"),
		Primitive("NaN"),
		Primitive("Infinity"),
		Primitive("EvalError"),
		Primitive("RangeError"),
		Primitive("ReferenceError"),
		Primitive("SyntaxError"),
		Primitive("TypeError"),
		Primitive("URIError"),
		Primitive("Symbol"),
		Primitive("Promise"),
		Primitive("Map"),
		Primitive("Set"),
		Primitive("WeakMap"),
		Primitive("Reflect"),
		Primitive("Proxy"),
	}
}

// All yields the primitives in catalog order. The sequence can be ranged
// over any number of times.
func (c *Catalog) All() iter.Seq[PrimitiveSpec] {
	return func(yield func(PrimitiveSpec) bool) {
		for _, spec := range c.specs {
			if !yield(spec) {
				return
			}
		}
	}
}

// Len returns the number of primitives.
func (c *Catalog) Len() int {
	return len(c.specs)
}

// Lookup returns the primitive registered under name.
func (c *Catalog) Lookup(name string) (PrimitiveSpec, bool) {
	i, ok := c.index[name]
	if !ok {
		return PrimitiveSpec{}, false
	}
	return c.specs[i], true
}

// bootstrap runs every primitive of the given locus and hands the result to
// store in catalog order.
func (c *Catalog) bootstrap(vm *goja.Runtime, locus Locus, store func(name string, v goja.Value)) error {
	for i, spec := range c.specs {
		if spec.Locus != locus {
			continue
		}
		v, err := vm.RunProgram(c.programs[i])
		if err != nil {
			return fmt.Errorf("primitive %q: %w", spec.Name, err)
		}
		store(spec.Name, v)
	}
	return nil
}
