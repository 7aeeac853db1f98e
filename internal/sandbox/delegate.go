package sandbox

import (
	"slices"
	"sync"
)

// Delegate receives all named-property traffic aimed at a window's global
// object. Any type with own-property get/set/delete and stable key
// enumeration can serve.
type Delegate interface {
	// Get returns the own property stored under name.
	Get(name string) (any, bool)
	// Set stores value under name, replacing any prior value.
	Set(name string, value any)
	// Delete removes name and reports whether a property was removed.
	Delete(name string) bool
	// Keys returns own property names in a stable order.
	Keys() []string
}

// Object is the default Delegate: an insertion-ordered property map that is
// safe for a host to touch from other goroutines between evaluations.
type Object struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]any
}

// NewObject creates an empty delegate object
func NewObject() *Object {
	return &Object{
		values: make(map[string]any),
	}
}

// Get retrieves a property value
func (o *Object) Get(name string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[name]
	return v, ok
}

// Set stores a property value; replacing keeps the original position
func (o *Object) Set(name string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.values[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.values[name] = value
}

// Delete removes a property
func (o *Object) Delete(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.values[name]; !exists {
		return false
	}
	delete(o.values, name)
	if i := slices.Index(o.keys, name); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
	return true
}

// Keys returns property names in insertion order
func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.keys)
}

// Has reports whether name is an own property
func (o *Object) Has(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.values[name]
	return ok
}

// Len returns the number of properties
func (o *Object) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.keys)
}
