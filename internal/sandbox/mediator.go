package sandbox

import (
	"github.com/dop251/goja"
)

// Attributes are the property attributes reported by Query.
type Attributes uint8

const (
	ReadOnly Attributes = 1 << iota
	DontEnum
	DontDelete
)

// None means a plain writable, enumerable, configurable property.
const None Attributes = 0

// Absent is reported only for the reserved window binding, which the
// window does not own.
const Absent Attributes = 1 << 7

// Mediator redirects named-property operations on a window's global object
// to its delegate.
type Mediator interface {
	Get(name string) goja.Value
	Set(name string, value goja.Value) goja.Value
	Delete(name string) bool
	Enumerate() []string
	Query(name string) Attributes
}

// mediator is the single Mediator implementation. It keeps no cache: every
// call reads or writes the delegate directly.
type mediator struct {
	vm       *goja.Runtime
	delegate Delegate
	handles  *handleTable
}

func newMediator(vm *goja.Runtime, delegate Delegate) *mediator {
	return &mediator{
		vm:       vm,
		delegate: delegate,
		handles:  newHandleTable(),
	}
}

// Get returns the delegate's property, or undefined when absent.
func (m *mediator) Get(name string) goja.Value {
	v, ok := m.delegate.Get(name)
	if !ok || v == nil {
		return goja.Undefined()
	}
	return m.vm.ToValue(v)
}

// Set stores value on the delegate and retains it while it stays there.
func (m *mediator) Set(name string, value goja.Value) goja.Value {
	if value == nil {
		value = goja.Undefined()
	}
	m.delegate.Set(name, value)
	m.handles.retain(name, value)
	return value
}

// Delete removes name from the delegate. The retained handle is released
// only when the delegate actually removed something.
func (m *mediator) Delete(name string) (deleted bool) {
	defer func() {
		if r := recover(); r != nil {
			deleted = false
		}
	}()
	if !m.delegate.Delete(name) {
		return false
	}
	m.handles.release(name)
	return true
}

// Enumerate returns the delegate's own keys in its native order.
func (m *mediator) Enumerate() []string {
	return m.delegate.Keys()
}

// Query reports no special attributes for any name.
func (m *mediator) Query(name string) Attributes {
	if name == globalBinding {
		return Absent
	}
	return None
}

// dynamicGlobal adapts the mediator to goja's DynamicObject so it can sit at
// the root of a window scope.
type dynamicGlobal struct {
	m *mediator
}

func (d dynamicGlobal) Get(key string) goja.Value {
	return d.m.Get(key)
}

func (d dynamicGlobal) Set(key string, val goja.Value) bool {
	d.m.Set(key, val)
	return true
}

// Has answers name resolution for the window scope. Every name Query
// describes is present; the reserved binding resolves past the window to
// the native global.
func (d dynamicGlobal) Has(key string) bool {
	return d.m.Query(key) != Absent
}

func (d dynamicGlobal) Delete(key string) bool {
	return d.m.Delete(key)
}

func (d dynamicGlobal) Keys() []string {
	return d.m.Enumerate()
}

// handleTable tracks values set through the mediator for as long as they
// remain properties.
type handleTable struct {
	retained map[string]goja.Value
	released int
}

func newHandleTable() *handleTable {
	return &handleTable{retained: make(map[string]goja.Value)}
}

func (h *handleTable) retain(name string, v goja.Value) {
	h.retained[name] = v
}

func (h *handleTable) release(name string) {
	if _, ok := h.retained[name]; !ok {
		return
	}
	delete(h.retained, name)
	h.released++
}

func (h *handleTable) releaseAll() int {
	n := len(h.retained)
	h.released += n
	clear(h.retained)
	return n
}

func (h *handleTable) count() int {
	return len(h.retained)
}
