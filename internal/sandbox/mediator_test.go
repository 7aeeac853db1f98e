package sandbox

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panicky is a delegate whose Delete misbehaves.
type panicky struct {
	*Object
}

func (p panicky) Delete(string) bool {
	panic("delete failed")
}

func newTestMediator(t *testing.T) (*mediator, *Object) {
	t.Helper()
	obj := NewObject()
	return newMediator(goja.New(), obj), obj
}

func TestMediatorGet(t *testing.T) {
	m, obj := newTestMediator(t)

	assert.True(t, goja.IsUndefined(m.Get("missing")))

	obj.Set("n", 41)
	assert.Equal(t, int64(41), m.Get("n").ToInteger())

	// Host writes are visible on the next read
	obj.Set("n", 42)
	assert.Equal(t, int64(42), m.Get("n").ToInteger())

	obj.Set("nil", nil)
	assert.True(t, goja.IsUndefined(m.Get("nil")))
}

func TestMediatorSetRetains(t *testing.T) {
	m, obj := newTestMediator(t)

	v := m.vm.ToValue("hello")
	got := m.Set("greeting", v)
	assert.True(t, got.SameAs(v))

	stored, ok := obj.Get("greeting")
	require.True(t, ok)
	assert.True(t, stored.(goja.Value).SameAs(v))
	assert.Equal(t, 1, m.handles.count())

	// Replacing keeps one handle per name
	m.Set("greeting", m.vm.ToValue("bye"))
	assert.Equal(t, 1, m.handles.count())

	undef := m.Set("u", nil)
	assert.True(t, goja.IsUndefined(undef))
	assert.Equal(t, 2, m.handles.count())
}

func TestMediatorDelete(t *testing.T) {
	m, obj := newTestMediator(t)

	m.Set("a", m.vm.ToValue(1))
	m.Set("b", m.vm.ToValue(2))

	assert.True(t, m.Delete("a"))
	assert.Equal(t, []string{"b"}, m.Enumerate())
	assert.Equal(t, 1, m.handles.count())
	assert.Equal(t, 1, m.handles.released)

	// Double delete does not double release
	assert.False(t, m.Delete("a"))
	assert.Equal(t, 1, m.handles.released)

	// Never set
	assert.False(t, m.Delete("never"))
	assert.Equal(t, []string{"b"}, m.Enumerate())
	assert.Equal(t, 1, m.handles.released)

	// Host-set properties carry no handle
	obj.Set("host", true)
	assert.True(t, m.Delete("host"))
	assert.Equal(t, 1, m.handles.released)
}

func TestMediatorDeleteDoesNotPanic(t *testing.T) {
	m := newMediator(goja.New(), panicky{NewObject()})
	m.Set("a", m.vm.ToValue(1))

	assert.NotPanics(t, func() {
		assert.False(t, m.Delete("a"))
	})
	assert.Equal(t, 1, m.handles.count())
}

func TestMediatorEnumerateAndQuery(t *testing.T) {
	m, obj := newTestMediator(t)

	assert.Empty(t, m.Enumerate())

	obj.Set("x", 1)
	m.Set("y", m.vm.ToValue(2))
	assert.Equal(t, []string{"x", "y"}, m.Enumerate())

	for _, name := range []string{"x", "y", "missing", ""} {
		assert.Equal(t, None, m.Query(name))
	}
	assert.Equal(t, Absent, m.Query(globalBinding))
}

func TestHandleTable(t *testing.T) {
	h := newHandleTable()
	vm := goja.New()

	h.retain("a", vm.ToValue(1))
	h.retain("b", vm.ToValue(2))
	h.release("a")
	h.release("a")
	h.release("zzz")

	assert.Equal(t, 1, h.count())
	assert.Equal(t, 1, h.released)

	assert.Equal(t, 1, h.releaseAll())
	assert.Equal(t, 0, h.releaseAll())
	assert.Equal(t, 0, h.count())
	assert.Equal(t, 2, h.released)
}

func TestDynamicGlobalHas(t *testing.T) {
	m, _ := newTestMediator(t)
	d := dynamicGlobal{m: m}

	assert.True(t, d.Has("anything"))
	assert.True(t, d.Has("Array"))
	assert.False(t, d.Has(globalBinding))

	// Name resolution follows Query
	for _, name := range []string{"anything", "Array", "", globalBinding} {
		assert.Equal(t, m.Query(name) != Absent, d.Has(name), name)
	}
}
