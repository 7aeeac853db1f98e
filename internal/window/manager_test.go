package window

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/monitoring"
	"github.com/GriffinCanCode/windowctx/internal/sandbox"
	"github.com/GriffinCanCode/windowctx/internal/shared/id"
)

func newTestManager(t *testing.T, config Config) (*Manager, *monitoring.Metrics) {
	t.Helper()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	host := sandbox.NewHost(sandbox.DefaultConfig(), sandbox.WithMetrics(metrics))
	m, err := NewManager(host, config, zap.NewNop(), metrics)
	require.NoError(t, err)
	t.Cleanup(m.CloseAll)
	return m, metrics
}

func TestCreateAndEvaluate(t *testing.T) {
	m, metrics := newTestManager(t, Config{Console: true})
	ctx := context.Background()

	w, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WindowsActive))

	result, err := m.Evaluate(ctx, w.ID(), "console.log('hello', 1); console.error('bad'); 6 * 7", "inline.js")
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	assert.Equal(t, int64(42), result.Value)
	require.Len(t, result.Console, 2)
	assert.Equal(t, "log", result.Console[0].Level)
	assert.Equal(t, "hello 1", result.Console[0].Message)
	assert.Equal(t, "error", result.Console[1].Level)

	// Console entries belong to one evaluation
	result, err = m.Evaluate(ctx, w.ID(), "1", "")
	require.NoError(t, err)
	assert.Empty(t, result.Console)
}

func TestSelfReferences(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	w, err := m.Create(ctx)
	require.NoError(t, err)

	result, err := m.Evaluate(ctx, w.ID(), "window === self && self === top && window.Array === Array", "")
	require.NoError(t, err)
	assert.Equal(t, true, result.Value)

	result, err = m.Evaluate(ctx, w.ID(), "window.answer = 42; answer", "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Value)

	result, err = m.Evaluate(ctx, w.ID(), "typeof console", "")
	require.NoError(t, err)
	assert.Equal(t, "undefined", result.Value)
}

func TestEvaluateScriptError(t *testing.T) {
	m, _ := newTestManager(t, Config{Console: true})
	ctx := context.Background()

	w, err := m.Create(ctx)
	require.NoError(t, err)

	result, err := m.Evaluate(ctx, w.ID(), "console.log('before'); throw new TypeError('nope')", "fail.js")
	require.NoError(t, err)
	assert.Equal(t, "TypeError: nope", result.Error)
	assert.Nil(t, result.Value)
	assert.Len(t, result.Console, 1)

	result, err = m.Evaluate(ctx, w.ID(), "({ toString() { throw 1 } }) + ''", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Error)

	result, err = m.Evaluate(ctx, w.ID(), "throw { toString() { throw 1 } }", "")
	require.NoError(t, err)
	assert.Equal(t, "uncaught exception", result.Error)

	result, err = m.Evaluate(ctx, w.ID(), "if (", "syntax.js")
	require.NoError(t, err)
	assert.Contains(t, result.Error, "SyntaxError")

	info, err := m.Get(w.ID())
	require.NoError(t, err)
	assert.Equal(t, 4, info.Evaluations)
}

func TestUnknownWindow(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	missing := id.NewWindowID()

	_, err := m.Evaluate(context.Background(), missing, "1", "")
	assert.ErrorIs(t, err, ErrWindowNotFound)
	_, err = m.Globals(missing)
	assert.ErrorIs(t, err, ErrWindowNotFound)
	_, err = m.Get(missing)
	assert.ErrorIs(t, err, ErrWindowNotFound)
	assert.ErrorIs(t, m.Close(missing), ErrWindowNotFound)
}

func TestMaxWindows(t *testing.T) {
	m, _ := newTestManager(t, Config{MaxWindows: 2})
	ctx := context.Background()

	first, err := m.Create(ctx)
	require.NoError(t, err)
	_, err = m.Create(ctx)
	require.NoError(t, err)

	_, err = m.Create(ctx)
	assert.ErrorIs(t, err, ErrTooManyWindows)

	require.NoError(t, m.Close(first.ID()))
	_, err = m.Create(ctx)
	assert.NoError(t, err)
}

func TestGlobals(t *testing.T) {
	m, _ := newTestManager(t, Config{Console: true})
	ctx := context.Background()

	w, err := m.Create(ctx)
	require.NoError(t, err)
	w.Delegate().Set("hostValue", 7)

	_, err = m.Evaluate(ctx, w.ID(), "title = 'page'; count = 3; list = [1]; fn = function() {}", "")
	require.NoError(t, err)

	globals, err := m.Globals(w.ID())
	require.NoError(t, err)

	byName := make(map[string]Global, len(globals))
	for _, g := range globals {
		byName[g.Name] = g
	}

	assert.Equal(t, "Array", globals[0].Name)
	assert.Equal(t, Global{Name: "title", Type: "string", Value: "page"}, byName["title"])
	assert.Equal(t, Global{Name: "count", Type: "number", Value: int64(3)}, byName["count"])
	assert.Equal(t, "array", byName["list"].Type)
	assert.Equal(t, "function", byName["fn"].Type)
	assert.Equal(t, "object", byName["window"].Type)
	assert.Equal(t, "object", byName["console"].Type)
	assert.Equal(t, Global{Name: "hostValue", Type: "go:int", Value: 7}, byName["hostValue"])
}

func TestListAndClose(t *testing.T) {
	m, metrics := newTestManager(t, Config{})
	ctx := context.Background()

	var ids []id.WindowID
	for i := 0; i < 3; i++ {
		w, err := m.Create(ctx)
		require.NoError(t, err)
		ids = append(ids, w.ID())
	}

	infos := m.List()
	require.Len(t, infos, 3)
	for i, info := range infos {
		assert.Equal(t, ids[i], info.ID)
		assert.Greater(t, info.Globals, 0)
	}

	require.NoError(t, m.Close(ids[1]))
	assert.Len(t, m.List(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.WindowsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ContextsActive))

	m.CloseAll()
	assert.Empty(t, m.List())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ContextsActive))

	_, err := m.Create(ctx)
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestPooledManager(t *testing.T) {
	m, _ := newTestManager(t, Config{PoolSize: 2})
	ctx := context.Background()

	w, err := m.Create(ctx)
	require.NoError(t, err)

	stats := m.Stats()
	pool := stats["pool"].(map[string]interface{})
	assert.Equal(t, 1, pool["available"])

	require.NoError(t, m.Close(w.ID()))
	pool = m.Stats()["pool"].(map[string]interface{})
	assert.Equal(t, 2, pool["available"])
}

func TestPooledManagerBeyondPool(t *testing.T) {
	m, _ := newTestManager(t, Config{PoolSize: 1, MaxWindows: 3})
	ctx := context.Background()

	start := time.Now()
	var windows []*Window
	for i := 0; i < 3; i++ {
		w, err := m.Create(ctx)
		require.NoError(t, err, "window %d", i)
		windows = append(windows, w)
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err := m.Create(ctx)
	assert.ErrorIs(t, err, ErrTooManyWindows)

	for i, w := range windows {
		result, err := m.Evaluate(ctx, w.ID(), "typeof Array", "")
		require.NoError(t, err)
		assert.Equal(t, "function", result.Value, "window %d", i)
	}

	// Other operations are not held up by an empty pool
	assert.Len(t, m.List(), 3)
	assert.Equal(t, 0, m.Stats()["pool"].(map[string]interface{})["available"])
}

func TestCreateCanceled(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Create(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.List())
}

func TestConcurrentWindows(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w, err := m.Create(ctx)
			if err != nil {
				errs <- err
				return
			}
			result, err := m.Evaluate(ctx, w.ID(), "var total = 0; for (var i = 0; i < 100; i++) { total += i }; total", "")
			if err != nil {
				errs <- err
				return
			}
			if result.Value != int64(4950) {
				errs <- errors.New("unexpected result")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, m.List(), 8)
}

func TestRunner(t *testing.T) {
	m, _ := newTestManager(t, Config{Console: true})
	ctx := context.Background()

	w, err := m.Create(ctx)
	require.NoError(t, err)

	runner := m.Runner(w.ID())
	require.NoError(t, runner.Evaluate(ctx, "console.log('one'); shared = 1", "a.js"))

	err = runner.Evaluate(ctx, "throw new Error('two')", "b.js")
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, "b.js", scriptErr.Filename)
	assert.Equal(t, "b.js: Error: two", err.Error())

	require.NoError(t, runner.Evaluate(ctx, "console.log(shared + 1)", "c.js"))
	require.Len(t, runner.Console(), 2)
	assert.Equal(t, "2", runner.Console()[1].Message)

	err = m.Runner(id.NewWindowID()).Evaluate(ctx, "1", "")
	assert.ErrorIs(t, err, ErrWindowNotFound)
}
