package page

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/monitoring"
	"github.com/GriffinCanCode/windowctx/internal/sandbox"
)

// recorder captures evaluations and fails sources containing "FAIL".
type recorder struct {
	calls []string
}

func (r *recorder) Evaluate(_ context.Context, src, filename string) error {
	r.calls = append(r.calls, filename+"|"+src)
	if strings.Contains(src, "FAIL") {
		return errors.New("script threw")
	}
	return nil
}

type mockEvaluator struct {
	mock.Mock
}

func (m *mockEvaluator) Evaluate(ctx context.Context, src, filename string) error {
	args := m.Called(ctx, src, filename)
	return args.Error(0)
}

func testConfig() Config {
	return Config{
		Timeout:        2 * time.Second,
		Retries:        1,
		UserAgent:      "windowctx-test",
		MaxScriptBytes: 1024,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var flaky atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Fixture</title>
<script id="first">a = 1</script>
<script src="/js/ok.js"></script>
<script src="/js/missing.js"></script>
<script>FAIL()</script>
<script src="/js/big.js"></script>
<script src="/js/binary.js"></script>
<script src="/js/flaky.js"></script>
<script>done = true</script>
</head></html>`)
	})
	mux.HandleFunc("/js/ok.js", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "windowctx-test", r.UserAgent())
		w.Header().Set("Content-Type", "text/javascript")
		fmt.Fprint(w, "b = 2")
	})
	mux.HandleFunc("/js/big.js", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 2048))
	})
	mux.HandleFunc("/js/binary.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d})
	})
	mux.HandleFunc("/js/flaky.js", func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "c = 3")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &flaky
}

func TestLoadRunsScriptsInOrder(t *testing.T) {
	srv, flaky := newTestServer(t)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	loader := NewLoader(testConfig(), zap.NewNop(), metrics)

	rec := &recorder{}
	report, err := loader.Load(context.Background(), srv.URL+"/index.html", rec)
	require.NoError(t, err)

	assert.Equal(t, "Fixture", report.Title)
	assert.Equal(t, "utf-8", report.Charset)
	require.Len(t, report.Scripts, 8)

	page := srv.URL + "/index.html"
	assert.Equal(t, []string{
		page + ":#first|a = 1",
		"/js/ok.js|b = 2",
		page + ":script|FAIL()",
		"/js/flaky.js|c = 3",
		page + ":script|done = true",
	}, rec.calls)

	byName := make(map[string]ScriptResult)
	for _, s := range report.Scripts {
		byName[s.Filename] = s
	}
	assert.Contains(t, byName["/js/missing.js"].Error, "status 404")
	assert.Contains(t, byName["/js/big.js"].Error, ErrTooLarge.Error())
	assert.Contains(t, byName["/js/binary.js"].Error, ErrNotText.Error())
	assert.Empty(t, byName["/js/flaky.js"].Error)
	assert.Equal(t, "external", byName["/js/ok.js"].Source)

	assert.Equal(t, 4, report.Failed)
	assert.Equal(t, int32(2), flaky.Load())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ScriptsLoaded.WithLabelValues("inline", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ScriptsLoaded.WithLabelValues("external", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ScriptsLoaded.WithLabelValues("inline", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ScriptsLoaded.WithLabelValues("external", "error")))
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "js", "lib.js"), []byte("lib = 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte(
		`<script src="js/lib.js"></script><script id="main">main = lib + 1</script>`), 0o644))

	eval := &mockEvaluator{}
	eval.On("Evaluate", mock.Anything, "lib = 1", mock.MatchedBy(func(name string) bool {
		return strings.HasSuffix(name, "/js/lib.js")
	})).Return(nil).Once()
	eval.On("Evaluate", mock.Anything, "main = lib + 1", mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "file://") && strings.HasSuffix(name, "page.html:#main")
	})).Return(nil).Once()

	loader := NewLoader(testConfig(), nil, nil)
	report, err := loader.Load(context.Background(), filepath.Join(dir, "page.html"), eval)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Failed)
	eval.AssertExpectations(t)
}

func TestLoadMissingPage(t *testing.T) {
	loader := NewLoader(testConfig(), nil, nil)

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "nope.html"), &recorder{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = loader.Open(context.Background(), "ftp://example.test/page.html")
	assert.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestRunStopsOnCancel(t *testing.T) {
	loader := NewLoader(testConfig(), nil, nil)
	doc, err := Parse([]byte(`<script>one</script><script>two</script>`), "", mustURL(t, "http://example.test/"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	eval := &mockEvaluator{}
	eval.On("Evaluate", mock.Anything, "one", mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(nil)

	report := loader.Run(ctx, doc, eval)
	assert.Len(t, report.Scripts, 1)
	eval.AssertNumberOfCalls(t, "Evaluate", 1)
}

func TestOriginBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	config := testConfig()
	config.Retries = 0
	loader := NewLoader(config, nil, nil)

	for i := 0; i < 5; i++ {
		_, err := loader.Source(context.Background(), Script{Src: srv.URL + "/x.js"})
		require.Error(t, err)
	}

	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, map[string]string{strings.TrimPrefix(srv.URL, "http://"): "open"}, loader.Breakers())
}

// windowEvaluator runs scripts in a real window context.
type windowEvaluator struct {
	c *sandbox.Context
}

func (w windowEvaluator) Evaluate(ctx context.Context, src, filename string) error {
	_, err := w.c.EvaluateContext(ctx, src, filename)
	return err
}

func TestRunInWindow(t *testing.T) {
	srv, _ := newTestServer(t)
	host := sandbox.NewHost(sandbox.DefaultConfig())
	window := sandbox.NewObject()
	c, err := host.NewContext(window)
	require.NoError(t, err)
	defer c.Close()

	loader := NewLoader(testConfig(), nil, nil)
	report, err := loader.Load(context.Background(), srv.URL+"/index.html", windowEvaluator{c: c})
	require.NoError(t, err)

	// FAIL is not defined, so that script throws; the rest still ran
	assert.Equal(t, 4, report.Failed)
	assert.NotEmpty(t, report.Scripts[3].Error)
	for _, name := range []string{"a", "b", "c", "done"} {
		assert.True(t, window.Has(name), name)
	}
}
