package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/windowctx/internal/page"
	"github.com/GriffinCanCode/windowctx/internal/sandbox"
	"github.com/GriffinCanCode/windowctx/internal/shared/id"
	"github.com/GriffinCanCode/windowctx/internal/window"
)

func setupTestRouter(t *testing.T, config window.Config) (*gin.Engine, *window.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, err := window.NewManager(sandbox.NewHost(sandbox.DefaultConfig()), config, nil, nil)
	require.NoError(t, err)
	t.Cleanup(manager.CloseAll)

	loader := page.NewLoader(page.DefaultConfig(), nil, nil)
	handlers := NewHandlers(manager, loader, nil)

	router := gin.New()
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/windows", handlers.CreateWindow)
	router.GET("/windows", handlers.ListWindows)
	router.GET("/windows/:id", handlers.GetWindow)
	router.DELETE("/windows/:id", handlers.CloseWindow)
	router.POST("/windows/:id/evaluate", handlers.Evaluate)
	router.GET("/windows/:id/globals", handlers.Globals)
	router.POST("/windows/:id/load", handlers.LoadPage)
	return router, manager
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func createWindow(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w, body := do(t, router, "POST", "/windows", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	wid, ok := body["id"].(string)
	require.True(t, ok)
	return wid
}

func TestRoot(t *testing.T) {
	router, _ := setupTestRouter(t, window.Config{})

	w, body := do(t, router, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "windowctx", body["service"])

	w, body = do(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "windows")
}

func TestWindowLifecycle(t *testing.T) {
	router, _ := setupTestRouter(t, window.Config{Console: true})
	wid := createWindow(t, router)

	w, body := do(t, router, "POST", "/windows/"+wid+"/evaluate", map[string]any{
		"script":   "var answer = 6 * 7; console.log('answer', answer); answer",
		"filename": "calc.js",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), body["value"])
	assert.NotContains(t, body, "error")
	console := body["console"].([]any)
	require.Len(t, console, 1)
	assert.Equal(t, "answer 42", console[0].(map[string]any)["message"])

	// Thrown errors are results, not HTTP failures
	w, body = do(t, router, "POST", "/windows/"+wid+"/evaluate", map[string]any{
		"script": "throw new TypeError('nope')",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["error"], "nope")

	w, body = do(t, router, "GET", "/windows/"+wid+"/globals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	names := make(map[string]string)
	for _, g := range body["globals"].([]any) {
		entry := g.(map[string]any)
		names[entry["name"].(string)] = entry["type"].(string)
	}
	assert.Equal(t, "number", names["answer"])
	assert.Equal(t, "function", names["Array"])

	w, body = do(t, router, "GET", "/windows/"+wid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["evaluations"])

	w, body = do(t, router, "GET", "/windows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["windows"], 1)

	w, _ = do(t, router, "DELETE", "/windows/"+wid, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, "GET", "/windows/"+wid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, router, "DELETE", "/windows/"+wid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadRequests(t *testing.T) {
	router, _ := setupTestRouter(t, window.Config{})
	wid := createWindow(t, router)
	unknown := id.NewWindowID().String()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"malformed id", "GET", "/windows/not-an-id", nil, http.StatusBadRequest},
		{"unknown window", "POST", "/windows/" + unknown + "/evaluate", map[string]any{"script": "1"}, http.StatusNotFound},
		{"missing script", "POST", "/windows/" + wid + "/evaluate", map[string]any{}, http.StatusBadRequest},
		{"blank script", "POST", "/windows/" + wid + "/evaluate", map[string]any{"script": "   "}, http.StatusBadRequest},
		{"unknown globals", "GET", "/windows/" + unknown + "/globals", nil, http.StatusNotFound},
		{"missing url", "POST", "/windows/" + wid + "/load", map[string]any{}, http.StatusBadRequest},
		{"file url", "POST", "/windows/" + wid + "/load", map[string]any{"url": "file:///etc/hosts"}, http.StatusBadRequest},
		{"load unknown window", "POST", "/windows/" + unknown + "/load", map[string]any{"url": "http://example.test/"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestWindowLimit(t *testing.T) {
	router, _ := setupTestRouter(t, window.Config{MaxWindows: 1})
	createWindow(t, router)

	w, body := do(t, router, "POST", "/windows", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, window.ErrTooManyWindows.Error(), body["error"])
}

func TestLoadPage(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<title>Home</title><script src="/app.js"></script><script>console.info('ready', loaded)</script>`)
		case "/app.js":
			fmt.Fprint(w, "var loaded = true")
		default:
			http.NotFound(w, r)
		}
	}))
	defer site.Close()

	router, manager := setupTestRouter(t, window.Config{Console: true})
	wid := createWindow(t, router)

	w, body := do(t, router, "POST", "/windows/"+wid+"/load", map[string]any{"url": site.URL + "/"})
	require.Equal(t, http.StatusOK, w.Code, body)

	report := body["report"].(map[string]any)
	assert.Equal(t, "Home", report["title"])
	assert.Equal(t, float64(0), report["failed"])
	assert.Len(t, report["scripts"], 2)

	console := body["console"].([]any)
	require.Len(t, console, 1)
	assert.Equal(t, "ready true", console[0].(map[string]any)["message"])

	parsed, err := id.ParseWindowID(wid)
	require.NoError(t, err)
	result, err := manager.Evaluate(context.Background(), parsed, "loaded", "")
	require.NoError(t, err)
	assert.Equal(t, true, result.Value)

	w, _ = do(t, router, "POST", "/windows/"+wid+"/load", map[string]any{"url": site.URL + "/missing"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{window.ErrWindowNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", window.ErrTooManyWindows), http.StatusTooManyRequests},
		{window.ErrManagerClosed, http.StatusServiceUnavailable},
		{page.ErrUnsupportedURL, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&page.StatusError{URL: "http://x", Status: 404}, http.StatusBadGateway},
		{page.ErrNotText, http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
