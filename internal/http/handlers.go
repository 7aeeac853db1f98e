package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/config"
	"github.com/GriffinCanCode/windowctx/internal/page"
	"github.com/GriffinCanCode/windowctx/internal/shared/types"
	"github.com/GriffinCanCode/windowctx/internal/shared/utils"
	"github.com/GriffinCanCode/windowctx/internal/window"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	manager *window.Manager
	loader  *page.Loader
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(manager *window.Manager, loader *page.Loader, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manager: manager,
		loader:  loader,
		logger:  logger,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "windowctx",
		"version": config.Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"windows": h.manager.Stats(),
		"origins": h.loader.Breakers(),
	})
}

// CreateWindow opens a new window
func (h *Handlers) CreateWindow(c *gin.Context) {
	w, err := h.manager.Create(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	info, err := h.manager.Get(w.ID())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// ListWindows lists all open windows
func (h *Handlers) ListWindows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"windows": h.manager.List(),
		"stats":   h.manager.Stats(),
	})
}

// GetWindow describes one window
func (h *Handlers) GetWindow(c *gin.Context) {
	wid, err := utils.ValidateWindowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.manager.Get(wid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// CloseWindow closes and disposes a window
func (h *Handlers) CloseWindow(c *gin.Context) {
	wid, err := utils.ValidateWindowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.Close(wid); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"window_id": wid,
	})
}

// Evaluate runs a script in a window. Script failures are a normal result
// with the error field set.
func (h *Handlers) Evaluate(c *gin.Context) {
	wid, err := utils.ValidateWindowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req types.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateScript(req.Script); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateFilename(req.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.manager.Evaluate(c.Request.Context(), wid, req.Script, req.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Globals lists a window's properties
func (h *Handlers) Globals(c *gin.Context) {
	wid, err := utils.ValidateWindowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	globals, err := h.manager.Globals(wid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window_id": wid,
		"globals":   globals,
	})
}

// LoadPage fetches a page and runs its scripts in a window
func (h *Handlers) LoadPage(c *gin.Context) {
	wid, err := utils.ValidateWindowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req types.LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := utils.ValidateTarget(req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.manager.Get(wid); err != nil {
		h.fail(c, err)
		return
	}

	runner := h.manager.Runner(wid)
	report, err := h.loader.Load(c.Request.Context(), target.String(), runner)
	if err != nil {
		h.logger.Warn("Page load failed",
			zap.String("window_id", wid.String()),
			zap.String("url", target.String()),
			zap.Error(err))
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_id": wid,
		"report":    report,
		"console":   runner.Console(),
	})
}

// fail maps a host error to a status code
func (h *Handlers) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var status *page.StatusError
	switch {
	case errors.Is(err, window.ErrWindowNotFound):
		return http.StatusNotFound
	case errors.Is(err, window.ErrTooManyWindows):
		return http.StatusTooManyRequests
	case errors.Is(err, window.ErrManagerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, page.ErrUnsupportedURL):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &status), errors.Is(err, page.ErrTooLarge), errors.Is(err, page.ErrNotText):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
