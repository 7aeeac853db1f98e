package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/windowctx/internal/shared/id"
	"github.com/GriffinCanCode/windowctx/internal/shared/types"
	"github.com/GriffinCanCode/windowctx/internal/shared/utils"
	"github.com/GriffinCanCode/windowctx/internal/window"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin policy is left to the CORS layer
	},
}

// Handler streams evaluations for one window over a WebSocket
type Handler struct {
	manager *window.Manager
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *window.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// HandleConnection upgrades GET /windows/:id/ws and serves frames until the
// client disconnects
func (h *Handler) HandleConnection(c *gin.Context) {
	wid, err := utils.ValidateWindowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.manager.Get(wid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(utils.MaxMessageSize)

	reqCtx := c.Request.Context()
	logger := h.logger.With(zap.String("window_id", wid.String()))

	h.send(conn, map[string]interface{}{
		"type":      "system",
		"window_id": wid,
		"message":   "connected",
	})

	for {
		var msg types.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			break
		}

		var sendErr error
		switch msg.Type {
		case types.WSEvaluate:
			sendErr = h.handleEvaluate(reqCtx, conn, wid, msg)
		case types.WSGlobals:
			sendErr = h.handleGlobals(conn, wid, msg)
		case types.WSPing:
			sendErr = h.send(conn, map[string]interface{}{"type": "pong", "id": msg.ID})
		default:
			sendErr = h.sendError(conn, msg.ID, "unknown message type")
		}
		if sendErr != nil {
			logger.Debug("WebSocket write error", zap.Error(sendErr))
			break
		}
	}
}

func (h *Handler) handleEvaluate(ctx context.Context, conn *websocket.Conn, wid id.WindowID, msg types.WSMessage) error {
	if err := utils.ValidateScript(msg.Script); err != nil {
		return h.sendError(conn, msg.ID, err.Error())
	}
	if err := utils.ValidateFilename(msg.Filename); err != nil {
		return h.sendError(conn, msg.ID, err.Error())
	}

	result, err := h.manager.Evaluate(ctx, wid, msg.Script, msg.Filename)
	if err != nil {
		return h.sendError(conn, msg.ID, err.Error())
	}
	return h.send(conn, map[string]interface{}{
		"type":      "result",
		"id":        msg.ID,
		"result":    result,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) handleGlobals(conn *websocket.Conn, wid id.WindowID, msg types.WSMessage) error {
	globals, err := h.manager.Globals(wid)
	if err != nil {
		return h.sendError(conn, msg.ID, err.Error())
	}
	return h.send(conn, map[string]interface{}{
		"type":    "globals",
		"id":      msg.ID,
		"globals": globals,
	})
}

func (h *Handler) send(conn *websocket.Conn, data interface{}) error {
	return conn.WriteJSON(data)
}

func (h *Handler) sendError(conn *websocket.Conn, msgID, message string) error {
	return h.send(conn, map[string]interface{}{
		"type":      "error",
		"id":        msgID,
		"message":   message,
		"timestamp": time.Now().Unix(),
	})
}
