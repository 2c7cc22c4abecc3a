package handler

import (
	"time"

	"github.com/finance-tracker/internal/middleware"
	"github.com/finance-tracker/internal/notify"
	"github.com/finance-tracker/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsReadLimit = 512
	wsReadWait  = 60 * time.Second
)

// WSHandler upgrades authenticated requests to notification sessions
type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. Browser upgrades are accepted only
// from origins the policy allows.
func NewWSHandler(hub *notify.Hub, origins *middleware.OriginPolicy) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
	}
}

// Notifications holds a websocket open and registers it with the hub.
// Clients only receive; inbound messages are read to process pongs and close frames.
// GET /api/v1/ws
func (h *WSHandler) Notifications(c *gin.Context) {
	userID := middleware.GetUserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		logger.Warn("[WS] upgrade failed for user %d: %v", userID, err)
		return
	}

	session := h.hub.Register(userID, conn)
	defer h.hub.Unregister(session)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
	conn.SetPongHandler(func(string) error {
		session.Touch()
		return conn.SetReadDeadline(time.Now().Add(wsReadWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		session.Touch()
	}
}

// RegisterRoutes registers the websocket route
func (h *WSHandler) RegisterRoutes(rg *gin.RouterGroup, wsAuthMiddleware gin.HandlerFunc) {
	rg.GET("/ws", wsAuthMiddleware, h.Notifications)
}
