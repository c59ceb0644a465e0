package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pagebuilder-go/internal/presentation/templates"
)

// SurfaceHandlers serve the render surface page and its websocket
type SurfaceHandlers struct {
	editorService *services.EditorService
	tokens        *security.SurfaceTokens
	hub           *messaging.Hub
	sendBuffer    int
	upgrader      websocket.Upgrader
	logger        *logging.ChanneledLogger
}

func NewSurfaceHandlers(editorService *services.EditorService, tokens *security.SurfaceTokens, hub *messaging.Hub,
	sendBuffer int, logger *logging.ChanneledLogger) *SurfaceHandlers {
	return &SurfaceHandlers{
		editorService: editorService,
		tokens:        tokens,
		hub:           hub,
		sendBuffer:    sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// surfaces are embedded cross-origin; the token authorizes
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// authorize validates ?token= against the :sessionId path parameter
func (h *SurfaceHandlers) authorize(c *gin.Context) (string, bool) {
	sessionID := c.Param("sessionId")
	if err := h.tokens.Validate(c.Query("token"), sessionID); err != nil {
		h.logger.Sync().Warn("Rejected surface token", "sessionId", sessionID, "error", err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return "", false
	}
	if _, err := h.editorService.GetSession(sessionID); err != nil {
		respondError(c, err)
		return "", false
	}
	return sessionID, true
}

// Shell serves the page a render surface frame loads
func (h *SurfaceHandlers) Shell(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}
	session, err := h.editorService.GetSession(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	err = templates.RenderSurfaceShell(&buf, templates.ShellData{
		SessionID:  sessionID,
		Token:      c.Query("token"),
		Viewport:   session.State().Viewport,
		SocketPath: "/surface/" + sessionID + "/ws",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Connect upgrades to a websocket and bridges it to the session until the
// surface disconnects
func (h *SurfaceHandlers) Connect(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}
	group, err := h.editorService.Surfaces(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.LogError(logging.ChannelSync, "surface:upgrade", err, sessionID, nil)
		return
	}

	client := messaging.NewSurfaceClient(conn, sessionID, h.sendBuffer, h.logger)
	h.hub.Register(client)
	bridge := group.Attach(client)
	defer func() {
		group.Detach(bridge)
		h.hub.Unregister(client)
	}()

	go client.WritePump()
	client.ReadPump(bridge.HandleMessage)
}
