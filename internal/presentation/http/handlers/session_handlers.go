package handlers

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pagebuilder-go/internal/presentation/templates"
)

// OpenSessionRequest is the body of POST /sessions
type OpenSessionRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
}

// SessionHandlers manage editing sessions: lifecycle, persistence, preview
// and the render surfaces attached to them
type SessionHandlers struct {
	editorService *services.EditorService
	tokens        *security.SurfaceTokens
	preview       *templates.PreviewRenderer
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

func NewSessionHandlers(editorService *services.EditorService, tokens *security.SurfaceTokens, preview *templates.PreviewRenderer,
	logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SessionHandlers {
	return &SessionHandlers{
		editorService: editorService,
		tokens:        tokens,
		preview:       preview,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// OpenSession loads a document for editing and issues a surface token
func (h *SessionHandlers) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	marker := h.perfTracker.StartOperation("session:open", "")
	defer marker.Complete()

	session, err := h.editorService.OpenSession(c.Request.Context(), req.DocumentID)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	token, err := h.tokens.Issue(session.ID())
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	marker.SessionID = session.ID()
	c.JSON(http.StatusOK, gin.H{
		"sessionId":    session.ID(),
		"surfaceToken": token,
		"surfaceUrl":   "/surface/" + session.ID() + "?token=" + token,
		"state":        session.State(),
	})
}

func (h *SessionHandlers) ListSessions(c *gin.Context) {
	states := h.editorService.Sessions()
	c.JSON(http.StatusOK, gin.H{"sessions": states, "count": len(states)})
}

func (h *SessionHandlers) GetSession(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	stateResponse(c, session, gin.H{"history": session.HistoryLabels()})
}

// CloseSession flushes unsaved edits and closes the session
func (h *SessionHandlers) CloseSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.editorService.CloseSession(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessionId": id})
}

// GetDocument returns the live document projection of a session
func (h *SessionHandlers) GetDocument(c *gin.Context) {
	doc, err := h.editorService.Document(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ImportDocument replaces the session tree with the posted document
func (h *SessionHandlers) ImportDocument(c *gin.Context) {
	var doc canvas.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	if err := h.editorService.ImportDocument(session.ID(), &doc); err != nil {
		respondError(c, err)
		return
	}
	stateResponse(c, session, nil)
}

func (h *SessionHandlers) Save(c *gin.Context) {
	h.persist(c, "session:save", h.editorService.SaveDraft)
}

func (h *SessionHandlers) Publish(c *gin.Context) {
	h.persist(c, "session:publish", h.editorService.Publish)
}

func (h *SessionHandlers) persist(c *gin.Context, operation string, fn func(context.Context, string) (*services.SaveResult, error)) {
	id := c.Param("id")
	marker := h.perfTracker.StartOperation(operation, id)
	defer marker.Complete()

	res, err := fn(c.Request.Context(), id)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	marker.AddMetadata("revision", res.Revision)
	c.JSON(http.StatusOK, res)
}

// Integrity runs the structural checks over the live tree
func (h *SessionHandlers) Integrity(c *gin.Context) {
	violations, err := h.editorService.CheckIntegrity(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": len(violations) == 0, "violations": violations})
}

// Preview renders the live tree as standalone HTML
func (h *SessionHandlers) Preview(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	marker := h.perfTracker.StartOperation("preview:render", session.ID())
	defer marker.Complete()

	bp := queryBreakpoint(c, session.State().Viewport)
	var buf bytes.Buffer
	if err := h.preview.Render(&buf, session.Tree(), bp, session.Meta().Name); err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *SessionHandlers) SurfaceStatus(c *gin.Context) {
	group, err := h.editorService.Surfaces(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group.Status())
}

// SurfaceReset clears a surface fault and resynchronises every connection
func (h *SessionHandlers) SurfaceReset(c *gin.Context) {
	group, err := h.editorService.Surfaces(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	group.Reset()
	c.JSON(http.StatusOK, group.Status())
}

// SurfaceReload clears a surface fault and disconnects every connection so
// the surfaces reconnect from scratch
func (h *SessionHandlers) SurfaceReload(c *gin.Context) {
	group, err := h.editorService.Surfaces(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := group.Reload(); err != nil {
		h.logger.Sync().Warn("Surface reload reported errors", "sessionId", c.Param("id"), "error", err.Error())
	}
	c.JSON(http.StatusOK, group.Status())
}

// Errors lists recorded boundary errors, newest last
func (h *SessionHandlers) Errors(c *gin.Context) {
	group, err := h.editorService.Surfaces(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	list := group.Errors().List()
	c.JSON(http.StatusOK, gin.H{"errors": list, "count": len(list), "total": group.Errors().Total()})
}

func (h *SessionHandlers) ClearErrors(c *gin.Context) {
	group, err := h.editorService.Surfaces(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	group.Errors().Clear()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
