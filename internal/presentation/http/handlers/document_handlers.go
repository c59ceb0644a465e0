package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	domain "github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/presentation/templates"
)

// CreateDocumentRequest is the body of POST /documents
type CreateDocumentRequest struct {
	Name string `json:"name" binding:"required"`
}

// DocumentHandlers serve stored documents
type DocumentHandlers struct {
	editorService *services.EditorService
	projector     *domain.DocumentProjector
	preview       *templates.PreviewRenderer
	logger        *logging.ChanneledLogger
}

func NewDocumentHandlers(editorService *services.EditorService, projector *domain.DocumentProjector,
	preview *templates.PreviewRenderer, logger *logging.ChanneledLogger) *DocumentHandlers {
	return &DocumentHandlers{editorService: editorService, projector: projector, preview: preview, logger: logger}
}

// ListDocuments returns the summaries of every stored document
func (h *DocumentHandlers) ListDocuments(c *gin.Context) {
	start := time.Now()
	docs, err := h.editorService.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Persistence().Debug("List documents request completed", "count", len(docs), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// CreateDocument stores a new empty draft
func (h *DocumentHandlers) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	doc, err := h.editorService.CreateDocument(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// GetDocument returns the draft, or the live projection when open
func (h *DocumentHandlers) GetDocument(c *gin.Context) {
	doc, err := h.editorService.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandlers) GetPublished(c *gin.Context) {
	doc, err := h.editorService.GetPublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument discards any open session and deletes the document
func (h *DocumentHandlers) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.editorService.DeleteDocument(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Persistence().Info("Document deleted", "documentId", id)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "documentId": id})
}

// RenderPublished serves the published version of a document as a page
func (h *DocumentHandlers) RenderPublished(c *gin.Context) {
	doc, err := h.editorService.GetPublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	tree, err := h.projector.ToTree(doc)
	if err != nil {
		h.logger.LogError(logging.ChannelPersistence, "document:render_published", err, "", map[string]any{"documentId": doc.ID})
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := h.preview.Render(&buf, tree, queryBreakpoint(c, ""), doc.Name); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
