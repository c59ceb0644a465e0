package handlers

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	domain "github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/performance"
)

// CreateElementRequest creates either from inline data or from a library
// template when TemplateID is set
type CreateElementRequest struct {
	Data       canvas.ElementData `json:"data"`
	TemplateID string             `json:"templateId"`
	ParentID   string             `json:"parentId"`
	Position   *int               `json:"position"`
}

// MoveElementRequest moves to an explicit parent slot, or relative to a
// target when TargetID is set
type MoveElementRequest struct {
	ParentID     string              `json:"parentId"`
	Position     *int                `json:"position"`
	TargetID     string              `json:"targetId"`
	DropPosition canvas.DropPosition `json:"dropPosition"`
}

type UpdateStylesRequest struct {
	Layer  canvas.StyleLayer `json:"layer" binding:"required"`
	Styles canvas.StyleMap   `json:"styles" binding:"required"`
}

type SetHTMLRequest struct {
	HTML string `json:"html"`
}

type AttachImageRequest struct {
	DataURL string `json:"dataUrl" binding:"required"`
}

// ElementHandlers expose the mutation API of a session
type ElementHandlers struct {
	editorService   *services.EditorService
	templateService *services.TemplateService
	assetService    *services.AssetService
	styles          *domain.StyleResolver
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

func NewElementHandlers(editorService *services.EditorService, templateService *services.TemplateService,
	assetService *services.AssetService, styles *domain.StyleResolver,
	logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ElementHandlers {
	return &ElementHandlers{
		editorService:   editorService,
		templateService: templateService,
		assetService:    assetService,
		styles:          styles,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// ListElements returns every element of the session keyed by id
func (h *ElementHandlers) ListElements(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	tree := session.Tree()
	c.JSON(http.StatusOK, gin.H{
		"rootId":   tree.Root(),
		"elements": tree.Snapshot(),
		"count":    tree.Len(),
	})
}

func (h *ElementHandlers) GetElement(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	el, found := session.Element(c.Param("eid"))
	if !found {
		respondError(c, canvas.ErrElementNotFound)
		return
	}
	c.JSON(http.StatusOK, el)
}

func (h *ElementHandlers) CreateElement(c *gin.Context) {
	var req CreateElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}

	var (
		id  string
		err error
	)
	if req.TemplateID != "" {
		id, err = h.templateService.Instantiate(session, req.TemplateID, req.ParentID, positionOrAppend(req.Position))
	} else {
		id, err = session.CreateElement(req.Data, req.ParentID, positionOrAppend(req.Position))
	}
	if err != nil {
		respondError(c, err)
		return
	}
	el, _ := session.Element(id)
	c.JSON(http.StatusCreated, gin.H{"elementId": id, "element": el, "state": session.State()})
}

// UpdateElement applies a shallow patch. A patch naming a missing element
// is a 404; an empty or no-op patch reports changed=false.
func (h *ElementHandlers) UpdateElement(c *gin.Context) {
	var patch canvas.ElementPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	id := c.Param("eid")
	if !session.Has(id) {
		respondError(c, canvas.ErrElementNotFound)
		return
	}
	changed, err := session.UpdateElement(id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	el, _ := session.Element(id)
	stateResponse(c, session, gin.H{"changed": changed, "element": el})
}

func (h *ElementHandlers) DeleteElement(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	id := c.Param("eid")
	existed := session.Has(id)
	if err := session.DeleteElement(id); err != nil {
		respondError(c, err)
		return
	}
	stateResponse(c, session, gin.H{"deleted": existed})
}

func (h *ElementHandlers) MoveElement(c *gin.Context) {
	var req MoveElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	id := c.Param("eid")

	var err error
	if req.TargetID != "" {
		if !req.DropPosition.Valid() {
			respondError(c, fmt.Errorf("%w: %q", canvas.ErrInvalidPosition, req.DropPosition))
			return
		}
		err = session.MoveRelative(id, req.TargetID, req.DropPosition)
	} else {
		err = session.MoveElement(id, req.ParentID, positionOrAppend(req.Position))
	}
	if err != nil {
		respondError(c, err)
		return
	}
	stateResponse(c, session, nil)
}

func (h *ElementHandlers) DuplicateElement(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	cloneID, err := session.DuplicateElement(c.Param("eid"))
	if err != nil {
		respondError(c, err)
		return
	}
	if cloneID == "" {
		respondError(c, canvas.ErrElementNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"elementId": cloneID, "state": session.State()})
}

// UpdateStyles merges one style layer; empty values unset keys
func (h *ElementHandlers) UpdateStyles(c *gin.Context) {
	var req UpdateStylesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Layer.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown style layer %q", req.Layer)})
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	id := c.Param("eid")
	if !session.Has(id) {
		respondError(c, canvas.ErrElementNotFound)
		return
	}
	changed := session.UpdateStyles(id, req.Layer, req.Styles)
	stateResponse(c, session, gin.H{"changed": changed})
}

// GetStyles resolves the cascade for ?breakpoint= and ?state=
func (h *ElementHandlers) GetStyles(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	el, found := session.Element(c.Param("eid"))
	if !found {
		respondError(c, canvas.ErrElementNotFound)
		return
	}
	bp := queryBreakpoint(c, session.State().Viewport)
	state := canvas.InteractionState(c.Query("state"))
	if !state.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown interaction state %q", state)})
		return
	}
	resolved := h.styles.Resolve(el, bp, state)
	keys := make([]string, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	c.JSON(http.StatusOK, gin.H{
		"elementId":  el.ID,
		"breakpoint": bp,
		"state":      state,
		"styles":     resolved,
		"properties": keys,
		"css":        h.styles.CSSDeclarations(resolved),
	})
}

// SetHTML replaces innerHTML and derives the plain text content
func (h *ElementHandlers) SetHTML(c *gin.Context) {
	var req SetHTMLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	id := c.Param("eid")
	if !session.Has(id) {
		respondError(c, canvas.ErrElementNotFound)
		return
	}
	changed, err := session.SetInnerHTML(id, req.HTML)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	el, _ := session.Element(id)
	stateResponse(c, session, gin.H{"changed": changed, "element": el})
}

// AttachImage uploads a data URL and points the img element at its variants
func (h *ElementHandlers) AttachImage(c *gin.Context) {
	var req AttachImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	marker := h.perfTracker.StartOperation("asset:attach_image", session.ID())
	defer marker.Complete()

	img, err := h.assetService.AttachImage(c.Request.Context(), session, c.Param("eid"), req.DataURL)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	marker.AddMetadata("variants", len(img.Variants))
	stateResponse(c, session, gin.H{"image": img})
}
