package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	domain "github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
)

// ElementRefRequest names an element; a null id clears
type ElementRefRequest struct {
	ElementID *string `json:"elementId"`
}

type DragStartRequest struct {
	ElementID string `json:"elementId" binding:"required"`
}

// DragTargetRequest carries either an explicit position or the pointer
// geometry the position is computed from
type DragTargetRequest struct {
	TargetID string              `json:"targetId" binding:"required"`
	Position canvas.DropPosition `json:"position"`
	Pointer  *struct {
		OffsetY float64 `json:"offsetY"`
		Height  float64 `json:"height"`
	} `json:"pointer"`
}

type ViewportRequest struct {
	Viewport canvas.Breakpoint `json:"viewport" binding:"required"`
}

// InteractionHandlers drive selection, hover, drag, history and viewport
type InteractionHandlers struct {
	editorService *services.EditorService
}

func NewInteractionHandlers(editorService *services.EditorService) *InteractionHandlers {
	return &InteractionHandlers{editorService: editorService}
}

func (h *InteractionHandlers) Select(c *gin.Context) {
	var req ElementRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	session.Select(req.ElementID)
	stateResponse(c, session, nil)
}

func (h *InteractionHandlers) Hover(c *gin.Context) {
	var req ElementRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	session.Hover(req.ElementID)
	stateResponse(c, session, nil)
}

func (h *InteractionHandlers) DragStart(c *gin.Context) {
	var req DragStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	if err := session.StartDrag(req.ElementID); err != nil {
		respondError(c, err)
		return
	}
	stateResponse(c, session, nil)
}

func (h *InteractionHandlers) DragTarget(c *gin.Context) {
	var req DragTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	pos := req.Position
	if req.Pointer != nil {
		target, found := session.Element(req.TargetID)
		if !found {
			respondError(c, canvas.ErrElementNotFound)
			return
		}
		pos = domain.DropPositionFor(req.Pointer.OffsetY, req.Pointer.Height, target.CanHaveChildren())
	}
	if !pos.Valid() {
		respondError(c, fmt.Errorf("%w: %q", canvas.ErrInvalidPosition, pos))
		return
	}
	if err := session.UpdateDragTarget(req.TargetID, pos); err != nil {
		respondError(c, err)
		return
	}
	stateResponse(c, session, nil)
}

// DragEnd commits the in-flight drag; the drag is cleared either way
func (h *InteractionHandlers) DragEnd(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	moved, err := session.EndDrag()
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error(), "moved": false, "state": session.State()})
		return
	}
	stateResponse(c, session, gin.H{"moved": moved})
}

func (h *InteractionHandlers) DragCancel(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	session.CancelDrag()
	stateResponse(c, session, nil)
}

func (h *InteractionHandlers) Undo(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	applied := session.Undo()
	stateResponse(c, session, gin.H{"applied": applied})
}

func (h *InteractionHandlers) Redo(c *gin.Context) {
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	applied := session.Redo()
	stateResponse(c, session, gin.H{"applied": applied})
}

func (h *InteractionHandlers) SetViewport(c *gin.Context) {
	var req ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := lookupSession(c, h.editorService)
	if !ok {
		return
	}
	if err := session.SetViewport(req.Viewport); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stateResponse(c, session, nil)
}
