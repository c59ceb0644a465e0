// Package handlers provides the HTTP handlers of the page builder API
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/editor"
	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/media"
)

// errorStatus maps service and domain errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, canvas.ErrElementNotFound),
		errors.Is(err, services.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, canvas.ErrRootImmutable),
		errors.Is(err, canvas.ErrCycle),
		errors.Is(err, canvas.ErrNotContainer),
		errors.Is(err, canvas.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, canvas.ErrInvalidPosition),
		errors.Is(err, services.ErrInvalidDocument),
		errors.Is(err, services.ErrInvalidCollection),
		errors.Is(err, services.ErrNotImage),
		errors.Is(err, media.ErrEmptyImage),
		errors.Is(err, media.ErrInvalidImage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
}

// lookupSession resolves the :id path parameter, answering 404 itself
func lookupSession(c *gin.Context, editorService *services.EditorService) (*editor.Session, bool) {
	session, err := editorService.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	session.Touch()
	return session, true
}

// stateResponse is the common answer of every session mutation
func stateResponse(c *gin.Context, session *editor.Session, extra gin.H) {
	body := gin.H{"state": session.State()}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// queryBreakpoint reads ?breakpoint=, falling back to def when absent or
// unknown
func queryBreakpoint(c *gin.Context, def canvas.Breakpoint) canvas.Breakpoint {
	bp := canvas.Breakpoint(c.Query("breakpoint"))
	if !bp.Valid() {
		return def
	}
	return bp
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func positionOrAppend(p *int) int {
	if p == nil {
		return canvas.AppendPosition
	}
	return *p
}
