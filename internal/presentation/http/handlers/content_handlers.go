package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
)

// CMSHandlers manage CMS collections
type CMSHandlers struct {
	cmsService *services.CMSService
}

func NewCMSHandlers(cmsService *services.CMSService) *CMSHandlers {
	return &CMSHandlers{cmsService: cmsService}
}

func (h *CMSHandlers) ListCollections(c *gin.Context) {
	all, err := h.cmsService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": all, "count": len(all)})
}

// GetCollection accepts an id or a slug
func (h *CMSHandlers) GetCollection(c *gin.Context) {
	col, err := h.cmsService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, col)
}

// PutCollection stores a collection under the id in the path
func (h *CMSHandlers) PutCollection(c *gin.Context) {
	var col cms.Collection
	if err := c.ShouldBindJSON(&col); err != nil {
		badRequest(c, err)
		return
	}
	col.ID = c.Param("id")
	if err := h.cmsService.Upsert(c.Request.Context(), &col); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, col)
}

func (h *CMSHandlers) DeleteCollection(c *gin.Context) {
	id := c.Param("id")
	if err := h.cmsService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "collectionId": id})
}

// TemplateHandlers expose the element template library
type TemplateHandlers struct {
	templateService *services.TemplateService
}

func NewTemplateHandlers(templateService *services.TemplateService) *TemplateHandlers {
	return &TemplateHandlers{templateService: templateService}
}

// ListTemplates filters by ?category= when given
func (h *TemplateHandlers) ListTemplates(c *gin.Context) {
	list := h.templateService.List(c.Query("category"))
	c.JSON(http.StatusOK, gin.H{"templates": list, "count": len(list)})
}

func (h *TemplateHandlers) GetTemplate(c *gin.Context) {
	tpl, err := h.templateService.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}
