// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/container"
	"github.com/AtRiskMedia/pagebuilder-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/pagebuilder-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/pagebuilder-go/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(config.CORSAllowOrigins))

	// Uploaded images and their variants
	r.Static("/media", config.MediaDir)

	// Initialize handlers
	documentHandlers := handlers.NewDocumentHandlers(container.EditorService, container.Projector, container.Preview, container.Logger)
	sessionHandlers := handlers.NewSessionHandlers(container.EditorService, container.SurfaceTokens, container.Preview, container.Logger, container.PerfTracker)
	elementHandlers := handlers.NewElementHandlers(container.EditorService, container.TemplateService, container.AssetService,
		container.StyleResolver, container.Logger, container.PerfTracker)
	interactionHandlers := handlers.NewInteractionHandlers(container.EditorService)
	surfaceHandlers := handlers.NewSurfaceHandlers(container.EditorService, container.SurfaceTokens, container.Hub,
		config.SurfaceSendBuffer, container.Logger)
	cmsHandlers := handlers.NewCMSHandlers(container.CMSService)
	templateHandlers := handlers.NewTemplateHandlers(container.TemplateService)
	systemHandlers := handlers.NewSystemHandlers(container.EditorService, container.Hub, container.CollectionCache,
		container.CacheMonitor, container.Logger, container.PerfTracker)

	// Render surfaces authenticate with a session-bound token
	surfaceGroup := r.Group("/surface/:sessionId")
	{
		surfaceGroup.GET("", surfaceHandlers.Shell)
		surfaceGroup.GET("/ws", surfaceHandlers.Connect)
	}

	// Published pages
	r.GET("/p/:id", documentHandlers.RenderPublished)

	api := r.Group("/api/v1")
	{
		api.GET("/health", systemHandlers.Health)

		docGroup := api.Group("/documents")
		{
			docGroup.GET("", documentHandlers.ListDocuments)
			docGroup.POST("", documentHandlers.CreateDocument)
			docGroup.GET("/:id", documentHandlers.GetDocument)
			docGroup.GET("/:id/published", documentHandlers.GetPublished)
			docGroup.DELETE("/:id", documentHandlers.DeleteDocument)
		}

		sessionGroup := api.Group("/sessions")
		{
			sessionGroup.GET("", sessionHandlers.ListSessions)
			sessionGroup.POST("", sessionHandlers.OpenSession)
			sessionGroup.GET("/:id", sessionHandlers.GetSession)
			sessionGroup.DELETE("/:id", sessionHandlers.CloseSession)

			sessionGroup.GET("/:id/document", sessionHandlers.GetDocument)
			sessionGroup.PUT("/:id/document", sessionHandlers.ImportDocument)
			sessionGroup.POST("/:id/save", sessionHandlers.Save)
			sessionGroup.POST("/:id/publish", sessionHandlers.Publish)
			sessionGroup.GET("/:id/integrity", sessionHandlers.Integrity)
			sessionGroup.GET("/:id/preview", sessionHandlers.Preview)

			sessionGroup.GET("/:id/elements", elementHandlers.ListElements)
			sessionGroup.POST("/:id/elements", elementHandlers.CreateElement)
			sessionGroup.GET("/:id/elements/:eid", elementHandlers.GetElement)
			sessionGroup.PATCH("/:id/elements/:eid", elementHandlers.UpdateElement)
			sessionGroup.DELETE("/:id/elements/:eid", elementHandlers.DeleteElement)
			sessionGroup.POST("/:id/elements/:eid/move", elementHandlers.MoveElement)
			sessionGroup.POST("/:id/elements/:eid/duplicate", elementHandlers.DuplicateElement)
			sessionGroup.GET("/:id/elements/:eid/styles", elementHandlers.GetStyles)
			sessionGroup.PUT("/:id/elements/:eid/styles", elementHandlers.UpdateStyles)
			sessionGroup.PUT("/:id/elements/:eid/html", elementHandlers.SetHTML)
			sessionGroup.POST("/:id/elements/:eid/image", elementHandlers.AttachImage)

			sessionGroup.POST("/:id/selection", interactionHandlers.Select)
			sessionGroup.POST("/:id/hover", interactionHandlers.Hover)
			sessionGroup.POST("/:id/drag/start", interactionHandlers.DragStart)
			sessionGroup.POST("/:id/drag/target", interactionHandlers.DragTarget)
			sessionGroup.POST("/:id/drag/end", interactionHandlers.DragEnd)
			sessionGroup.POST("/:id/drag/cancel", interactionHandlers.DragCancel)
			sessionGroup.POST("/:id/undo", interactionHandlers.Undo)
			sessionGroup.POST("/:id/redo", interactionHandlers.Redo)
			sessionGroup.PUT("/:id/viewport", interactionHandlers.SetViewport)

			sessionGroup.GET("/:id/surface/status", sessionHandlers.SurfaceStatus)
			sessionGroup.POST("/:id/surface/reset", sessionHandlers.SurfaceReset)
			sessionGroup.POST("/:id/surface/reload", sessionHandlers.SurfaceReload)
			sessionGroup.GET("/:id/errors", sessionHandlers.Errors)
			sessionGroup.DELETE("/:id/errors", sessionHandlers.ClearErrors)
		}

		cmsGroup := api.Group("/cms/collections")
		{
			cmsGroup.GET("", cmsHandlers.ListCollections)
			cmsGroup.GET("/:id", cmsHandlers.GetCollection)
			cmsGroup.PUT("/:id", cmsHandlers.PutCollection)
			cmsGroup.DELETE("/:id", cmsHandlers.DeleteCollection)
		}

		templateGroup := api.Group("/templates")
		{
			templateGroup.GET("", templateHandlers.ListTemplates)
			templateGroup.GET("/:id", templateHandlers.GetTemplate)
		}

		systemGroup := api.Group("/system")
		{
			systemGroup.GET("/logs", systemHandlers.Logs)
			systemGroup.GET("/logs/levels", systemHandlers.GetLogLevels)
			systemGroup.POST("/logs/levels", systemHandlers.SetLogLevel)
			systemGroup.GET("/performance", systemHandlers.Performance)
			systemGroup.GET("/cache", systemHandlers.Cache)
		}
	}

	return r
}
