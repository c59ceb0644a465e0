// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/application/surface"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
	domain "github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/monitoring"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pagebuilder-go/internal/presentation/templates"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	EditorService   *services.EditorService
	CMSService      *services.CMSService
	TemplateService *services.TemplateService
	AssetService    *services.AssetService

	// Domain Services (stateless)
	StyleResolver   *domain.StyleResolver
	BindingResolver *domain.BindingResolver
	Integrity       *domain.TreeIntegrityService
	Projector       *domain.DocumentProjector
	Renderer        *surface.Renderer
	Preview         *templates.PreviewRenderer

	// Infrastructure Dependencies
	Hub             *messaging.Hub
	SurfaceTokens   *security.SurfaceTokens
	CollectionCache interfaces.Purgeable
	CacheMonitor    *monitoring.CachePerformanceMonitor
	Logger          *logging.ChanneledLogger
	PerfTracker     *performance.Tracker
}

// Deps are the infrastructure pieces built during startup
type Deps struct {
	Documents   repositories.DocumentRepository
	Collections repositories.CollectionRepository
	Library     repositories.TemplateRepository
	Images      services.ImageProcessor
	Notifier    services.PublishNotifier // optional
	Tokens      *security.SurfaceTokens
	Cache       interfaces.Purgeable // optional
	Monitor     *monitoring.CachePerformanceMonitor
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
}

// NewContainer creates and wires all singleton services. CMS writes
// re-render every open surface so bindings stay current.
func NewContainer(deps Deps, editorConfig services.EditorConfig) *Container {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	perfTracker := deps.PerfTracker
	if perfTracker == nil {
		perfTracker = performance.NewTracker(performance.DefaultTrackerConfig(), logger)
	}

	monitor := deps.Monitor
	if monitor == nil {
		monitor = monitoring.NewCachePerformanceMonitor(nil)
	}

	styles := domain.NewStyleResolver()
	bindings := domain.NewBindingResolver()
	integrity := domain.NewTreeIntegrityService()
	projector := domain.NewDocumentProjector(integrity)

	cmsService := services.NewCMSService(deps.Collections, logger)
	renderer := surface.NewRenderer(styles, bindings, cmsService)

	editorService := services.NewEditorService(services.EditorDeps{
		Documents: deps.Documents,
		Projector: projector,
		Integrity: integrity,
		Renderer:  renderer,
		Templates: deps.Library,
		Notifier:  deps.Notifier,
		Logger:    logger,
	}, editorConfig)
	cmsService.OnChange(editorService.ResyncSurfaces)

	return &Container{
		EditorService:   editorService,
		CMSService:      cmsService,
		TemplateService: services.NewTemplateService(deps.Library),
		AssetService:    services.NewAssetService(deps.Images, logger),

		StyleResolver:   styles,
		BindingResolver: bindings,
		Integrity:       integrity,
		Projector:       projector,
		Renderer:        renderer,
		Preview:         templates.NewPreviewRenderer(renderer, styles),

		Hub:             messaging.NewHub(logger),
		SurfaceTokens:   deps.Tokens,
		CollectionCache: deps.Cache,
		CacheMonitor:    monitor,
		Logger:          logger,
		PerfTracker:     perfTracker,
	}
}
