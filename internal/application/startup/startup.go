// Package startup prepares the application server
package startup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/container"
	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/cleanup"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/library"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/monitoring"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/persistence/content"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pagebuilder-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/pagebuilder-go/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until a
// shutdown signal has been handled
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  pagebuilder-go
` + "\033[97m" + `  made by At Risk Media
` + "\033[0m")

	// Step 1: Channeled logging
	logger, err := logging.NewChanneledLogger(loggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Logger initialized", "level", config.LogLevel, "toFile", config.LogToFile)

	// Step 2: Database
	phase := time.Now()
	if config.DBDriver == database.DriverSQLite || config.DBDriver == "sqlite" || config.DBDriver == "" {
		if err := os.MkdirAll(filepath.Dir(config.DBDSN), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := database.NewConnection(database.Config{
		Driver:          config.DBDriver,
		DSN:             config.DBDSN,
		TursoURL:        config.TursoDatabaseURL,
		TursoAuthToken:  config.TursoAuthToken,
		MaxOpenConns:    config.DBMaxOpenConns,
		MaxIdleConns:    config.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.VerifyConnection(ctx, db); err != nil {
		return fmt.Errorf("database verification failed: %w", err)
	}
	if err := database.NewTableCreator(logger).Migrate(ctx, db); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	logger.LogStartupPhase("database", time.Since(phase), true, map[string]any{"driver": db.Driver()})

	// Step 3: Repositories and caches
	cacheMonitor := monitoring.NewCachePerformanceMonitor(nil)
	collectionCache := stores.NewCollectionStore(config.CMSCacheTTL)
	collectionCache.SetMonitor(cacheMonitor)
	documents := content.NewDocumentRepository(db, logger)
	collections := content.NewCollectionRepository(db, collectionCache, logger)

	// Step 4: Template library
	phase = time.Now()
	templates := library.NewFileLibrary(config.TemplateLibraryDir, logger)
	if err := templates.Load(); err != nil {
		logger.Startup().Warn("Template library loaded with errors", "dir", config.TemplateLibraryDir, "error", err.Error())
	}
	templates.OnReload(func(count int) {
		logger.CMS().Info("Template library reloaded", "templates", count)
	})
	if err := templates.Watch(); err != nil {
		logger.Startup().Warn("Template library will not hot reload", "error", err.Error())
	}
	defer templates.Close()
	logger.LogStartupPhase("templates", time.Since(phase), true, map[string]any{"templates": len(templates.List())})

	// Step 5: Surface tokens
	secret := config.SurfaceTokenSecret
	if secret == "" {
		if secret, err = security.GenerateSecureKey(32); err != nil {
			return fmt.Errorf("failed to generate surface token secret: %w", err)
		}
		logger.Startup().Warn("SURFACE_TOKEN_SECRET not set; surface tokens will not survive a restart")
	}
	tokens, err := security.NewSurfaceTokens(secret, config.SurfaceTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize surface tokens: %w", err)
	}

	// Step 6: Publish notices
	var notifier services.PublishNotifier
	resendClient, err := email.NewService(email.Config{
		APIKey:     config.ResendAPIKey,
		From:       config.EmailFrom,
		To:         config.PublishNotifyEmail,
		PreviewURL: publishedPageURL(),
	}, logger)
	switch {
	case err == nil:
		notifier = resendClient
		logger.Startup().Info("Publish notices enabled", "to", config.PublishNotifyEmail)
	case errors.Is(err, email.ErrNotConfigured):
		logger.Startup().Info("Publish notices disabled")
	default:
		return fmt.Errorf("failed to initialize email client: %w", err)
	}

	// Step 7: Dependency injection container
	appContainer := container.NewContainer(container.Deps{
		Documents:   documents,
		Collections: collections,
		Library:     templates,
		Images:      media.NewImageProcessor(config.MediaDir, logger),
		Notifier:    notifier,
		Tokens:      tokens,
		Cache:       collectionCache,
		Monitor:     cacheMonitor,
		Logger:      logger,
		PerfTracker: performance.NewTracker(performance.DefaultTrackerConfig(), logger),
	}, services.EditorConfig{
		HistoryLimit:  config.HistoryLimit,
		AutosaveDelay: config.AutosaveDelay,
		ErrorBuffer:   config.BoundaryErrorBuffer,
	})
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 8: Background cleanup worker
	cleanupWorker := cleanup.NewWorker(appContainer.EditorService, cleanup.NewConfig(), logger, collectionCache)
	if err := cleanupWorker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cleanup worker: %w", err)
	}

	// Step 9: HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	// Wait for shutdown signal or a server failure
	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
			return err
		}
	}

	shutdownStart := time.Now()

	// Stop the reaper before sessions are flushed
	cancelBackgroundTasks()
	cleanupWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Flushing open sessions...", "sessions", appContainer.EditorService.SessionCount())
	if err := appContainer.EditorService.Shutdown(shutdownCtx); err != nil {
		logger.Shutdown().Error("Some sessions could not be saved", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

func loggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDir
	cfg.JSONFormat = config.LogJSON
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	return cfg
}

// publishedPageURL is the base the document id is appended to in notices
func publishedPageURL() string {
	if config.PublicURL == "" {
		return ""
	}
	return config.PublicURL + "/p"
}

// setupLogging configures gin and the standard logger used before the
// channeled logger exists
func setupLogging() {
	if config.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
