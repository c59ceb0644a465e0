package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/monitoring"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/performance"
)

// SystemHandlers report health, recent logs and operation timings
type SystemHandlers struct {
	editorService *services.EditorService
	hub           *messaging.Hub
	cache         interfaces.Purgeable
	cacheMonitor  *monitoring.CachePerformanceMonitor
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
	startedAt     time.Time
}

func NewSystemHandlers(editorService *services.EditorService, hub *messaging.Hub, cache interfaces.Purgeable,
	cacheMonitor *monitoring.CachePerformanceMonitor, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SystemHandlers {
	return &SystemHandlers{
		editorService: editorService,
		hub:           hub,
		cache:         cache,
		cacheMonitor:  cacheMonitor,
		logger:        logger,
		perfTracker:   perfTracker,
		startedAt:     time.Now(),
	}
}

func (h *SystemHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"sessions":    h.editorService.SessionCount(),
		"connections": h.hub.Total(),
	})
}

// Logs returns recent entries filtered by ?channel=, ?level= and ?limit=
func (h *SystemHandlers) Logs(c *gin.Context) {
	minLevel := slog.LevelDebug
	if name := c.Query("level"); name != "" {
		minLevel = logging.ParseLevel(name)
	}
	entries := h.logger.Recent().Entries(logging.Channel(c.Query("channel")), minLevel, queryInt(c, "limit", 200))
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.logger.GetChannelLevels())
}

func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var level slog.Level
	switch req.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log level specified"})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to set log level", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": fmt.Sprintf("Log level for channel '%s' set to '%s'", req.Channel, req.Level)})
}

// Performance returns per-operation stats plus the newest records, optionally
// filtered by ?operation=
func (h *SystemHandlers) Performance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"overall":    h.perfTracker.GetOverallStats(),
		"operations": h.perfTracker.Stats(),
		"recent":     h.perfTracker.Recent(c.Query("operation"), queryInt(c, "limit", 50)),
	})
}

// Cache reports the CMS collection cache and its hit ratios
func (h *SystemHandlers) Cache(c *gin.Context) {
	body := gin.H{"metrics": h.cacheMonitor.GetOverallMetrics()}
	if h.cache != nil {
		body["collections"] = h.cache.Stats()
	}
	c.JSON(http.StatusOK, body)
}
