package main

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clipforge/internal/cache"
	"clipforge/internal/clips"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/middleware"
	"clipforge/internal/queue"
	"clipforge/internal/session"
	"clipforge/internal/webhook"
	"clipforge/internal/workflow"
)

// Presigned archive links stay valid for a day.
const archiveURLExpiry = 24 * time.Hour

// Archiver is the slice of the object store the handlers use.
type Archiver interface {
	ArchiveFromURL(ctx context.Context, sourceURL, sessionID string) (string, error)
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// API wires the HTTP surface to the pipeline collaborators.
type API struct {
	sessions  *session.Manager
	generator *clips.Generator
	renderer  workflow.Renderer
	cache     *cache.Cache
	queue     *queue.Queue
	storage   Archiver
	notifier  *webhook.Notifier
	log       *logging.Logger
}

func setupRouter(api *API, cfg config.ServerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(api.log))

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router.GET("/health", api.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(rl))
	{
		// Sessions
		v1.POST("/sessions", api.createSession)
		v1.GET("/sessions/:id", api.getSession)
		v1.DELETE("/sessions/:id", api.deleteSession)
		v1.POST("/sessions/:id/reset", api.resetSession)

		// Processing pipeline
		v1.POST("/sessions/:id/source", api.submitSource)
		v1.POST("/sessions/:id/process", api.process)
		v1.POST("/sessions/:id/process/async", api.processAsync)

		// Clip batch
		v1.POST("/sessions/:id/clips", api.generateClips)
		v1.GET("/sessions/:id/clips", api.listClips)
		v1.GET("/sessions/:id/clips/:index", api.getClip)
		v1.PUT("/sessions/:id/clips/:index/subtitles", api.updateClipSubtitles)
		v1.PUT("/sessions/:id/clips/:index/template", api.updateClipTemplate)
		v1.POST("/sessions/:id/clips/:index/render", api.renderClip)
		v1.GET("/sessions/:id/clips/:index/render/progress", api.clipRenderProgress)
		v1.GET("/sessions/:id/clips/:index/subtitles/export", api.exportClipSubtitles)

		// Archived renders
		v1.GET("/sessions/:id/archive", api.listArchivedRenders)
		v1.GET("/sessions/:id/archive/download", api.downloadArchivedRender)
		v1.DELETE("/sessions/:id/archive", api.deleteArchivedRender)

		// Direct subtitle pipeline
		v1.POST("/sessions/:id/subtitles/source", api.submitSubtitleSource)
		v1.POST("/sessions/:id/subtitles/run", api.runSubtitleJob)
		v1.GET("/sessions/:id/subtitles", api.getSubtitles)
		v1.PUT("/sessions/:id/subtitles", api.updateSubtitles)
		v1.POST("/sessions/:id/subtitles/import", api.importSubtitles)
		v1.GET("/sessions/:id/subtitles/export", api.exportSubtitles)
		v1.POST("/sessions/:id/subtitles/render", api.renderSubtitles)
		v1.GET("/sessions/:id/subtitles/progress", api.subtitleRenderProgress)

		// Webhooks
		v1.POST("/webhooks", api.registerWebhook)
		v1.GET("/webhooks", api.listWebhooks)
		v1.DELETE("/webhooks/:id", api.unregisterWebhook)

		v1.GET("/stats", api.getStats)
	}

	return router
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := gin.H{
		"status":   "healthy",
		"sessions": api.sessions.Len(),
	}

	if api.cache != nil {
		if err := api.cache.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	if api.queue != nil {
		if depth, err := api.queue.Depth(); err == nil {
			health["queue_depth"] = depth
		}
	}

	c.JSON(http.StatusOK, health)
}
