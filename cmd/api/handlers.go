package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clipforge/internal/session"
	"clipforge/internal/webhook"
	"clipforge/internal/workflow"
	"clipforge/pkg/models"
)

type sourceRequest struct {
	URL string `json:"url"`
}

type processAsyncRequest struct {
	SourceURL   string `json:"source_url"`
	Language    string `json:"language"`
	AspectRatio string `json:"aspect_ratio"`
}

func (api *API) createSession(c *gin.Context) {
	s := api.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID,
		"created_at": s.CreatedAt,
	})
}

func (api *API) getSession(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"created_at": s.CreatedAt,
		"state":      s.Processing.State(),
	})
}

func (api *API) deleteSession(c *gin.Context) {
	if s, err := api.sessions.Get(c.Param("id")); err == nil {
		api.dropCachedRenderJobs(c, s)
	}
	api.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (api *API) resetSession(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	api.dropCachedRenderJobs(c, s)
	s.Processing.Reset()
	s.Subtitle.Reset()
	s.SetBatch(nil)
	c.JSON(http.StatusOK, gin.H{"state": s.Processing.State()})
}

// dropCachedRenderJobs clears the cached render state of a session's clips
// so a reused session never reports a stale render.
func (api *API) dropCachedRenderJobs(c *gin.Context, s *session.Session) {
	if api.cache == nil {
		return
	}
	batch := s.Batch()
	if batch == nil {
		return
	}
	for i := 0; i < batch.Len(); i++ {
		api.cache.DeleteRenderJob(c.Request.Context(), renderJobKey(s.ID, i))
	}
}

// getStats reports the pipeline counters accumulated in Redis.
func (api *API) getStats(c *gin.Context) {
	if api.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stats are unavailable without a cache"})
		return
	}

	stats := gin.H{}
	for _, name := range []string{"clip_batches_generated", "renders_completed"} {
		value, err := api.cache.GetStat(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stats"})
			return
		}
		stats[name] = value
	}

	c.JSON(http.StatusOK, stats)
}

// submitSource accepts either a multipart upload under "file" or a JSON
// body carrying a video URL.
func (api *API) submitSource(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if file, err := c.FormFile("file"); err == nil {
		data, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open upload"})
			return
		}

		err = s.Processing.SubmitSourceFile(file.Filename, file.Header.Get("Content-Type"), file.Size, data)
		if err != nil {
			data.Close()
			respondSubmitError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"filename": file.Filename, "size": file.Size})
		return
	}

	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a video file or a url"})
		return
	}

	if err := s.Processing.SubmitSourceURL(req.URL); err != nil {
		respondSubmitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"url": req.URL})
}

// process runs the full pipeline synchronously and returns the final
// state. A stage failure still answers 200: the state carries the error
// and the caller decides how to surface it.
func (api *API) process(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if err := s.Processing.Run(c.Request.Context()); err != nil {
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
	}

	state := s.Processing.State()
	if api.notifier != nil {
		if state.CurrentStep == models.StepComplete {
			api.notifier.Notify(webhook.EventProcessingCompleted, s.ID, state.Analysis)
		} else if state.CurrentStep == models.StepError {
			api.notifier.Notify(webhook.EventProcessingFailed, s.ID, gin.H{"error": state.Error})
		}
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

// processAsync enqueues the run for the worker instead of blocking the
// request.
func (api *API) processAsync(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if api.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Async processing is not available"})
		return
	}

	var req processAsyncRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SourceURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_url is required"})
		return
	}

	if err := workflow.ValidateSourceURL(req.SourceURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &models.ProcessRequest{
		SessionID:   s.ID,
		SourceURL:   req.SourceURL,
		Language:    req.Language,
		AspectRatio: req.AspectRatio,
	}
	if err := api.queue.PublishProcessRequest(c.Request.Context(), job); err != nil {
		api.log.WithSessionID(s.ID).ErrorWithErr("failed to enqueue process request", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue request"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"session_id": s.ID, "queued": true})
}

func respondSubmitError(c *gin.Context, err error) {
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
}
