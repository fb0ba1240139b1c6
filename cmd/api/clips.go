package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clipforge/internal/clips"
	"clipforge/internal/session"
	"clipforge/internal/subtitles"
	"clipforge/internal/webhook"
	"clipforge/pkg/models"
)

type generateClipsRequest struct {
	CropMode    string `json:"crop_mode"`
	AspectRatio string `json:"aspect_ratio"`
	Template    string `json:"template"`
	Language    string `json:"language"`
}

type updateSubtitlesRequest struct {
	Subtitles []models.TranscriptSegment `json:"subtitles"`
}

type updateTemplateRequest struct {
	Template string `json:"template"`
}

// generateClips turns a completed analysis into a clip batch. The crops run
// synchronously, one clip at a time.
func (api *API) generateClips(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	state := s.Processing.State()
	if state.CurrentStep != models.StepComplete {
		c.JSON(http.StatusConflict, gin.H{"error": "Processing has not completed for this session"})
		return
	}
	if state.Analysis == nil || len(state.Analysis.Clips) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "No clip candidates available"})
		return
	}

	var req generateClipsRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.AspectRatio != "" && !models.IsValidAspectRatio(req.AspectRatio) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown aspect ratio"})
		return
	}
	if req.Template != "" && !models.IsValidTemplate(req.Template) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown template"})
		return
	}
	if req.CropMode != "" && !models.IsValidCropMode(req.CropMode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown crop mode"})
		return
	}

	log := api.log.WithSessionID(s.ID)
	batch := api.generator.Generate(c.Request.Context(), state.UploadedPath, state.Transcript, state.Analysis,
		clips.Options{
			CropMode:    req.CropMode,
			AspectRatio: req.AspectRatio,
			Template:    req.Template,
			Language:    req.Language,
		},
		func(current, total int) {
			log.Infof("clip %d/%d generated", current, total)
		},
	)
	s.SetBatch(batch)

	if api.cache != nil {
		api.cache.IncrementStat(c.Request.Context(), "clip_batches_generated")
	}

	if api.notifier != nil {
		api.notifier.Notify(webhook.EventClipsGenerated, s.ID, gin.H{"count": batch.Len()})
	}

	c.JSON(http.StatusOK, gin.H{"clips": batch.Clips()})
}

func (api *API) listClips(c *gin.Context) {
	_, batch, ok := api.sessionBatch(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"clips": batch.Clips()})
}

func (api *API) getClip(c *gin.Context) {
	_, batch, ok := api.sessionBatch(c)
	if !ok {
		return
	}

	index, ok := clipIndex(c)
	if !ok {
		return
	}

	clip, err := batch.Get(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, clip)
}

func (api *API) updateClipSubtitles(c *gin.Context) {
	_, batch, ok := api.sessionBatch(c)
	if !ok {
		return
	}

	index, ok := clipIndex(c)
	if !ok {
		return
	}

	var req updateSubtitlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := batch.UpdateSubtitles(index, req.Subtitles); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	clip, _ := batch.Get(index)
	c.JSON(http.StatusOK, clip)
}

func (api *API) updateClipTemplate(c *gin.Context) {
	_, batch, ok := api.sessionBatch(c)
	if !ok {
		return
	}

	index, ok := clipIndex(c)
	if !ok {
		return
	}

	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !models.IsValidTemplate(req.Template) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown template"})
		return
	}

	if err := batch.SetTemplate(index, req.Template); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	clip, _ := batch.Get(index)
	c.JSON(http.StatusOK, clip)
}

// renderClip submits one clip for a caption render and waits for it.
// Progress snapshots land in the cache so polling clients never hit the
// render service directly. The finished video is archived to object
// storage when available.
func (api *API) renderClip(c *gin.Context) {
	s, batch, ok := api.sessionBatch(c)
	if !ok {
		return
	}

	index, ok := clipIndex(c)
	if !ok {
		return
	}

	if _, err := batch.Get(index); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err := batch.TryStartRender(index); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	// Snapshot after the claim so a concurrent edit cannot land between
	// the eligibility check and the submission payload.
	clip, _ := batch.Get(index)

	spec := models.RenderSpec{
		VideoURL:    clip.VideoURL,
		Subtitles:   clip.Subtitles,
		Template:    clip.Template,
		Language:    clip.Language,
		AspectRatio: clip.AspectRatio,
	}

	log := api.log.WithSessionID(s.ID).WithClipIndex(index)
	ctx := c.Request.Context()
	jobKey := renderJobKey(s.ID, index)

	if api.cache != nil {
		api.cache.SetRenderJob(ctx, &models.RenderJob{
			JobID:  jobKey,
			Status: models.RenderStatusInProgress,
		}, time.Hour)
	}

	finalURL, err := api.renderer.Render(ctx, spec, func(p float64) {
		if api.cache != nil {
			api.cache.SetRenderProgress(ctx, jobKey, p, time.Hour)
		}
	})
	if err != nil {
		batch.SetRendering(index, false)
		if api.cache != nil {
			api.cache.SetRenderJob(ctx, &models.RenderJob{
				JobID:  jobKey,
				Status: models.RenderStatusFailed,
				Error:  err.Error(),
			}, time.Hour)
		}
		log.ErrorWithErr("clip render failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"rendered_video_url": finalURL}
	if api.storage != nil {
		object, err := api.storage.ArchiveFromURL(ctx, finalURL, s.ID)
		if err != nil {
			log.ErrorWithErr("failed to archive rendered clip", err)
		} else {
			response["archived_object"] = object
			if url, err := api.storage.PresignedURL(ctx, object, archiveURLExpiry); err != nil {
				log.ErrorWithErr("failed to presign archived clip", err)
			} else {
				response["archived_url"] = url
			}
		}
	}

	batch.SetRenderedURL(index, finalURL)

	if api.cache != nil {
		api.cache.SetRenderProgress(ctx, jobKey, 1, time.Hour)
		api.cache.SetRenderJob(ctx, &models.RenderJob{
			JobID:    jobKey,
			Status:   models.RenderStatusCompleted,
			Progress: 1,
			VideoURL: finalURL,
		}, time.Hour)
		api.cache.IncrementStat(ctx, "renders_completed")
	}

	if api.notifier != nil {
		api.notifier.Notify(webhook.EventRenderCompleted, s.ID, gin.H{
			"clip_index":         index,
			"rendered_video_url": finalURL,
		})
	}

	c.JSON(http.StatusOK, response)
}

// clipRenderProgress serves the cached status of a clip render so polling
// clients never reach the render service. A cache miss falls back to the
// batch entry itself.
func (api *API) clipRenderProgress(c *gin.Context) {
	s, batch, ok := api.sessionBatch(c)
	if !ok {
		return
	}

	index, ok := clipIndex(c)
	if !ok {
		return
	}

	clip, err := batch.Get(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	jobKey := renderJobKey(s.ID, index)
	if api.cache != nil {
		job, err := api.cache.GetRenderJob(c.Request.Context(), jobKey)
		if err == nil && job != nil {
			if progress, found, err := api.cache.GetRenderProgress(c.Request.Context(), jobKey); err == nil && found {
				job.Progress = progress
			}
			c.JSON(http.StatusOK, job)
			return
		}
	}

	job := models.RenderJob{JobID: jobKey, Status: models.RenderStatusQueued}
	switch {
	case clip.RenderedVideoURL != "":
		job.Status = models.RenderStatusCompleted
		job.Progress = 1
		job.VideoURL = clip.RenderedVideoURL
	case clip.IsRendering:
		job.Status = models.RenderStatusInProgress
	}
	c.JSON(http.StatusOK, job)
}

func renderJobKey(sessionID string, index int) string {
	return sessionID + ":" + strconv.Itoa(index)
}

// exportClipSubtitles serves a clip's subtitles as SRT or VTT.
func (api *API) exportClipSubtitles(c *gin.Context) {
	_, batch, ok := api.sessionBatch(c)
	if !ok {
		return
	}

	index, ok := clipIndex(c)
	if !ok {
		return
	}

	clip, err := batch.Get(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	writeSubtitleExport(c, clip.Subtitles)
}

func writeSubtitleExport(c *gin.Context, segments []models.TranscriptSegment) {
	cues := subtitles.CuesFromSegments(segments)

	switch c.DefaultQuery("format", "srt") {
	case "srt":
		c.Data(http.StatusOK, "application/x-subrip", []byte(subtitles.FormatSRT(cues)))
	case "vtt":
		c.Data(http.StatusOK, "text/vtt", []byte(subtitles.FormatVTT(cues)))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown format; use srt or vtt"})
	}
}

func (api *API) sessionBatch(c *gin.Context) (*session.Session, *clips.Batch, bool) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, nil, false
	}

	batch := s.Batch()
	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No clips have been generated for this session"})
		return nil, nil, false
	}
	return s, batch, true
}

func clipIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Clip index must be an integer"})
		return 0, false
	}
	return index, true
}
