package main

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clipforge/internal/subtitles"
	"clipforge/internal/webhook"
	"clipforge/internal/workflow"
)

type renderSubtitlesRequest struct {
	VideoURL    string `json:"video_url"`
	Template    string `json:"template"`
	AspectRatio string `json:"aspect_ratio"`
}

// submitSubtitleSource registers a source for the direct subtitle pipeline.
func (api *API) submitSubtitleSource(c *gin.Context) {
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

		err = s.Subtitle.SubmitSourceFile(file.Filename, file.Header.Get("Content-Type"), file.Size, data)
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

	if err := s.Subtitle.SubmitSourceURL(req.URL); err != nil {
		respondSubmitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"url": req.URL})
}

// runSubtitleJob advances the subtitle pipeline to the editing state.
func (api *API) runSubtitleJob(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if err := s.Subtitle.Run(c.Request.Context()); err != nil {
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"state":     s.Subtitle.State(),
		"subtitles": s.Subtitle.Subtitles(),
	})
}

func (api *API) getSubtitles(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtitles": s.Subtitle.Subtitles()})
}

func (api *API) updateSubtitles(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req updateSubtitlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := s.Subtitle.UpdateSubtitles(req.Subtitles); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtitles": s.Subtitle.Subtitles()})
}

// importSubtitles replaces the editable subtitles with cues parsed from an
// uploaded SRT or VTT document.
func (api *API) importSubtitles(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 10<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	var cues []subtitles.Cue
	switch c.DefaultQuery("format", "srt") {
	case "srt":
		cues, err = subtitles.ParseSRT(string(body))
	case "vtt":
		cues, err = subtitles.ParseVTT(string(body))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown format; use srt or vtt"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	segments := subtitles.SegmentsFromCues(cues)
	if err := s.Subtitle.UpdateSubtitles(segments); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtitles": segments})
}

func (api *API) exportSubtitles(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	writeSubtitleExport(c, s.Subtitle.Subtitles())
}

// renderSubtitles submits the edited subtitles for the final caption
// render.
func (api *API) renderSubtitles(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req renderSubtitlesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VideoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_url is required"})
		return
	}

	err = s.Subtitle.Render(c.Request.Context(), req.VideoURL, req.Template, req.AspectRatio)
	if err != nil {
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		if strings.Contains(err.Error(), "requires the editing state") {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	state := s.Subtitle.State()
	response := gin.H{"rendered_video_url": state.RenderedVideoURL}

	if api.notifier != nil {
		api.notifier.Notify(webhook.EventRenderCompleted, s.ID, gin.H{
			"rendered_video_url": state.RenderedVideoURL,
		})
	}

	if api.storage != nil && state.RenderedVideoURL != "" {
		log := api.log.WithSessionID(s.ID)
		object, err := api.storage.ArchiveFromURL(c.Request.Context(), state.RenderedVideoURL, s.ID)
		if err != nil {
			log.ErrorWithErr("failed to archive rendered video", err)
		} else {
			response["archived_object"] = object
			if url, err := api.storage.PresignedURL(c.Request.Context(), object, archiveURLExpiry); err != nil {
				log.ErrorWithErr("failed to presign archived video", err)
			} else {
				response["archived_url"] = url
			}
		}
	}

	c.JSON(http.StatusOK, response)
}

func (api *API) subtitleRenderProgress(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"step":     s.Subtitle.State().CurrentStep,
		"progress": s.Subtitle.RenderProgress(),
	})
}
