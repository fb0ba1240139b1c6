package main

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clipforge/internal/session"
)

// listArchivedRenders lists a session's archived renders with presigned
// download links.
func (api *API) listArchivedRenders(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if api.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Archive storage is not configured"})
		return
	}

	objects, err := api.storage.List(c.Request.Context(), archivePrefix(s.ID))
	if err != nil {
		api.log.WithSessionID(s.ID).ErrorWithErr("failed to list archived renders", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list archived renders"})
		return
	}

	entries := make([]gin.H, 0, len(objects))
	for _, object := range objects {
		entry := gin.H{"object": object}
		if url, err := api.storage.PresignedURL(c.Request.Context(), object, archiveURLExpiry); err == nil {
			entry["url"] = url
		}
		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, gin.H{"archives": entries})
}

// downloadArchivedRender streams an archived render through the API, for
// clients that cannot reach the object store directly.
func (api *API) downloadArchivedRender(c *gin.Context) {
	s, object, ok := api.archivedObject(c)
	if !ok {
		return
	}

	reader, err := api.storage.Download(c.Request.Context(), object)
	if err != nil {
		api.log.WithSessionID(s.ID).ErrorWithErr("failed to download archived render", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to download archived render"})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", "video/mp4")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, reader)
}

func (api *API) deleteArchivedRender(c *gin.Context) {
	s, object, ok := api.archivedObject(c)
	if !ok {
		return
	}

	if err := api.storage.Delete(c.Request.Context(), object); err != nil {
		api.log.WithSessionID(s.ID).ErrorWithErr("failed to delete archived render", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to delete archived render"})
		return
	}

	c.Status(http.StatusNoContent)
}

// archivedObject resolves the "object" query parameter and rejects names
// outside the session's archive prefix.
func (api *API) archivedObject(c *gin.Context) (*session.Session, string, bool) {
	s, err := api.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, "", false
	}

	if api.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Archive storage is not configured"})
		return nil, "", false
	}

	object := c.Query("object")
	if !strings.HasPrefix(object, archivePrefix(s.ID)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Object does not belong to this session"})
		return nil, "", false
	}

	return s, object, true
}

func archivePrefix(sessionID string) string {
	return "renders/" + sessionID + "/"
}
