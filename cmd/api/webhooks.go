package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerWebhookRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

func (api *API) registerWebhook(c *gin.Context) {
	var req registerWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	reg, err := api.notifier.Register(req.URL, req.Secret, req.Events)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, reg)
}

func (api *API) listWebhooks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"webhooks": api.notifier.List()})
}

func (api *API) unregisterWebhook(c *gin.Context) {
	api.notifier.Unregister(c.Param("id"))
	c.Status(http.StatusNoContent)
}
