package handler

import (
	"context"
	"net/http"

	"fibre-tracker/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ProgressHandler serves the upgrade tracking progress.
type ProgressHandler struct {
	service ProgressService
}

// ProgressService interface for dependency injection
type ProgressService interface {
	Progress(context.Context) (models.ProgressReport, error)
}

func NewProgressHandler(svc ProgressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// Progress handles GET /progress requests
func (h *ProgressHandler) Progress(c *gin.Context) {
	report, err := h.service.Progress(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("progress failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, report)
}
