package handler

import (
	"context"
	"errors"
	"net/http"

	"fibre-tracker/internal/models"
	"fibre-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SuburbHandler serves the suburb registry and per-suburb results.
type SuburbHandler struct {
	service SuburbService
}

// SuburbService interface for dependency injection
type SuburbService interface {
	Suburbs(ctx context.Context, state string) ([]service.SuburbStatus, error)
	Result(ctx context.Context, suburb, state string) (*models.FeatureCollection, error)
}

func NewSuburbHandler(svc SuburbService) *SuburbHandler {
	return &SuburbHandler{service: svc}
}

// Suburbs handles GET /suburbs/:state requests
func (h *SuburbHandler) Suburbs(c *gin.Context) {
	suburbs, err := h.service.Suburbs(c.Request.Context(), c.Param("state"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, suburbs)
}

// Result handles GET /suburbs/:state/:suburb requests
func (h *SuburbHandler) Result(c *gin.Context) {
	fc, err := h.service.Result(c.Request.Context(), c.Param("suburb"), c.Param("state"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, fc)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
