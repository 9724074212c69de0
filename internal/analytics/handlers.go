package analytics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mdekker/fraudsight/internal/logging"
)

// Handler provides HTTP endpoints for dashboard analytics.
type Handler struct {
	service *Service
}

// NewHandler creates a new analytics handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up analytics routes. Requires the auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/analytics/summary", h.GetSummary)
	r.GET("/analytics/daily", h.GetDaily)
	r.GET("/analytics/flags", h.GetFlags)
}

// GetSummary handles GET /analytics/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.service.GetSummary(c.Request.Context(), c.GetString("authUserID"))
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to compute summary", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to compute analytics",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetDaily handles GET /analytics/daily.
func (h *Handler) GetDaily(c *gin.Context) {
	days, err := h.service.GetDaily(c.Request.Context(), c.GetString("authUserID"))
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to compute daily series", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to compute analytics",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// GetFlags handles GET /analytics/flags.
func (h *Handler) GetFlags(c *gin.Context) {
	limit := 10
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	flags, err := h.service.GetTopFlags(c.Request.Context(), c.GetString("authUserID"), limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to compute top flags", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to compute analytics",
		})
		return
	}
	if flags == nil {
		flags = []*FlagCount{}
	}
	c.JSON(http.StatusOK, gin.H{"flags": flags})
}
