package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStatus godoc
// @Summary      Inspect the fetch pipeline
// @Description  Reports cache ages, active rate limits and auth failures without touching upstream APIs
// @Tags         admin
// @Produce      json
// @Success      200  {object}  domain.FetchStatus
// @Router       /api/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-status")
	defer span.End()

	c.JSON(http.StatusOK, h.fetcher.Status(ctx))
}

// ClearCaches godoc
// @Summary      Clear every cached payload
// @Description  Drops cached market data, news, sentiment, coin lists, locks and rate-limit records
// @Tags         admin
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/admin/cache/clear [post]
func (h *Handler) ClearCaches(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.clear-caches")
	defer span.End()

	if err := h.fetcher.ClearAllCaches(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// ClearRateLimits godoc
// @Summary      Clear rate-limit records
// @Description  Drops active rate-limit blocks so the next fetch goes upstream again
// @Tags         admin
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/admin/ratelimits/clear [post]
func (h *Handler) ClearRateLimits(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.clear-rate-limits")
	defer span.End()

	if err := h.fetcher.ClearRateLimits(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
