package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"coinlens/internal/domain"
)

// GetCoins godoc
// @Summary      List valid coin identifiers
// @Description  Returns the identifiers the market provider recognizes
// @Tags         market
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/coins [get]
func (h *Handler) GetCoins(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-coins")
	defer span.End()

	set := h.fetcher.FetchValidIDs(ctx)
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c.JSON(http.StatusOK, gin.H{
		"ids":   ids,
		"count": len(ids),
	})
}

// GetHistory godoc
// @Summary      Get persisted price history for a coin
// @Description  Returns recorded price points, newest first
// @Tags         market
// @Produce      json
// @Param        id     path   string  true   "Coin identifier (e.g., bitcoin)"
// @Param        limit  query  int     false  "Number of points (default 100, max 1000)"  default(100)
// @Param        from   query  string  false  "Range start, RFC 3339 (requires to)"
// @Param        to     query  string  false  "Range end, RFC 3339 (requires from)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/history/{id} [get]
func (h *Handler) GetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price history unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("coin_id", id))

	if _, ok := h.fetcher.FetchValidIDs(ctx)[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown coin identifier: " + id})
		return
	}

	var points []*domain.PricePoint
	var err error
	if fromRaw, toRaw := c.Query("from"), c.Query("to"); fromRaw != "" || toRaw != "" {
		from, parseErr := time.Parse(time.RFC3339, fromRaw)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp, want RFC 3339"})
			return
		}
		to, parseErr := time.Parse(time.RFC3339, toRaw)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp, want RFC 3339"})
			return
		}
		if to.Before(from) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must not precede from"})
			return
		}
		points, err = h.history.GetHistoryInRange(ctx, id, from, to)
	} else {
		limit := 100
		if l := c.Query("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		points, err = h.history.GetHistory(ctx, id, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coin_id": id,
		"points":  points,
		"count":   len(points),
	})
}
