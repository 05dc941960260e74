package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetMarket godoc
// @Summary      Get the current market snapshot
// @Description  Returns cached or freshly fetched market data for the tracked coins
// @Tags         market
// @Produce      json
// @Param        min   query  int     false  "Minimum number of coins considered sufficient"
// @Param        q     query  string  false  "Filter coins by identifier, symbol or name"
// @Param        diag  query  bool    false  "Log skipped upstream records"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/market [get]
func (h *Handler) GetMarket(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-market")
	defer span.End()

	minCount := 0
	if v := c.Query("min"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minCount = n
		}
	}
	diagnostic := c.Query("diag") == "true" || c.Query("diag") == "1"

	snapshot := h.fetcher.FetchMarketData(ctx, minCount, diagnostic)
	degraded := snapshot.IsEmergency()
	span.SetAttributes(attribute.Int("coins", len(snapshot)), attribute.Bool("degraded", degraded))

	if q := c.Query("q"); q != "" {
		snapshot = snapshot.Filter(q)
	}

	c.JSON(http.StatusOK, gin.H{
		"coins":    snapshot,
		"count":    len(snapshot),
		"degraded": degraded,
	})
}
