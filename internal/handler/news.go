package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetNews godoc
// @Summary      Get recent crypto news
// @Description  Returns cached or freshly fetched news items with per-article sentiment
// @Tags         news
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/news [get]
func (h *Handler) GetNews(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-news")
	defer span.End()

	items := h.fetcher.FetchNews(ctx)
	span.SetAttributes(attribute.Int("articles", len(items)))

	c.JSON(http.StatusOK, gin.H{
		"articles": items,
		"count":    len(items),
	})
}

// GetSentiment godoc
// @Summary      Get aggregate market sentiment
// @Description  Returns the time-decay weighted sentiment over recent news
// @Tags         news
// @Produce      json
// @Success      200  {object}  domain.SentimentSummary
// @Router       /api/sentiment [get]
func (h *Handler) GetSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sentiment")
	defer span.End()

	summary := h.fetcher.FetchSentiment(ctx)
	span.SetAttributes(attribute.Float64("score", summary.Score))

	c.JSON(http.StatusOK, summary)
}
