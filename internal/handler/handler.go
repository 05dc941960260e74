package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"coinlens/internal/domain"
)

// Fetcher is the slice of the fetch pipeline the HTTP layer consumes.
type Fetcher interface {
	FetchMarketData(ctx context.Context, minCount int, diagnostic bool) domain.Snapshot
	FetchNews(ctx context.Context) []domain.NewsItem
	FetchSentiment(ctx context.Context) domain.SentimentSummary
	FetchValidIDs(ctx context.Context) map[string]struct{}
	ClearAllCaches(ctx context.Context) error
	ClearRateLimits(ctx context.Context) error
	Status(ctx context.Context) domain.FetchStatus
}

// HistoryReader serves persisted price points. It is nil when no
// database is configured.
type HistoryReader interface {
	GetHistory(ctx context.Context, coinID string, limit int) ([]*domain.PricePoint, error)
	GetHistoryInRange(ctx context.Context, coinID string, from, to time.Time) ([]*domain.PricePoint, error)
}

type Handler struct {
	tracer   trace.Tracer
	fetcher  Fetcher
	history  HistoryReader
	adminKey string
}

func New(tracer trace.Tracer, fetcher Fetcher, history HistoryReader, adminKey string) *Handler {
	return &Handler{
		tracer:   tracer,
		fetcher:  fetcher,
		history:  history,
		adminKey: adminKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/market", h.GetMarket)
	api.GET("/news", h.GetNews)
	api.GET("/sentiment", h.GetSentiment)
	api.GET("/coins", h.GetCoins)
	api.GET("/history/:id", h.GetHistory)
	api.GET("/status", h.GetStatus)

	admin := api.Group("/admin", APIKeyAuth(h.adminKey))
	admin.POST("/cache/clear", h.ClearCaches)
	admin.POST("/ratelimits/clear", h.ClearRateLimits)
}
