package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"coinlens/internal/domain"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("handler-test")

type stubFetcher struct {
	snapshot domain.Snapshot
	news     []domain.NewsItem
	summary  domain.SentimentSummary
	ids      map[string]struct{}
	status   domain.FetchStatus
	clearErr error
}

func (s *stubFetcher) FetchMarketData(_ context.Context, _ int, _ bool) domain.Snapshot {
	return s.snapshot
}
func (s *stubFetcher) FetchNews(_ context.Context) []domain.NewsItem { return s.news }
func (s *stubFetcher) FetchSentiment(_ context.Context) domain.SentimentSummary {
	return s.summary
}
func (s *stubFetcher) FetchValidIDs(_ context.Context) map[string]struct{} { return s.ids }
func (s *stubFetcher) ClearAllCaches(_ context.Context) error              { return s.clearErr }
func (s *stubFetcher) ClearRateLimits(_ context.Context) error             { return s.clearErr }
func (s *stubFetcher) Status(_ context.Context) domain.FetchStatus         { return s.status }

type stubHistory struct {
	points    []*domain.PricePoint
	err       error
	rangeFrom time.Time
	rangeTo   time.Time
}

func (s *stubHistory) GetHistory(_ context.Context, _ string, _ int) ([]*domain.PricePoint, error) {
	return s.points, s.err
}

func (s *stubHistory) GetHistoryInRange(_ context.Context, _ string, from, to time.Time) ([]*domain.PricePoint, error) {
	s.rangeFrom, s.rangeTo = from, to
	return s.points, s.err
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestHealth(t *testing.T) {
	h := New(testTracer, &stubFetcher{}, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if body != "{\"status\":\"healthy\"}\n" && body != "{\"status\":\"healthy\"}" {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestGetMarket(t *testing.T) {
	fetcher := &stubFetcher{snapshot: domain.Snapshot{
		"bitcoin":  {ID: "bitcoin", Symbol: "BTC", PriceUSD: decimal.NewFromInt(97000)},
		"ethereum": {ID: "ethereum", Symbol: "ETH", PriceUSD: decimal.NewFromInt(3500)},
	}}
	h := New(testTracer, fetcher, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/market", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Coins    domain.Snapshot `json:"coins"`
		Count    int             `json:"count"`
		Degraded bool            `json:"degraded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Count != 2 || body.Degraded {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestGetMarketFilter(t *testing.T) {
	fetcher := &stubFetcher{snapshot: domain.Snapshot{
		"bitcoin":  {ID: "bitcoin"},
		"ethereum": {ID: "ethereum"},
	}}
	h := New(testTracer, fetcher, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/market?q=bit", nil)
	r.ServeHTTP(w, req)

	var body struct {
		Coins domain.Snapshot `json:"coins"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(body.Coins) != 1 {
		t.Fatalf("expected filtered snapshot, got %d coins", len(body.Coins))
	}
	if _, ok := body.Coins["bitcoin"]; !ok {
		t.Fatal("expected bitcoin to match the filter")
	}
}

func TestGetMarketDegraded(t *testing.T) {
	h := New(testTracer, &stubFetcher{snapshot: domain.EmergencySnapshot()}, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/market", nil)
	r.ServeHTTP(w, req)

	var body struct {
		Degraded bool `json:"degraded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if !body.Degraded {
		t.Fatal("expected degraded flag for emergency snapshot")
	}
}

func TestGetNews(t *testing.T) {
	fetcher := &stubFetcher{news: []domain.NewsItem{
		{Title: "Bitcoin rallies", Sentiment: domain.Sentiment{Score: 0.7, Label: "Positive"}},
	}}
	h := New(testTracer, fetcher, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	r.ServeHTTP(w, req)

	var body struct {
		Articles []domain.NewsItem `json:"articles"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Count != 1 || body.Articles[0].Title != "Bitcoin rallies" {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestGetSentiment(t *testing.T) {
	fetcher := &stubFetcher{summary: domain.SentimentSummary{Score: 0.62, Label: "Positive", ArticleCount: 12}}
	h := New(testTracer, fetcher, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment", nil)
	r.ServeHTTP(w, req)

	var body domain.SentimentSummary
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Score != 0.62 || body.ArticleCount != 12 {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestGetCoinsSorted(t *testing.T) {
	fetcher := &stubFetcher{ids: map[string]struct{}{
		"ethereum": {}, "bitcoin": {}, "solana": {},
	}}
	h := New(testTracer, fetcher, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/coins", nil)
	r.ServeHTTP(w, req)

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	want := []string{"bitcoin", "ethereum", "solana"}
	if len(body.IDs) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), body.IDs)
	}
	for i, id := range want {
		if body.IDs[i] != id {
			t.Fatalf("expected sorted ids %v, got %v", want, body.IDs)
		}
	}
}

func TestGetHistoryUnavailable(t *testing.T) {
	h := New(testTracer, &stubFetcher{}, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/bitcoin", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a database, got %d", w.Code)
	}
}

func TestGetHistoryUnknownCoin(t *testing.T) {
	fetcher := &stubFetcher{ids: map[string]struct{}{"bitcoin": {}}}
	h := New(testTracer, fetcher, &stubHistory{}, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/dogecoin", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown coin, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	fetcher := &stubFetcher{ids: map[string]struct{}{"bitcoin": {}}}
	history := &stubHistory{points: []*domain.PricePoint{
		{CoinID: "bitcoin", PriceUSD: decimal.NewFromInt(97000), RecordedAt: time.Now()},
	}}
	h := New(testTracer, fetcher, history, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/bitcoin?limit=10", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		CoinID string               `json:"coin_id"`
		Points []*domain.PricePoint `json:"points"`
		Count  int                  `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.CoinID != "bitcoin" || body.Count != 1 {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestGetHistoryRange(t *testing.T) {
	fetcher := &stubFetcher{ids: map[string]struct{}{"bitcoin": {}}}
	history := &stubHistory{points: []*domain.PricePoint{
		{CoinID: "bitcoin", PriceUSD: decimal.NewFromInt(97000), RecordedAt: time.Now()},
	}}
	h := New(testTracer, fetcher, history, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/history/bitcoin?from=2026-08-01T00:00:00Z&to=2026-08-30T00:00:00Z", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	wantFrom := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	if !history.rangeFrom.Equal(wantFrom) || !history.rangeTo.Equal(wantTo) {
		t.Fatalf("range not forwarded: got %s..%s", history.rangeFrom, history.rangeTo)
	}
}

func TestGetHistoryRangeRejectsBadBounds(t *testing.T) {
	fetcher := &stubFetcher{ids: map[string]struct{}{"bitcoin": {}}}
	h := New(testTracer, fetcher, &stubHistory{}, "")
	r := newRouter(h)

	cases := []struct {
		name  string
		query string
	}{
		{"from without to", "?from=2026-08-01T00:00:00Z"},
		{"unparseable from", "?from=yesterday&to=2026-08-30T00:00:00Z"},
		{"inverted range", "?from=2026-08-30T00:00:00Z&to=2026-08-01T00:00:00Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/history/bitcoin"+tc.query, nil)
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestAdminAuth(t *testing.T) {
	h := New(testTracer, &stubFetcher{}, nil, "secret")
	r := newRouter(h)

	cases := []struct {
		name string
		key  string
		want int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusForbidden},
		{"valid key", "secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/clear", nil)
			if tc.key != "" {
				req.Header.Set(apiKeyHeader, tc.key)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestAdminAuthDisabled(t *testing.T) {
	h := New(testTracer, &stubFetcher{}, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/ratelimits/clear", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected auth no-op with empty key, got %d", w.Code)
	}
}

func TestClearCachesError(t *testing.T) {
	h := New(testTracer, &stubFetcher{clearErr: errors.New("redis down")}, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/clear", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on clear failure, got %d", w.Code)
	}
}

func TestGetStatus(t *testing.T) {
	fetcher := &stubFetcher{status: domain.FetchStatus{
		Market:     domain.CacheStatus{Present: true, Entries: 50},
		RateLimits: map[string]time.Time{"news": time.Now().Add(time.Minute)},
		CheckedAt:  time.Now(),
	}}
	h := New(testTracer, fetcher, nil, "")
	r := newRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body domain.FetchStatus
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if !body.Market.Present || body.Market.Entries != 50 {
		t.Fatalf("unexpected market status: %+v", body.Market)
	}
	if _, ok := body.RateLimits["news"]; !ok {
		t.Fatalf("expected news rate limit in payload, got %v", body.RateLimits)
	}
}
