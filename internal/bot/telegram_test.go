package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coinlens/internal/domain"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	StartTelegramBot(nil)
}

func TestFindCoin(t *testing.T) {
	snapshot := domain.Snapshot{
		"bitcoin": {ID: "bitcoin", Symbol: "BTC"},
	}
	if _, ok := findCoin(snapshot, "bitcoin"); !ok {
		t.Fatal("expected match by id")
	}
	if _, ok := findCoin(snapshot, "btc"); !ok {
		t.Fatal("expected match by symbol")
	}
	if _, ok := findCoin(snapshot, "dogecoin"); ok {
		t.Fatal("expected no match")
	}
}

func TestFormatCoin(t *testing.T) {
	coin := domain.Coin{
		ID:           "bitcoin",
		Symbol:       "BTC",
		Name:         "Bitcoin",
		PriceUSD:     decimal.RequireFromString("97123.456"),
		Change24hPct: decimal.RequireFromString("-1.25"),
		Volume24h:    decimal.NewFromInt(12000000),
		LastUpdated:  "2026-08-30T00:00:00Z",
	}
	msg := formatCoin(coin)
	if !strings.Contains(msg, "$97123.46") {
		t.Fatalf("expected rounded price, got %q", msg)
	}
	if strings.Contains(msg, "degraded") {
		t.Fatalf("live coin must not carry degraded note: %q", msg)
	}

	coin.LastUpdated = domain.EmergencyData
	if !strings.Contains(formatCoin(coin), "degraded") {
		t.Fatal("expected degraded note for emergency record")
	}
}

func TestFormatNews(t *testing.T) {
	if got := formatNews(nil, 5); got != "No recent news available" {
		t.Fatalf("unexpected empty message: %q", got)
	}

	items := make([]domain.NewsItem, 7)
	for i := range items {
		items[i] = domain.NewsItem{
			Title:       "Headline",
			Source:      "Wire",
			PublishedAt: time.Now(),
			Sentiment:   domain.Sentiment{Label: "Neutral"},
		}
	}
	got := formatNews(items, 5)
	if strings.Count(got, "\n") != 4 {
		t.Fatalf("expected 5 lines, got %q", got)
	}
}

func TestFormatSentiment(t *testing.T) {
	got := formatSentiment(domain.SentimentSummary{Score: 0.62, Label: "Positive", ArticleCount: 9})
	if !strings.Contains(got, "Positive") || !strings.Contains(got, "0.62") || !strings.Contains(got, "9") {
		t.Fatalf("unexpected message: %q", got)
	}
}
