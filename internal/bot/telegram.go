package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"coinlens/internal/domain"
)

type Fetcher interface {
	FetchMarketData(ctx context.Context, minCount int, diagnostic bool) domain.Snapshot
	FetchNews(ctx context.Context) []domain.NewsItem
	FetchSentiment(ctx context.Context) domain.SentimentSummary
}

func StartTelegramBot(fetcher Fetcher) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/price", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /price bitcoin (or /price BTC)")
		}
		snapshot := fetcher.FetchMarketData(context.Background(), 0, false)
		coin, ok := findCoin(snapshot, args[0])
		if !ok {
			return c.Send(fmt.Sprintf("Unknown coin: %s", args[0]))
		}
		return c.Send(formatCoin(coin))
	})

	b.Handle("/news", func(c tele.Context) error {
		items := fetcher.FetchNews(context.Background())
		return c.Send(formatNews(items, 5))
	})

	b.Handle("/sentiment", func(c tele.Context) error {
		summary := fetcher.FetchSentiment(context.Background())
		return c.Send(formatSentiment(summary))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

// findCoin matches by identifier first, then by symbol.
func findCoin(snapshot domain.Snapshot, arg string) (domain.Coin, bool) {
	id := strings.ToLower(arg)
	if coin, ok := snapshot[id]; ok {
		return coin, true
	}
	symbol := strings.ToUpper(arg)
	for _, coin := range snapshot {
		if coin.Symbol == symbol {
			return coin, true
		}
	}
	return domain.Coin{}, false
}

func formatCoin(coin domain.Coin) string {
	msg := fmt.Sprintf(
		"%s (%s)\nPrice: $%s\n24h Change: %s%%\n24h Volume: $%s",
		coin.Name, coin.Symbol,
		coin.PriceUSD.StringFixed(2), coin.Change24hPct.StringFixed(2), coin.Volume24h.StringFixed(0),
	)
	if coin.LastUpdated == domain.EmergencyData {
		msg += "\n(degraded: live data unavailable)"
	}
	return msg
}

func formatNews(items []domain.NewsItem, limit int) string {
	if len(items) == 0 {
		return "No recent news available"
	}
	if len(items) > limit {
		items = items[:limit]
	}
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s (%s, %s)\n", i+1, item.Title, item.Source, item.Sentiment.Label)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSentiment(s domain.SentimentSummary) string {
	return fmt.Sprintf("Market sentiment: %s (%.2f) across %d articles", s.Label, s.Score, s.ArticleCount)
}
