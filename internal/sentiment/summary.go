package sentiment

import (
	"time"

	"coinlens/internal/domain"
)

// Summarize computes the time-decayed weighted average of article scores.
// Weight decays linearly from 1.0 at publish time to the 0.1 floor at 24h.
func Summarize(items []domain.NewsItem, now time.Time) domain.SentimentSummary {
	if len(items) == 0 {
		return domain.NeutralSentiment(now)
	}

	var weighted, total float64
	for _, item := range items {
		w := decayWeight(now.Sub(item.PublishedAt))
		weighted += w * item.Sentiment.Score
		total += w
	}

	score := clamp(weighted/total, 0, 1)
	return domain.SentimentSummary{
		Score:        score,
		Label:        Label(score),
		ArticleCount: len(items),
		ComputedAt:   now,
	}
}

func decayWeight(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	w := 1 - 0.9*(age.Hours()/24)
	if w < 0.1 {
		w = 0.1
	}
	return w
}
