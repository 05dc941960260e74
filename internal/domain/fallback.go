package domain

import "time"

// FallbackCoinIDs is the minimal identifier set returned when the upstream
// coin listing is unreachable. Covers the assets the validation layer must
// always accept.
var FallbackCoinIDs = []string{
	"bitcoin", "ethereum", "tether", "binancecoin", "solana",
	"ripple", "cardano", "dogecoin",
}

// EmergencySnapshot fabricates a minimal placeholder snapshot, every record
// tagged with the EmergencyData sentinel. Zero prices, never real data.
func EmergencySnapshot() Snapshot {
	return Snapshot{
		"bitcoin": {
			ID:          "bitcoin",
			Symbol:      "BTC",
			Name:        "Bitcoin",
			Rank:        1,
			LastUpdated: EmergencyData,
			Sentiment:   "Neutral",
		},
		"ethereum": {
			ID:          "ethereum",
			Symbol:      "ETH",
			Name:        "Ethereum",
			Rank:        2,
			LastUpdated: EmergencyData,
			Sentiment:   "Neutral",
		},
	}
}

// NeutralSentiment is the summary returned when no news is obtainable.
func NeutralSentiment(now time.Time) SentimentSummary {
	return SentimentSummary{
		Score:        0.5,
		Label:        "Neutral",
		ArticleCount: 0,
		ComputedAt:   now,
	}
}
