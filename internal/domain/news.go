package domain

import "time"

// Sentiment is a bounded score in [0,1] with its derived label.
// 0.5 is neutral.
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// NewsItem is one scored article from the news provider.
type NewsItem struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Sentiment   Sentiment `json:"sentiment"`
}

// SentimentSummary is the time-decayed weighted average of article
// sentiment scores across the current news window.
type SentimentSummary struct {
	Score        float64   `json:"score"`
	Label        string    `json:"label"`
	ArticleCount int       `json:"article_count"`
	ComputedAt   time.Time `json:"computed_at"`
}
