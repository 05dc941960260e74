package domain

import "time"

// CacheStatus describes one cached dataset for the status endpoint.
type CacheStatus struct {
	Present  bool    `json:"present"`
	AgeSecs  float64 `json:"age_secs"`
	Entries  int     `json:"entries"`
	Degraded bool    `json:"degraded"`
}

// FetchStatus is the diagnostic view over the fetch pipeline's caches and
// rate-limit state, for operational tooling.
type FetchStatus struct {
	Market     CacheStatus          `json:"market"`
	News       CacheStatus          `json:"news"`
	Sentiment  CacheStatus          `json:"sentiment"`
	RateLimits map[string]time.Time `json:"rate_limits"`
	AuthFailed []string             `json:"auth_failed,omitempty"`
	CheckedAt  time.Time            `json:"checked_at"`
}
