package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// EmergencyData is the sentinel stored in Coin.LastUpdated when a record was
// fabricated by the fallback provider rather than fetched upstream. It must
// survive caching so downstream consumers can detect degraded data.
const EmergencyData = "EMERGENCY_DATA"

// Coin is one normalized market record, keyed in a Snapshot by its upstream
// identifier (lowercase, e.g. "bitcoin").
type Coin struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	Change24hPct decimal.Decimal `json:"change_24h_pct"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	MarketCap    decimal.Decimal `json:"market_cap"`
	Rank         int             `json:"rank"`
	LastUpdated  string          `json:"last_updated"`
	Sentiment    string          `json:"sentiment"`
}

// Snapshot maps coin identifiers to market records.
type Snapshot map[string]Coin

// IsEmergency reports whether the snapshot holds fabricated fallback data.
func (s Snapshot) IsEmergency() bool {
	for _, c := range s {
		if c.LastUpdated == EmergencyData {
			return true
		}
	}
	return false
}

// Filter returns the subset of records whose identifier, symbol or name
// contains q (case-insensitive). An empty query returns s unchanged.
func (s Snapshot) Filter(q string) Snapshot {
	if q == "" {
		return s
	}
	q = strings.ToLower(q)
	out := make(Snapshot)
	for id, c := range s {
		if strings.Contains(id, q) ||
			strings.Contains(strings.ToLower(c.Symbol), q) ||
			strings.Contains(strings.ToLower(c.Name), q) {
			out[id] = c
		}
	}
	return out
}

// DisplayName derives a human-readable coin name from its identifier,
// e.g. "shiba_inu" -> "Shiba Inu". Used when the upstream record omits a name.
func DisplayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
