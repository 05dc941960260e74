package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one persisted observation of a coin's market state.
type PricePoint struct {
	CoinID     string          `json:"coin_id"`
	PriceUSD   decimal.Decimal `json:"price_usd"`
	Volume24h  decimal.Decimal `json:"volume_24h"`
	MarketCap  decimal.Decimal `json:"market_cap"`
	RecordedAt time.Time       `json:"recorded_at"`
}
