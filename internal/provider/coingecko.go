package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// MarketRecord is one raw row from the CoinGecko markets listing. Numeric
// fields are pointers because the upstream API returns null for delisted or
// freshly listed assets.
type MarketRecord struct {
	ID           string           `json:"id"`
	Symbol       string           `json:"symbol"`
	Name         string           `json:"name"`
	CurrentPrice *decimal.Decimal `json:"current_price"`
	Change24hPct *decimal.Decimal `json:"price_change_percentage_24h"`
	TotalVolume  *decimal.Decimal `json:"total_volume"`
	MarketCap    *decimal.Decimal `json:"market_cap"`
	Rank         int              `json:"market_cap_rank"`
	LastUpdated  string           `json:"last_updated"`
}

// CoinGeckoProvider fetches market listings from the CoinGecko API.
// An API key, when configured, is sent for the higher-quota tier.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewCoinGeckoProvider(tracer trace.Tracer, apiKey string, timeout time.Duration) *CoinGeckoProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: coingeckoBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
	}
}

// FetchMarketPage requests one page of the market listing, ordered by
// market cap. Returns ErrMalformed when the payload is not a non-empty list.
func (p *CoinGeckoProvider) FetchMarketPage(ctx context.Context, page, perPage int) ([]MarketRecord, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-market-page")
	defer span.End()

	url := fmt.Sprintf("%s/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=%d&page=%d&sparkline=false",
		p.baseURL, perPage, page)

	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch markets page %d: %w", page, err)
	}

	var records []MarketRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: parse markets page %d: %v", ErrMalformed, page, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty markets page %d", ErrMalformed, page)
	}
	return records, nil
}

// FetchCoinIDs lists every identifier the market API recognizes.
func (p *CoinGeckoProvider) FetchCoinIDs(ctx context.Context) ([]string, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-coin-ids")
	defer span.End()

	body, err := p.doRequest(ctx, p.baseURL+"/coins/list")
	if err != nil {
		return nil, fmt.Errorf("fetch coin list: %w", err)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: parse coin list: %v", ErrMalformed, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.ID != "" {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Header: resp.Header, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}
