package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const newsAPIBaseURL = "https://newsapi.org/v2"

// Article is one raw row from the news search endpoint.
type Article struct {
	Title  string `json:"title"`
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
}

// NewsProvider fetches crypto news from the NewsAPI search endpoint.
type NewsProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewNewsProvider(tracer trace.Tracer, apiKey string, timeout time.Duration) *NewsProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NewsProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: newsAPIBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
	}
}

// FetchArticles requests one page of English-language crypto articles,
// newest first.
func (p *NewsProvider) FetchArticles(ctx context.Context, query string, pageSize int) ([]Article, error) {
	_, span := p.tracer.Start(ctx, "newsapi.fetch-articles")
	defer span.End()

	if query == "" {
		query = "cryptocurrency bitcoin ethereum"
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("apiKey", p.apiKey)

	body, err := p.doRequest(ctx, p.baseURL+"/everything?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	var payload struct {
		Status   string    `json:"status"`
		Articles []Article `json:"articles"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse news payload: %v", ErrMalformed, err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("%w: news status %q", ErrMalformed, payload.Status)
	}
	return payload.Articles, nil
}

func (p *NewsProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

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
