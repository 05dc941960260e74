package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	RedisURL         string
	DatabaseURL      string
	CoinGeckoAPIKey  string
	NewsAPIKey       string
	OpenAIAPIKey     string
	OpenAIModel      string
	TelegramBotToken string
	AdminAPIKey      string

	HTTPTimeoutSecs   int
	BaseDelaySecs     int
	MaxRetries        int
	BackoffMultiplier float64

	MarketFreshSecs    int
	NewsFreshSecs      int
	SentimentFreshSecs int
	MarketCacheTTLSecs int
	NewsCacheTTLSecs   int
	CoinListTTLSecs    int

	MinCoinCount    int
	MaxMarketPages  int
	PerPage         int
	PageDelaySecs   int
	LockTTLSecs     int
	LockWaitSecs    int
	BurstWindowSecs int

	RefreshPollSecs int

	NewsQuery    string
	NewsPageSize int
}

func Load() *Config {
	cfg := &Config{
		RedisURL:         os.Getenv("REDIS_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CoinGeckoAPIKey:  strings.TrimSpace(os.Getenv("COINGECKO_API_KEY")),
		NewsAPIKey:       strings.TrimSpace(os.Getenv("NEWSAPI_KEY")),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
	}

	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, price history disabled")
	}
	if cfg.NewsAPIKey == "" {
		log.Println("Warning: NEWSAPI_KEY not set, news fetches will fall back to cache")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.HTTPTimeoutSecs = 30
	if v := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPTimeoutSecs = n
		}
	}

	cfg.BaseDelaySecs = 2
	if v := strings.TrimSpace(os.Getenv("FETCH_BASE_DELAY_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BaseDelaySecs = n
		}
	}

	cfg.MaxRetries = 3
	if v := strings.TrimSpace(os.Getenv("FETCH_MAX_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}

	cfg.BackoffMultiplier = 2
	if v := strings.TrimSpace(os.Getenv("FETCH_BACKOFF_MULTIPLIER")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 1 {
			cfg.BackoffMultiplier = n
		}
	}

	cfg.MarketFreshSecs = 300
	if v := strings.TrimSpace(os.Getenv("MARKET_FRESH_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MarketFreshSecs = n
		}
	}

	cfg.NewsFreshSecs = 1800
	if v := strings.TrimSpace(os.Getenv("NEWS_FRESH_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NewsFreshSecs = n
		}
	}

	cfg.SentimentFreshSecs = 600
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_FRESH_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SentimentFreshSecs = n
		}
	}

	cfg.MarketCacheTTLSecs = 3600
	if v := strings.TrimSpace(os.Getenv("MARKET_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MarketCacheTTLSecs = n
		}
	}

	cfg.NewsCacheTTLSecs = 21600
	if v := strings.TrimSpace(os.Getenv("NEWS_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NewsCacheTTLSecs = n
		}
	}

	cfg.CoinListTTLSecs = 86400
	if v := strings.TrimSpace(os.Getenv("COIN_LIST_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CoinListTTLSecs = n
		}
	}

	cfg.MinCoinCount = 30
	if v := strings.TrimSpace(os.Getenv("MIN_COIN_COUNT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MinCoinCount = n
		}
	}

	cfg.MaxMarketPages = 3
	if v := strings.TrimSpace(os.Getenv("MAX_MARKET_PAGES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxMarketPages = n
		}
	}

	cfg.PerPage = 50
	if v := strings.TrimSpace(os.Getenv("MARKET_PER_PAGE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 250 {
			cfg.PerPage = n
		}
	}

	cfg.PageDelaySecs = 1
	if v := strings.TrimSpace(os.Getenv("PAGE_DELAY_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PageDelaySecs = n
		}
	}

	cfg.LockTTLSecs = 120
	if v := strings.TrimSpace(os.Getenv("LOCK_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LockTTLSecs = n
		}
	}

	cfg.LockWaitSecs = 2
	if v := strings.TrimSpace(os.Getenv("LOCK_WAIT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LockWaitSecs = n
		}
	}

	cfg.BurstWindowSecs = 10
	if v := strings.TrimSpace(os.Getenv("BURST_WINDOW_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.BurstWindowSecs = n
		}
	}

	cfg.NewsQuery = "cryptocurrency bitcoin ethereum"
	if v := strings.TrimSpace(os.Getenv("NEWS_QUERY")); v != "" {
		cfg.NewsQuery = v
	}

	cfg.NewsPageSize = 20
	if v := strings.TrimSpace(os.Getenv("NEWS_PAGE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			cfg.NewsPageSize = n
		}
	}

	cfg.RefreshPollSecs = 300
	if v := strings.TrimSpace(os.Getenv("REFRESH_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RefreshPollSecs = n
		}
	}

	return cfg
}
