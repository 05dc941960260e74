package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NEWSAPI_KEY", "")
	t.Setenv("MIN_COIN_COUNT", "")
	t.Setenv("FETCH_MAX_RETRIES", "")
	t.Setenv("FETCH_BACKOFF_MULTIPLIER", "")

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.MinCoinCount != 30 || cfg.MaxMarketPages != 3 || cfg.PerPage != 50 {
		t.Fatalf("unexpected market defaults: %+v", cfg)
	}
	if cfg.BaseDelaySecs != 2 || cfg.MaxRetries != 3 || cfg.BackoffMultiplier != 2 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.MarketFreshSecs != 300 || cfg.NewsFreshSecs != 1800 || cfg.SentimentFreshSecs != 600 {
		t.Fatalf("unexpected freshness defaults: %+v", cfg)
	}
	if cfg.LockTTLSecs != 120 || cfg.BurstWindowSecs != 10 {
		t.Fatalf("unexpected lock defaults: %+v", cfg)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("NEWSAPI_KEY", "news-key")
	t.Setenv("COINGECKO_API_KEY", " cg-key ")
	t.Setenv("MIN_COIN_COUNT", "45")
	t.Setenv("FETCH_MAX_RETRIES", "5")
	t.Setenv("MARKET_FRESH_SECS", "60")

	cfg := Load()
	if cfg.RedisURL != "redis:6379" || cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CoinGeckoAPIKey != "cg-key" {
		t.Fatalf("api key not trimmed: %q", cfg.CoinGeckoAPIKey)
	}
	if cfg.MinCoinCount != 45 || cfg.MaxRetries != 5 || cfg.MarketFreshSecs != 60 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("MIN_COIN_COUNT", "bad")
	cfg = Load()
	if cfg.MinCoinCount != 30 {
		t.Fatalf("invalid min count should fall back to default, got %d", cfg.MinCoinCount)
	}
}
