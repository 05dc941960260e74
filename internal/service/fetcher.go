package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"coinlens/internal/backoff"
	"coinlens/internal/cache"
	"coinlens/internal/config"
	"coinlens/internal/domain"
	"coinlens/internal/provider"
	"coinlens/internal/ratelimit"
	"coinlens/internal/sentiment"
)

// Operation names shared between cache keys, advisory locks and
// rate-limit records.
const (
	opMarket = "market"
	opNews   = "news"
	opCoins  = "coins"
)

const (
	keySnapshot  = "market:snapshot"
	keyLastCall  = "market:last_call"
	keyNews      = "news:articles"
	keySentiment = "sentiment:summary"
	keyCoinIDs   = "coins:ids"

	authFailPrefix = "authfail:"
	authFailTTL    = time.Hour
)

// operations lists every op that talks to an upstream API. Sentiment is
// derived from news and never calls out on its own.
var operations = []string{opMarket, opNews, opCoins}

type snapshotEnvelope struct {
	Coins     domain.Snapshot `json:"coins"`
	FetchedAt time.Time       `json:"fetched_at"`
}

type newsEnvelope struct {
	Items     []domain.NewsItem `json:"items"`
	FetchedAt time.Time         `json:"fetched_at"`
}

type sentimentEnvelope struct {
	Summary   domain.SentimentSummary `json:"summary"`
	FetchedAt time.Time               `json:"fetched_at"`
}

type idsEnvelope struct {
	IDs       []string  `json:"ids"`
	FetchedAt time.Time `json:"fetched_at"`
}

type MarketProvider interface {
	FetchMarketPage(ctx context.Context, page, perPage int) ([]provider.MarketRecord, error)
	FetchCoinIDs(ctx context.Context) ([]string, error)
}

type NewsSource interface {
	FetchArticles(ctx context.Context, query string, pageSize int) ([]provider.Article, error)
}

type ArticleScorer interface {
	ScoreAll(ctx context.Context, texts []string) []domain.Sentiment
}

// FetcherConfig carries the tuning knobs for the fetch pipeline.
type FetcherConfig struct {
	MinCoinCount int
	MaxPages     int
	PerPage      int
	MaxRetries   int

	MarketFresh    time.Duration
	NewsFresh      time.Duration
	SentimentFresh time.Duration

	MarketTTL   time.Duration
	NewsTTL     time.Duration
	CoinListTTL time.Duration

	LockTTL     time.Duration
	LockWait    time.Duration
	BurstWindow time.Duration
	PageDelay   time.Duration

	NewsQuery    string
	NewsPageSize int
}

func NewFetcherConfig(cfg *config.Config) FetcherConfig {
	return FetcherConfig{
		MinCoinCount:   cfg.MinCoinCount,
		MaxPages:       cfg.MaxMarketPages,
		PerPage:        cfg.PerPage,
		MaxRetries:     cfg.MaxRetries,
		MarketFresh:    time.Duration(cfg.MarketFreshSecs) * time.Second,
		NewsFresh:      time.Duration(cfg.NewsFreshSecs) * time.Second,
		SentimentFresh: time.Duration(cfg.SentimentFreshSecs) * time.Second,
		MarketTTL:      time.Duration(cfg.MarketCacheTTLSecs) * time.Second,
		NewsTTL:        time.Duration(cfg.NewsCacheTTLSecs) * time.Second,
		CoinListTTL:    time.Duration(cfg.CoinListTTLSecs) * time.Second,
		LockTTL:        time.Duration(cfg.LockTTLSecs) * time.Second,
		LockWait:       time.Duration(cfg.LockWaitSecs) * time.Second,
		BurstWindow:    time.Duration(cfg.BurstWindowSecs) * time.Second,
		PageDelay:      time.Duration(cfg.PageDelaySecs) * time.Second,
		NewsQuery:      cfg.NewsQuery,
		NewsPageSize:   cfg.NewsPageSize,
	}
}

// Fetcher orchestrates the cache-first, rate-limit-aware retrieval of
// market data, news and sentiment. Every public method degrades to
// cached or fallback data instead of returning an error to the caller.
type Fetcher struct {
	tracer trace.Tracer
	market MarketProvider
	news   NewsSource
	scorer ArticleScorer
	store  cache.Store
	limits *ratelimit.Tracker
	policy backoff.Policy
	cfg    FetcherConfig

	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

func NewFetcher(tracer trace.Tracer, market MarketProvider, news NewsSource, scorer ArticleScorer, store cache.Store, limits *ratelimit.Tracker, policy backoff.Policy, cfg FetcherConfig) *Fetcher {
	return &Fetcher{
		tracer: tracer,
		market: market,
		news:   news,
		scorer: scorer,
		store:  store,
		limits: limits,
		policy: policy,
		cfg:    cfg,
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// FetchMarketData returns the current market snapshot. minCount is the
// number of coins the caller considers sufficient; zero means the
// configured default. The result is never empty: when both the upstream
// and the cache fail to produce a qualifying snapshot, an emergency
// snapshot tagged with domain.EmergencyData is returned. When the
// upstream cannot be called at all, any non-empty cached snapshot,
// even one below minCount, is served before the emergency snapshot.
func (f *Fetcher) FetchMarketData(ctx context.Context, minCount int, diagnostic bool) domain.Snapshot {
	ctx, span := f.tracer.Start(ctx, "fetcher.fetch-market-data")
	defer span.End()

	if minCount <= 0 {
		minCount = f.cfg.MinCoinCount
	}

	cached, age, ok := f.cachedSnapshot(ctx)
	if ok && age <= f.cfg.MarketFresh && len(cached) >= minCount {
		return cached
	}
	if ok && len(cached) > 0 && f.withinBurstWindow(ctx) {
		return cached
	}

	if until, blocked, err := f.limits.IsBlocked(ctx, opMarket); err != nil {
		log.Printf("market: rate limit check failed: %v", err)
	} else if blocked {
		log.Printf("market: upstream blocked until %s", until.UTC().Format(time.RFC3339))
		if ok && len(cached) > 0 {
			return cached
		}
		return domain.EmergencySnapshot()
	}

	won, lockErr := f.limits.TryLock(ctx, opMarket, f.cfg.LockTTL)
	if lockErr != nil {
		log.Printf("market: lock acquisition failed: %v", lockErr)
	} else if !won {
		// Another process is fetching. Give it a moment and reuse
		// whatever it cached.
		f.sleep(ctx, f.cfg.LockWait)
		if cached, _, ok := f.cachedSnapshot(ctx); ok && len(cached) > 0 {
			return cached
		}
		return domain.EmergencySnapshot()
	}
	if won {
		defer func() {
			if err := f.limits.Unlock(ctx, opMarket); err != nil {
				log.Printf("market: unlock failed: %v", err)
			}
		}()
	}

	tag := f.currentSentimentTag(ctx)
	var snapshot domain.Snapshot
	fetched := f.withRetries(ctx, opMarket, func() error {
		var err error
		snapshot, err = f.collectPages(ctx, minCount, diagnostic, tag)
		return err
	})
	if !fetched || len(snapshot) == 0 {
		if ok && len(cached) > 0 {
			return cached
		}
		return domain.EmergencySnapshot()
	}
	if len(snapshot) < minCount && ok && len(cached) >= minCount {
		// A short fresh result does not beat a full cached one.
		return cached
	}
	f.storeSnapshot(ctx, snapshot)
	return snapshot
}

func (f *Fetcher) collectPages(ctx context.Context, minCount int, diagnostic bool, sentimentTag string) (domain.Snapshot, error) {
	snapshot := make(domain.Snapshot)
	for page := 1; page <= f.cfg.MaxPages && len(snapshot) < minCount; page++ {
		if page > 1 {
			f.sleep(ctx, f.cfg.PageDelay)
		}
		records, err := f.market.FetchMarketPage(ctx, page, f.cfg.PerPage)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if rec.ID == "" {
				if diagnostic {
					log.Printf("market: page %d: skipping record without id", page)
				}
				continue
			}
			if rec.CurrentPrice == nil {
				if diagnostic {
					log.Printf("market: skipping %s: null price", rec.ID)
				}
				continue
			}
			snapshot[rec.ID] = f.normalizeRecord(rec, sentimentTag)
		}
	}
	return snapshot, nil
}

func (f *Fetcher) normalizeRecord(rec provider.MarketRecord, sentimentTag string) domain.Coin {
	name := rec.Name
	if name == "" {
		name = domain.DisplayName(rec.ID)
	}
	coin := domain.Coin{
		ID:          rec.ID,
		Symbol:      strings.ToUpper(rec.Symbol),
		Name:        name,
		PriceUSD:    *rec.CurrentPrice,
		Rank:        rec.Rank,
		LastUpdated: rec.LastUpdated,
		Sentiment:   sentimentTag,
	}
	if rec.Change24hPct != nil {
		coin.Change24hPct = *rec.Change24hPct
	}
	if rec.TotalVolume != nil {
		coin.Volume24h = *rec.TotalVolume
	}
	if rec.MarketCap != nil {
		coin.MarketCap = *rec.MarketCap
	}
	if coin.LastUpdated == "" {
		coin.LastUpdated = f.now().UTC().Format(time.RFC3339)
	}
	return coin
}

// FetchNews returns scored news items, freshest-cache first. On failure
// it returns the stale cache if one exists, otherwise an empty list.
func (f *Fetcher) FetchNews(ctx context.Context) []domain.NewsItem {
	ctx, span := f.tracer.Start(ctx, "fetcher.fetch-news")
	defer span.End()

	cached, age, ok := f.cachedNews(ctx)
	if ok && age <= f.cfg.NewsFresh {
		return cached
	}

	if until, blocked, err := f.limits.IsBlocked(ctx, opNews); err != nil {
		log.Printf("news: rate limit check failed: %v", err)
	} else if blocked {
		log.Printf("news: upstream blocked until %s", until.UTC().Format(time.RFC3339))
		if ok {
			return cached
		}
		return []domain.NewsItem{}
	}

	won, lockErr := f.limits.TryLock(ctx, opNews, f.cfg.LockTTL)
	if lockErr != nil {
		log.Printf("news: lock acquisition failed: %v", lockErr)
	} else if !won {
		f.sleep(ctx, f.cfg.LockWait)
		if cached, _, ok := f.cachedNews(ctx); ok {
			return cached
		}
		return []domain.NewsItem{}
	}
	if won {
		defer func() {
			if err := f.limits.Unlock(ctx, opNews); err != nil {
				log.Printf("news: unlock failed: %v", err)
			}
		}()
	}

	var items []domain.NewsItem
	fetched := f.withRetries(ctx, opNews, func() error {
		articles, err := f.news.FetchArticles(ctx, f.cfg.NewsQuery, f.cfg.NewsPageSize)
		if err != nil {
			return err
		}
		items = f.scoreArticles(ctx, articles)
		return nil
	})
	if !fetched {
		if ok {
			return cached
		}
		return []domain.NewsItem{}
	}
	f.storeNews(ctx, items)
	return items
}

func (f *Fetcher) scoreArticles(ctx context.Context, articles []provider.Article) []domain.NewsItem {
	kept := make([]provider.Article, 0, len(articles))
	texts := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.Title == "" || a.Title == "[Removed]" {
			continue
		}
		kept = append(kept, a)
		texts = append(texts, strings.TrimSpace(a.Title+" "+a.Description))
	}
	scores := f.scorer.ScoreAll(ctx, texts)
	items := make([]domain.NewsItem, len(kept))
	for i, a := range kept {
		items[i] = domain.NewsItem{
			Title:       a.Title,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
			URL:         a.URL,
			Description: a.Description,
			Sentiment:   scores[i],
		}
	}
	return items
}

// FetchSentiment returns the aggregate market sentiment derived from
// recent news. With no articles available it reports a neutral summary.
func (f *Fetcher) FetchSentiment(ctx context.Context) domain.SentimentSummary {
	ctx, span := f.tracer.Start(ctx, "fetcher.fetch-sentiment")
	defer span.End()

	if summary, age, ok := f.cachedSentiment(ctx); ok && age <= f.cfg.SentimentFresh {
		return summary
	}

	items := f.FetchNews(ctx)
	summary := sentiment.Summarize(items, f.now())
	if len(items) > 0 {
		f.storeSentiment(ctx, summary)
	}
	return summary
}

// FetchValidIDs returns the set of coin identifiers the market provider
// recognizes, falling back to a small builtin set when the upstream and
// the cache are both unavailable.
func (f *Fetcher) FetchValidIDs(ctx context.Context) map[string]struct{} {
	ctx, span := f.tracer.Start(ctx, "fetcher.fetch-valid-ids")
	defer span.End()

	if ids, ok := f.cachedIDs(ctx); ok {
		return ids
	}

	if until, blocked, err := f.limits.IsBlocked(ctx, opCoins); err != nil {
		log.Printf("coins: rate limit check failed: %v", err)
	} else if blocked {
		log.Printf("coins: upstream blocked until %s", until.UTC().Format(time.RFC3339))
		return fallbackIDSet()
	}

	won, lockErr := f.limits.TryLock(ctx, opCoins, f.cfg.LockTTL)
	if lockErr != nil {
		log.Printf("coins: lock acquisition failed: %v", lockErr)
	} else if !won {
		f.sleep(ctx, f.cfg.LockWait)
		if ids, ok := f.cachedIDs(ctx); ok {
			return ids
		}
		return fallbackIDSet()
	}
	if won {
		defer func() {
			if err := f.limits.Unlock(ctx, opCoins); err != nil {
				log.Printf("coins: unlock failed: %v", err)
			}
		}()
	}

	var ids []string
	fetched := f.withRetries(ctx, opCoins, func() error {
		var err error
		ids, err = f.market.FetchCoinIDs(ctx)
		return err
	})
	if !fetched || len(ids) == 0 {
		return fallbackIDSet()
	}
	f.storeIDs(ctx, ids)
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func fallbackIDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(domain.FallbackCoinIDs))
	for _, id := range domain.FallbackCoinIDs {
		set[id] = struct{}{}
	}
	return set
}

// ClearAllCaches drops every cached payload, advisory lock and
// rate-limit record.
func (f *Fetcher) ClearAllCaches(ctx context.Context) error {
	ctx, span := f.tracer.Start(ctx, "fetcher.clear-all-caches")
	defer span.End()

	keys := []string{keySnapshot, keyLastCall, keyNews, keySentiment, keyCoinIDs}
	for _, op := range operations {
		keys = append(keys, ratelimit.Keys(op)...)
		keys = append(keys, authFailPrefix+op)
	}
	return f.store.Del(ctx, keys...)
}

// ClearRateLimits drops the rate-limit records only; cached payloads
// and locks stay.
func (f *Fetcher) ClearRateLimits(ctx context.Context) error {
	ctx, span := f.tracer.Start(ctx, "fetcher.clear-rate-limits")
	defer span.End()

	for _, op := range operations {
		if err := f.limits.Clear(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// Status reports cache ages, active rate limits and recorded auth
// failures without triggering any upstream call.
func (f *Fetcher) Status(ctx context.Context) domain.FetchStatus {
	ctx, span := f.tracer.Start(ctx, "fetcher.status")
	defer span.End()

	status := domain.FetchStatus{
		RateLimits: make(map[string]time.Time),
		CheckedAt:  f.now().UTC(),
	}
	if coins, age, ok := f.cachedSnapshot(ctx); ok {
		status.Market = domain.CacheStatus{
			Present:  true,
			AgeSecs:  age.Seconds(),
			Entries:  len(coins),
			Degraded: coins.IsEmergency(),
		}
	}
	if items, age, ok := f.cachedNews(ctx); ok {
		status.News = domain.CacheStatus{Present: true, AgeSecs: age.Seconds(), Entries: len(items)}
	}
	if summary, age, ok := f.cachedSentiment(ctx); ok {
		status.Sentiment = domain.CacheStatus{Present: true, AgeSecs: age.Seconds(), Entries: summary.ArticleCount}
	}
	for _, op := range operations {
		if until, blocked, err := f.limits.IsBlocked(ctx, op); err == nil && blocked {
			status.RateLimits[op] = until.UTC()
		}
		if _, err := f.store.Get(ctx, authFailPrefix+op); err == nil {
			status.AuthFailed = append(status.AuthFailed, op)
		}
	}
	return status
}

// withRetries runs fn until it succeeds, the failure is classified as
// non-retryable, or the retry budget is spent. A success clears the
// operation's rate-limit record.
func (f *Fetcher) withRetries(ctx context.Context, op string, fn func() error) bool {
	for attempt := 0; attempt < f.cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if clearErr := f.limits.Clear(ctx, op); clearErr != nil {
				log.Printf("%s: clearing rate limit record failed: %v", op, clearErr)
			}
			return true
		}
		decision := f.classify(err, attempt)
		f.recordFailure(ctx, op, decision, err)
		if !decision.Action.Retryable() || attempt+1 >= f.cfg.MaxRetries {
			return false
		}
		f.sleep(ctx, decision.Wait)
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}

func (f *Fetcher) classify(err error, attempt int) backoff.Decision {
	var apiErr *provider.APIError
	switch {
	case errors.Is(err, provider.ErrMalformed):
		return f.policy.Classify(backoff.Failure{Malformed: true}, attempt)
	case errors.As(err, &apiErr):
		return f.policy.Classify(backoff.Failure{Status: apiErr.Status, Header: apiErr.Header}, attempt)
	case isTransport(err):
		return f.policy.Classify(backoff.Failure{Timeout: true}, attempt)
	default:
		return f.policy.Classify(backoff.Failure{}, attempt)
	}
}

// isTransport reports whether err came from the network layer rather
// than from the remote API.
func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (f *Fetcher) recordFailure(ctx context.Context, op string, decision backoff.Decision, err error) {
	log.Printf("%s: fetch failed (%s): %v", op, decision.Action, err)
	switch decision.Action {
	case backoff.ActionRateLimited:
		if blockErr := f.limits.Block(ctx, op, decision.Wait); blockErr != nil {
			log.Printf("%s: recording rate limit failed: %v", op, blockErr)
		}
	case backoff.ActionAuthFailure:
		if setErr := f.store.Set(ctx, authFailPrefix+op, []byte("1"), authFailTTL); setErr != nil {
			log.Printf("%s: recording auth failure failed: %v", op, setErr)
		}
	}
}

func (f *Fetcher) withinBurstWindow(ctx context.Context) bool {
	data, err := f.store.Get(ctx, keyLastCall)
	if err != nil {
		return false
	}
	last, err := time.Parse(time.RFC3339, string(data))
	if err != nil {
		return false
	}
	elapsed := f.now().Sub(last)
	return elapsed >= 0 && elapsed < f.cfg.BurstWindow
}

func (f *Fetcher) cachedSnapshot(ctx context.Context) (domain.Snapshot, time.Duration, bool) {
	var env snapshotEnvelope
	if !f.readEnvelope(ctx, keySnapshot, &env) {
		return nil, 0, false
	}
	return env.Coins, f.now().Sub(env.FetchedAt), true
}

func (f *Fetcher) cachedNews(ctx context.Context) ([]domain.NewsItem, time.Duration, bool) {
	var env newsEnvelope
	if !f.readEnvelope(ctx, keyNews, &env) {
		return nil, 0, false
	}
	return env.Items, f.now().Sub(env.FetchedAt), true
}

func (f *Fetcher) cachedSentiment(ctx context.Context) (domain.SentimentSummary, time.Duration, bool) {
	var env sentimentEnvelope
	if !f.readEnvelope(ctx, keySentiment, &env) {
		return domain.SentimentSummary{}, 0, false
	}
	return env.Summary, f.now().Sub(env.FetchedAt), true
}

func (f *Fetcher) cachedIDs(ctx context.Context) (map[string]struct{}, bool) {
	var env idsEnvelope
	if !f.readEnvelope(ctx, keyCoinIDs, &env) || len(env.IDs) == 0 {
		return nil, false
	}
	set := make(map[string]struct{}, len(env.IDs))
	for _, id := range env.IDs {
		set[id] = struct{}{}
	}
	return set, true
}

// currentSentimentTag derives the coarse sentiment tag attached to each
// coin from the cached summary. It never triggers a sentiment fetch.
func (f *Fetcher) currentSentimentTag(ctx context.Context) string {
	summary, _, ok := f.cachedSentiment(ctx)
	if !ok {
		return "Neutral"
	}
	return sentiment.CoarseLabel(summary.Score)
}

func (f *Fetcher) readEnvelope(ctx context.Context, key string, dest any) bool {
	data, err := f.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("cache read %s failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("cache entry %s is corrupt: %v", key, err)
		return false
	}
	return true
}

func (f *Fetcher) writeEnvelope(ctx context.Context, key string, env any, ttl time.Duration) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("cache encode %s failed: %v", key, err)
		return
	}
	if err := f.store.Set(ctx, key, data, ttl); err != nil {
		log.Printf("cache write %s failed: %v", key, err)
	}
}

func (f *Fetcher) storeSnapshot(ctx context.Context, snapshot domain.Snapshot) {
	now := f.now()
	f.writeEnvelope(ctx, keySnapshot, snapshotEnvelope{Coins: snapshot, FetchedAt: now}, f.cfg.MarketTTL)
	if err := f.store.Set(ctx, keyLastCall, []byte(now.UTC().Format(time.RFC3339)), f.cfg.MarketTTL); err != nil {
		log.Printf("cache write %s failed: %v", keyLastCall, err)
	}
}

func (f *Fetcher) storeNews(ctx context.Context, items []domain.NewsItem) {
	f.writeEnvelope(ctx, keyNews, newsEnvelope{Items: items, FetchedAt: f.now()}, f.cfg.NewsTTL)
}

func (f *Fetcher) storeSentiment(ctx context.Context, summary domain.SentimentSummary) {
	f.writeEnvelope(ctx, keySentiment, sentimentEnvelope{Summary: summary, FetchedAt: f.now()}, f.cfg.NewsTTL)
}

func (f *Fetcher) storeIDs(ctx context.Context, ids []string) {
	f.writeEnvelope(ctx, keyCoinIDs, idsEnvelope{IDs: ids, FetchedAt: f.now()}, f.cfg.CoinListTTL)
}
