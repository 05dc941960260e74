package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinlens/internal/backoff"
	"coinlens/internal/bot"
	"coinlens/internal/cache"
	"coinlens/internal/config"
	"coinlens/internal/db"
	"coinlens/internal/handler"
	"coinlens/internal/job"
	"coinlens/internal/provider"
	"coinlens/internal/ratelimit"
	"coinlens/internal/repository"
	"coinlens/internal/sentiment"
	"coinlens/internal/service"
	"coinlens/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "coinlens/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	connectRedisFunc       = cache.Connect
	connectPostgresFunc    = db.Connect
	initTracerFunc         = tracing.InitTracer
	startRefresherFunc     = func(r *job.Refresher, ctx context.Context) { go r.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           CoinLens API
// @version         1.0
// @description     Cache-first access layer over CoinGecko market data and NewsAPI headlines.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// The cache store backs data, rate-limit records and advisory locks.
	// Without Redis the in-memory store keeps a single instance working.
	var store cache.Store
	if client, err := connectRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Printf("redis unavailable (%v), using in-memory store", err)
		store = cache.NewMemoryStore()
	} else {
		store = cache.NewRedisStore(client)
	}

	pool, err := connectPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("postgres unavailable (%v), price history disabled", err)
	}

	var historyRepo *repository.PriceHistoryRepository
	if pool != nil {
		historyRepo = repository.NewPriceHistoryRepository(pool, tracer)
		if err := historyRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		defer pool.Close()
	}

	timeout := time.Duration(cfg.HTTPTimeoutSecs) * time.Second
	market := provider.NewCoinGeckoProvider(tracer, cfg.CoinGeckoAPIKey, timeout)
	news := provider.NewNewsProvider(tracer, cfg.NewsAPIKey, timeout)

	var analyzer sentiment.Analyzer
	if a := sentiment.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel); a != nil {
		analyzer = a
	}
	scorer := sentiment.NewScorer(analyzer)

	tracker := ratelimit.NewTracker(store)
	policy := backoff.NewPolicy(time.Duration(cfg.BaseDelaySecs)*time.Second, cfg.BackoffMultiplier)
	fetcher := service.NewFetcher(tracer, market, news, scorer, store, tracker, policy, service.NewFetcherConfig(cfg))

	var recorder job.SnapshotRecorder
	if historyRepo != nil {
		recorder = historyRepo
	}
	refresher := job.NewRefresher(tracer, fetcher, recorder, cfg.RefreshPollSecs)
	startRefresherFunc(refresher, ctx)

	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(fetcher)

	var history handler.HistoryReader
	if historyRepo != nil {
		history = historyRepo
	}
	h := handler.New(tracer, fetcher, history, cfg.AdminAPIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("coinlens"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
