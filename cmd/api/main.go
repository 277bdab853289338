package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"kynewsroom/internal/common/pagination"
	"kynewsroom/internal/config"
	"kynewsroom/internal/handler/http/adminauth"
	"kynewsroom/internal/handler/http/api"
	pgRepo "kynewsroom/internal/infra/adapter/persistence/postgres"
	"kynewsroom/internal/infra/cache"
	"kynewsroom/internal/infra/db"
	"kynewsroom/internal/infra/fetcher"
	"kynewsroom/internal/infra/media"
	"kynewsroom/internal/infra/scraper"
	"kynewsroom/internal/infra/summarizer"
	"kynewsroom/internal/repository"
	"kynewsroom/internal/usecase/classify"
	"kynewsroom/internal/usecase/ingest"
	"kynewsroom/internal/usecase/read"
	"kynewsroom/internal/usecase/summarize"
	"kynewsroom/pkg/ratelimit"
	"kynewsroom/pkg/security/csp"

	hhttp "kynewsroom/internal/handler/http"
	"kynewsroom/internal/handler/http/middleware"
	"kynewsroom/internal/handler/http/requestid"
)

// main wires the read-path/admin HTTP server: Postgres-backed repositories,
// the Redis response cache, the S3-compatible media mirror, and the
// admin-triggered ingest service sit behind three rate-limit buckets
// (read/write/admin), bot protection, CSP, and CORS, the same layered
// middleware chain the teacher's API process used.
func main() {
	logger := initLogger()
	appConfig := initAppConfig(logger)
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version := getVersion()
	components := setupServer(context.Background(), logger, database, appConfig, version)

	runServer(logger, components, version)
}

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func initAppConfig(logger *slog.Logger) *config.AppConfig {
	cfg, err := config.LoadAppConfig()
	if err != nil {
		logger.Error("failed to load app configuration", slog.Any("error", err))
		os.Exit(1)
	}
	return cfg
}

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// ServerComponents holds the HTTP handler plus the collaborators runServer
// needs for graceful shutdown and background cleanup.
type ServerComponents struct {
	Handler    http.Handler
	RedisStore *ratelimit.RedisRateLimitStore
}

// setupServer builds the full read-path/admin handler: repositories, the
// response cache, the media store, the three-bucket rate limiter, bot
// protection, CSP, CORS, and the public/admin router.
func setupServer(ctx context.Context, logger *slog.Logger, database *sql.DB, appConfig *config.AppConfig, version string) *ServerComponents {
	feedRepo := pgRepo.NewFeedRepo(database)
	itemRepo := pgRepo.NewItemRepo(database)
	locationRepo := pgRepo.NewItemLocationRepo(database)
	summaryRepo := pgRepo.NewAISummaryRepo(database)
	mediaRepo := pgRepo.NewItemMediaRepo(database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     appConfig.Redis.Addr,
		Password: appConfig.Redis.Password,
		DB:       appConfig.Redis.DB,
	})

	cacheStore := cache.NewStore(rdb, appConfig.Cache.TTL, appConfig.Cache.Stale)

	var mediaReader api.MediaReader
	if mediaStore, err := media.NewStore(ctx, appConfig.MediaStore, mediaRepo); err != nil {
		logger.Warn("failed to initialize media store, media URLs will be omitted", slog.Any("error", err))
	} else {
		mediaReader = mediaStore
	}

	paginationCfg := pagination.LoadFromEnv()
	readSvc := &read.Service{
		Items:      itemRepo,
		Locations:  locationRepo,
		Summaries:  summaryRepo,
		Media:      mediaRepo,
		Pagination: paginationCfg,
	}

	ingestSvc := setupIngestService(logger, database, appConfig, feedRepo, itemRepo, locationRepo)

	ipExtractor, rateLimitStore := setupRateLimit(logger, rdb)
	readLimiter := middleware.NewIPRateLimiter(
		middleware.IPRateLimiterConfig{Limit: appConfig.RateLimit.ReadPerMinute, Window: time.Minute, Enabled: true},
		ipExtractor, rateLimitStore, ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{}), ratelimit.NewPrometheusMetrics(), nil,
	)
	writeLimiter := middleware.NewIPRateLimiter(
		middleware.IPRateLimiterConfig{Limit: appConfig.RateLimit.WritePerMinute, Window: time.Minute, Enabled: true},
		ipExtractor, rateLimitStore, ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{}), ratelimit.NewPrometheusMetrics(), nil,
	)
	adminLimiter := middleware.NewIPRateLimiter(
		middleware.IPRateLimiterConfig{Limit: appConfig.RateLimit.AdminPerMinute, Window: time.Minute, Enabled: true},
		ipExtractor, rateLimitStore, ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{}), ratelimit.NewPrometheusMetrics(), nil,
	)

	botProtection := middleware.NewBotProtection(middleware.BotProtectionConfig{
		Enabled:  true,
		MinScore: appConfig.RateLimit.BotScoreMin,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /health", &hhttp.HealthHandler{
		DB:                    database,
		Version:               version,
		RateLimiterEnabled:    true,
		ReadRateLimiterStore:  rateLimitStore,
		WriteRateLimiterStore: rateLimitStore,
		AdminRateLimiterStore: rateLimitStore,
	})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	apiRouter := api.NewRouter(api.RouterConfig{
		Read:            readSvc,
		Feeds:           feedRepo,
		Media:           mediaReader,
		Ingest:          ingestSvc,
		Cache:           cacheStore,
		Pagination:      paginationCfg,
		CacheTTLSeconds: int(appConfig.Cache.TTL.Seconds()),
		AdminAuth:       adminauth.Middleware(appConfig.AdminAuth),
	})

	mux.Handle("/api/", rateLimitByRoute(readLimiter, writeLimiter, adminLimiter, apiRouter))

	handler := applyMiddleware(logger, mux, botProtection)

	return &ServerComponents{Handler: handler, RedisStore: rateLimitStore}
}

// rateLimitByRoute dispatches each request through the read, write, or
// admin rate-limit bucket depending on method and path, mirroring the
// three trust tiers config.RateLimitConfig distinguishes.
func rateLimitByRoute(read, write, admin *middleware.IPRateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var limiter *middleware.IPRateLimiter
		switch {
		case len(r.URL.Path) >= len("/api/admin/") && r.URL.Path[:len("/api/admin/")] == "/api/admin/":
			limiter = admin
		case r.Method != http.MethodGet && r.Method != http.MethodHead:
			limiter = write
		default:
			limiter = read
		}
		limiter.Middleware()(next).ServeHTTP(w, r)
	})
}

// setupIngestService wires the feed fetcher, HTML scraper, content
// enricher, classifier, summarizer, and media mirror into a single
// ingest.Service, the same collaborators cmd/worker assembles for its
// cron-driven crawl, so an admin-triggered run behaves identically.
func setupIngestService(
	logger *slog.Logger,
	database *sql.DB,
	appConfig *config.AppConfig,
	feedRepo repository.FeedRepository,
	itemRepo repository.ItemRepository,
	locationRepo repository.ItemLocationRepository,
) *ingest.Service {
	httpClient := createHTTPClient()
	feedFetcher := fetcher.NewRSSFetcher(httpClient)
	htmlScraper := scraper.NewHTMLScraper(httpClient)

	contentFetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load content fetch configuration, content fetching disabled", slog.Any("error", err))
		contentFetchConfig = fetcher.DefaultConfig()
		contentFetchConfig.Enabled = false
	}

	var contentFetcher ingest.ContentFetcher
	if contentFetchConfig.Enabled {
		contentFetcher = fetcher.NewArticleEnricher(contentFetchConfig)
	}

	var summarizerSvc ingest.Summarizer
	summarizerCfg, err := config.LoadSummarizerConfig()
	if err != nil {
		logger.Warn("failed to load summarizer configuration, summarization disabled", slog.Any("error", err))
	} else if summarizerCfg.Enabled {
		summarizerSvc = setupSummarizer(logger, database, summarizerCfg)
	}

	var mediaMirror ingest.MediaMirror
	mediaRepo := pgRepo.NewItemMediaRepo(database)
	if store, storeErr := media.NewStore(context.Background(), appConfig.MediaStore, mediaRepo); storeErr == nil {
		mediaMirror = store
	} else {
		logger.Warn("failed to initialize media store for ingest, media mirroring disabled", slog.Any("error", storeErr))
	}

	return ingest.NewService(
		feedRepo,
		itemRepo,
		locationRepo,
		feedFetcher,
		htmlScraper,
		contentFetcher,
		summarizerSvc,
		mediaMirror,
		classify.New(),
		ingest.ContentFetchConfig{
			Parallelism: contentFetchConfig.Parallelism,
			Threshold:   contentFetchConfig.Threshold,
		},
	)
}

func setupSummarizer(logger *slog.Logger, database *sql.DB, cfg *config.SummarizerConfig) ingest.Summarizer {
	summaryRepo := pgRepo.NewAISummaryRepo(database)
	reviewRepo := pgRepo.NewReviewQueueRepo(database)

	var generator summarizer.Generator
	switch cfg.Backend {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Warn("ANTHROPIC_API_KEY not set, falling back to no-op summarizer")
			generator = summarizer.NewNoOp()
			break
		}
		generator = summarizer.NewClaude(apiKey, summarizer.LoadClaudeConfig())
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Warn("OPENAI_API_KEY not set, falling back to no-op summarizer")
			generator = summarizer.NewNoOp()
			break
		}
		generator = summarizer.NewOpenAI(apiKey, summarizer.LoadOpenAIConfig())
	default:
		generator = summarizer.NewNoOp()
	}

	return summarize.NewService(generator, summaryRepo, reviewRepo, cfg.Model)
}

func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// setupRateLimit builds the IP extractor and the shared Redis-backed rate
// limit store every bucket draws from.
func setupRateLimit(logger *slog.Logger, rdb *redis.Client) (middleware.IPExtractor, *ratelimit.RedisRateLimitStore) {
	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Warn("failed to load trusted proxy configuration, using RemoteAddr", slog.Any("error", err))
		return &middleware.RemoteAddrExtractor{}, ratelimit.NewRedisRateLimitStore(rdb, "ratelimit:")
	}

	var extractor middleware.IPExtractor
	if proxyConfig.Enabled {
		extractor = middleware.NewTrustedProxyExtractor(*proxyConfig)
	} else {
		extractor = &middleware.RemoteAddrExtractor{}
	}
	return extractor, ratelimit.NewRedisRateLimitStore(rdb, "ratelimit:")
}

// applyMiddleware wraps the handler with the CORS -> request ID -> bot
// protection -> recovery -> logging -> body limit -> CSP -> metrics chain,
// the same ordering the teacher's process used minus the auth/user-tier
// stages it applied at the routing layer.
func applyMiddleware(logger *slog.Logger, handler http.Handler, botProtection *middleware.BotProtection) http.Handler {
	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Error("failed to load CORS configuration", slog.Any("error", err))
		os.Exit(1)
	}
	corsConfig.Logger = &middleware.SlogAdapter{Logger: logger}

	cspMW := middleware.NewCSPMiddleware(middleware.CSPMiddlewareConfig{
		Enabled:       true,
		DefaultPolicy: csp.StrictPolicy(),
	})

	chain := handler
	chain = hhttp.MetricsMiddleware(chain)
	chain = cspMW.Middleware()(chain)
	chain = hhttp.LimitRequestBody(1 << 20)(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = botProtection.Middleware()(chain)
	chain = requestid.Middleware(chain)
	chain = middleware.CORS(*corsConfig)(chain)

	return chain
}

func runServer(logger *slog.Logger, components *ServerComponents, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting", slog.String("addr", ":8080"), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
