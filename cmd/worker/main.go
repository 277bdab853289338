package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"kynewsroom/internal/config"
	hhttp "kynewsroom/internal/handler/http/respond"
	pgRepo "kynewsroom/internal/infra/adapter/persistence/postgres"
	"kynewsroom/internal/infra/db"
	"kynewsroom/internal/infra/fetcher"
	"kynewsroom/internal/infra/media"
	"kynewsroom/internal/infra/scraper"
	"kynewsroom/internal/infra/summarizer"
	workerPkg "kynewsroom/internal/infra/worker"
	"kynewsroom/internal/usecase/classify"
	"kynewsroom/internal/usecase/ingest"
	"kynewsroom/internal/usecase/summarize"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const probe = "SELECT 1 FROM feeds LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("crawl_timeout", workerConfig.CrawlTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	svc := setupIngestService(ctx, logger, database)

	startCronWorker(logger, svc, workerConfig, workerMetrics, healthServer)
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

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// setupIngestService wires the feed fetcher, HTML scraper, content
// enricher, classifier, summarizer, and media mirror into a single
// ingest.Service, generalizing the teacher's single-source fetch wiring
// into the multi-mode (RSS/Atom/scrape) pipeline.
func setupIngestService(ctx context.Context, logger *slog.Logger, database *sql.DB) *ingest.Service {
	feedRepo := pgRepo.NewFeedRepo(database)
	itemRepo := pgRepo.NewItemRepo(database)
	locationRepo := pgRepo.NewItemLocationRepo(database)

	httpClient := createHTTPClient()
	feedFetcher := fetcher.NewRSSFetcher(httpClient)

	webScraperClient := createWebScraperHTTPClient()
	htmlScraper := scraper.NewHTMLScraper(webScraperClient)

	contentFetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load content fetch configuration", slog.Any("error", err))
		logger.Warn("content fetching disabled due to configuration error")
		contentFetchConfig = fetcher.DefaultConfig()
		contentFetchConfig.Enabled = false
	}

	var contentFetcher ingest.ContentFetcher
	if contentFetchConfig.Enabled {
		contentFetcher = fetcher.NewArticleEnricher(contentFetchConfig)
		logger.Info("content fetching enabled",
			slog.Int("threshold", contentFetchConfig.Threshold),
			slog.Int("parallelism", contentFetchConfig.Parallelism),
			slog.Duration("timeout", contentFetchConfig.Timeout))
	} else {
		logger.Info("content fetching disabled")
	}

	var summarizerSvc ingest.Summarizer
	summarizerCfg, err := config.LoadSummarizerConfig()
	if err != nil {
		logger.Warn("failed to load summarizer configuration, summarization disabled", slog.Any("error", err))
	} else if !summarizerCfg.Enabled {
		logger.Info("summarization disabled via configuration")
	} else {
		summarizerSvc = setupSummarizer(logger, database, summarizerCfg)
	}

	var mediaMirror ingest.MediaMirror
	appConfig, err := config.LoadAppConfig()
	if err != nil {
		logger.Warn("failed to load app configuration, media mirroring disabled", slog.Any("error", err))
	} else {
		mediaRepo := pgRepo.NewItemMediaRepo(database)
		store, err := media.NewStore(ctx, appConfig.MediaStore, mediaRepo)
		if err != nil {
			logger.Warn("failed to initialize media store, media mirroring disabled", slog.Any("error", err))
		} else {
			mediaMirror = store
			logger.Info("media mirroring enabled", slog.String("bucket", appConfig.MediaStore.Bucket))
		}
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

// setupSummarizer wires a Generator backend (Claude or OpenAI, per
// SUMMARIZER_TYPE) into the summarize.Service that owns the word-count
// bounds, cache, repair pass, and review-queue escalation.
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
		logger.Info("using Claude for summarization")
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Warn("OPENAI_API_KEY not set, falling back to no-op summarizer")
			generator = summarizer.NewNoOp()
			break
		}
		generator = summarizer.NewOpenAI(apiKey, summarizer.LoadOpenAIConfig())
		logger.Info("using OpenAI for summarization")
	default:
		logger.Warn("unknown SUMMARIZER_TYPE, falling back to no-op summarizer", slog.String("type", cfg.Backend))
		generator = summarizer.NewNoOp()
	}

	return summarize.NewService(generator, summaryRepo, reviewRepo, cfg.Model)
}

// createHTTPClient creates an HTTP client with timeouts and connection
// pooling. TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// createWebScraperHTTPClient creates an HTTP client for web scraping.
// It has a shorter timeout than the RSS client; redirect validation is
// handled inside the scraper/fetcher implementations themselves.
func createWebScraperHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// startCronWorker starts the cron scheduler and runs the crawl job
// periodically.
func startCronWorker(logger *slog.Logger, svc *ingest.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runCrawlJob(logger, svc, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker marked as ready")
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))
	select {}
}

// runCrawlJob executes a single crawl job with timeout and error handling.
func runCrawlJob(logger *slog.Logger, svc *ingest.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	metrics.RecordJobRun("started")
	logger.Info("crawl started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CrawlTimeout)
	defer cancel()

	stats, err := svc.CrawlAllFeeds(ctx)
	if err != nil {
		logger.Error("crawl failed", slog.Any("error", hhttp.SanitizeError(err)))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		return
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(startTime).Seconds())
	metrics.RecordFeedsProcessed(stats.Feeds)
	metrics.RecordLastSuccess()

	logger.Info("crawl completed",
		slog.Int("feeds", stats.Feeds),
		slog.Int64("feed_items", stats.FeedItems),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("duplicated", stats.Duplicated),
		slog.Int64("not_modified", stats.NotModified),
		slog.Duration("duration", stats.Duration),
	)
}
