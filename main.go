package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/productfinder/config"
	"sjsage522/productfinder/helpers"
	"sjsage522/productfinder/internal/scraper"
	"sjsage522/productfinder/logger"
	"sjsage522/productfinder/services/api"
	"sjsage522/productfinder/services/cache"
	"sjsage522/productfinder/services/proxy"
	"sjsage522/productfinder/services/publisher"
	"sjsage522/productfinder/services/worker"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("marketplace", cfg.Marketplace).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	proxies := loadProxies(ctx, cfg)

	metrics := scraper.NewMetrics()
	transportOpts := []scraper.TransportOption{
		scraper.WithBlockGuard(services.Cache, cfg.BlockTime),
		scraper.WithTransportMetrics(metrics),
	}
	if cfg.RequestsPerSecond > 0 {
		transportOpts = append(transportOpts, scraper.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)))
	}
	s := scraper.New(scraper.NewTransport(transportOpts...), scraper.WithMetrics(metrics))

	template := scraper.ScrapeRequest{
		Kind:           scraper.KindProducts,
		Category:       cfg.SearchCategory,
		TargetCount:    cfg.SearchLimit,
		Concurrency:    cfg.Concurrency,
		SinglePageOnly: cfg.SinglePageOnly,
		ProxyPool:      proxies,
		Identity:       scraper.IdentityPolicy{Randomized: cfg.RandomUserAgent, UserAgent: cfg.UserAgent},
		Referers:       cfg.Referers,
		Cookie:         cfg.Cookie,
		Timeout:        cfg.Timeout,
		Geo:            scraper.GeoFor(cfg.Marketplace),
	}

	var server *http.Server
	if cfg.HTTPAddr != "" {
		searcher := scraper.NewSearcher(s, template, cfg.SearchCacheSize, cfg.SearchCacheTTL)
		server = &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      api.NewRouter(api.NewHandlers(searcher, searcher), metrics.Handler()),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting HTTP server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server failed")
			}
		}()
	}

	jobs := buildJobs(cfg, template)
	if len(jobs) == 0 && server == nil {
		log.Fatal().Msg("No search jobs configured and no HTTP_ADDR set")
	}

	workerDone := make(chan struct{})
	if len(jobs) > 0 {
		log.Info().Int("job_count", len(jobs)).Msg("Created search jobs")

		w := worker.NewWorker(
			ctx,
			s,
			jobs,
			services.Publisher,
			helpers.NewLogger(cfg.ErrorLogFile),
			cfg.CrawlInterval,
			cfg.Environment,
		)

		go func() {
			log.Info().Msg("Starting product finder worker")
			w.Start()
			close(workerDone)
		}()
	}

	// Wait for shutdown signal or worker exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
	case <-workerDone:
		log.Info().Msg("Worker exited")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Block guard cache, falling back to process memory when memcached is down
	memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := memcacheService.Ping(); err != nil {
		logger.ForCache().Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unavailable, using in-memory cache")
		services.Cache = cache.NewMemoryService(4096, cfg.BlockTime)
	} else {
		services.Cache = memcacheService
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(); err != nil {
		redisPublisher.Close()
		return nil, err
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services, nil
}

// loadProxies merges the static pool with the downloaded list, if one is configured
func loadProxies(ctx context.Context, cfg *config.Config) []string {
	pool := append([]string(nil), cfg.Proxies...)
	if cfg.ProxyListURL == "" {
		return pool
	}

	loaded, err := proxy.NewLoader(cfg.ProxyListURL).Load(ctx)
	if err != nil {
		logger.ForProxy().Warn().Err(err).Msg("Failed to load proxy list, continuing without it")
		return pool
	}
	return append(pool, loaded...)
}

// buildJobs creates one job per keyword, or a single category browse when no keywords are set
func buildJobs(cfg *config.Config, template scraper.ScrapeRequest) []worker.Job {
	var jobs []worker.Job
	for _, keyword := range cfg.SearchKeywords {
		req := template
		req.Keyword = keyword
		jobs = append(jobs, worker.Job{Name: keyword, Request: req})
	}
	if len(jobs) == 0 && cfg.SearchCategory != "" {
		jobs = append(jobs, worker.Job{Name: "category:" + cfg.SearchCategory, Request: template})
	}
	return jobs
}
