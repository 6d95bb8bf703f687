package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sjsage522/productfinder/helpers"
	"sjsage522/productfinder/internal/scraper"
	"sjsage522/productfinder/logger"
	"sjsage522/productfinder/services/publisher"
)

// Runner executes a single scrape run
type Runner interface {
	Run(ctx context.Context, req scraper.ScrapeRequest) (*scraper.ScrapeResult, error)
}

// Job is a scheduled search. Name is used in logs and the published message.
type Job struct {
	Name    string
	Request scraper.ScrapeRequest
}

// Message is the payload published for every collected record
type Message struct {
	RunID       string                `json:"run_id"`
	Job         string                `json:"job"`
	Marketplace string                `json:"marketplace"`
	Record      scraper.ProductRecord `json:"record"`
}

// Worker runs the configured jobs on an interval and publishes their records
type Worker struct {
	ctx         context.Context
	runner      Runner
	jobs        []Job
	publisher   publisher.Publisher
	logger      helpers.LoggerInterface
	interval    time.Duration
	environment string
}

// NewWorker creates a new worker
func NewWorker(
	ctx context.Context,
	runner Runner,
	jobs []Job,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
	interval time.Duration,
	environment string,
) *Worker {
	return &Worker{
		ctx:         ctx,
		runner:      runner,
		jobs:        jobs,
		publisher:   pub,
		logger:      logger,
		interval:    interval,
		environment: environment,
	}
}

// Start runs all jobs immediately and then once per interval until the context is done
func (w *Worker) Start() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		w.runJobs()
		if w.environment != "production" {
			w.logger.LogInfo("scrape cycle took %s", time.Since(start))
		}

		select {
		case <-w.ctx.Done():
			logger.ForWorker().Info().Msg("Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// runJobs runs every job in parallel and then trims the streams
func (w *Worker) runJobs() {
	var wg sync.WaitGroup
	for _, job := range w.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			w.scrapeAndPublish(job)
		}(job)
	}
	wg.Wait()

	if err := w.publisher.TrimStreams(); err != nil {
		w.logger.LogError("StreamTrimming", err)
	}
}

// scrapeAndPublish runs one job and publishes each collected record keyed by marketplace
func (w *Worker) scrapeAndPublish(job Job) {
	result, err := w.runner.Run(w.ctx, job.Request)
	if err != nil {
		w.logger.LogError(job.Name, err)
		return
	}

	marketplace := "US"
	if job.Request.Geo != nil {
		marketplace = job.Request.Geo.Code
	}

	published := 0
	for _, record := range result.Collected {
		data, err := json.Marshal(Message{
			RunID:       result.RunID,
			Job:         job.Name,
			Marketplace: marketplace,
			Record:      record,
		})
		if err != nil {
			w.logger.LogError(job.Name, err)
			return
		}

		if err := w.publisher.Publish(marketplace, data); err != nil {
			w.logger.LogError(job.Name, err)
			continue
		}
		published++
	}

	logger.ForWorker().Info().
		Str("job", job.Name).
		Str("run_id", result.RunID).
		Str("stop_reason", string(result.StopReason)).
		Int("pages", result.PagesFetched).
		Int("published", published).
		Msg("Job finished")

	if w.environment != "production" && len(result.Collected) > 0 {
		first := result.Collected[0]
		w.logger.LogInfo("%s first record: %s %q", job.Name, first.ItemID, first.Title)
	}
}
