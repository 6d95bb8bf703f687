package scraper

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sjsage522/productfinder/logger"
	"sjsage522/productfinder/pkg/errors"
)

var totalResultCount = regexp.MustCompile(`"totalResultCount":(\d+)`)

// Scraper runs paginated marketplace searches
type Scraper struct {
	dispatcher Dispatcher
	rnd        *Random
	metrics    *Metrics
}

// Option configures a Scraper
type Option func(*Scraper)

// WithRandom sets the randomness used for identity rotation and headers
func WithRandom(r *Random) Option {
	return func(s *Scraper) { s.rnd = r }
}

// WithMetrics records page and item counts in m
func WithMetrics(m *Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// New creates a scraper that fetches pages through dispatcher
func New(dispatcher Dispatcher, opts ...Option) *Scraper {
	s := &Scraper{dispatcher: dispatcher}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = NewRandom(nil)
	}
	return s
}

// Run validates req, fetches its pages with bounded concurrency and returns
// the collected records. A transport failure on any page aborts the run.
func (s *Scraper) Run(ctx context.Context, req ScrapeRequest) (*ScrapeResult, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		s.metrics.IncError(err)
		return nil, err
	}

	runID := uuid.NewString()
	log := logger.ForScraper(runID)
	state := newRunState()

	rotator := NewRotator(req.Identity, s.rnd)
	builder := NewRequestBuilder(rotator, s.rnd)
	extractor := NewExtractor(req.Geo)
	pages := req.pagePlan()

	log.Info().
		Str("keyword", req.Keyword).
		Str("category", req.Category).
		Str("geo", req.Geo.Code).
		Int("target", req.TargetCount).
		Int("pages", len(pages)).
		Msg("scrape started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Concurrency)

	// Lowest page that reported end of results. Pages after it are skipped;
	// earlier pages still run and report.
	var endPage atomic.Int64
	endPage.Store(math.MaxInt64)
	pastEnd := func(page int) bool { return int64(page) > endPage.Load() }

	outcomes := make(chan PageOutcome, len(pages))
	done := make(chan error, 1)

	go func() {
		for i, page := range pages {
			if pastEnd(page) || gctx.Err() != nil {
				break
			}
			scanHint := i == 0
			g.Go(func() error {
				if pastEnd(page) || gctx.Err() != nil {
					return nil
				}
				outcome := s.fetchPage(gctx, builder, extractor, req, page, scanHint)
				if outcome.Kind == OutcomeFailure {
					return outcome.Err
				}
				if outcome.Kind == OutcomeEndOfResults {
					lowerEndPage(&endPage, page)
				}
				outcomes <- outcome
				return nil
			})
		}
		done <- g.Wait()
		close(outcomes)
	}()

	for outcome := range outcomes {
		state.apply(outcome)
		log.Debug().
			Int("page", outcome.Page).
			Str("outcome", outcome.Kind.String()).
			Int("items", len(outcome.Records)).
			Msg("page processed")
	}

	if err := <-done; err != nil {
		s.metrics.IncError(err)
		log.Error().Err(err).Msg("scrape failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewNetwork("scraper", "run cancelled", err)
	}

	result := &ScrapeResult{
		RunID:              runID,
		TotalAvailableHint: state.totalHint,
		Category:           req.Category,
		Collected:          state.collected(req.TargetCount, req.RatingRange),
		PagesFetched:       state.pagesFetched,
		StartedAt:          state.startedAt,
		Elapsed:            time.Since(state.startedAt),
	}
	switch {
	case state.endOfResults:
		result.StopReason = StopEndOfResults
	case req.SinglePageOnly:
		result.StopReason = StopSinglePage
	default:
		result.StopReason = StopPlanComplete
	}

	log.Info().
		Int("collected", len(result.Collected)).
		Int("pages_fetched", result.PagesFetched).
		Str("stop_reason", string(result.StopReason)).
		Dur("elapsed", result.Elapsed).
		Msg("scrape finished")

	return result, nil
}

func (s *Scraper) fetchPage(ctx context.Context, builder *RequestBuilder, extractor *Extractor, req ScrapeRequest, page int, scanHint bool) PageOutcome {
	desc, err := builder.Build(req, page)
	if err != nil {
		s.metrics.IncPage(OutcomeFailure.String())
		return Failure(page, err)
	}

	resp, err := s.dispatcher.Dispatch(ctx, desc)
	if err != nil {
		s.metrics.IncPage(OutcomeFailure.String())
		return Failure(page, err)
	}

	records, last := extractor.Extract(resp.Body, page)
	s.metrics.AddItems(len(records))

	var outcome PageOutcome
	if last {
		outcome = EndOfResults(page, records)
	} else {
		outcome = Continue(page, records)
	}
	if scanHint {
		outcome.TotalHint = parseTotalHint(resp.Body)
	}
	s.metrics.IncPage(outcome.Kind.String())
	return outcome
}

// lowerEndPage stores page in end unless a lower page is already there
func lowerEndPage(end *atomic.Int64, page int) {
	for {
		cur := end.Load()
		if int64(page) >= cur || end.CompareAndSwap(cur, int64(page)) {
			return
		}
	}
}

func parseTotalHint(body string) *int {
	m := totalResultCount.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}
