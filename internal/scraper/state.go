package scraper

import (
	"sort"
	"sync"
	"time"
)

// runState accumulates page outcomes for one run. Outcomes may arrive in any
// page order.
type runState struct {
	mu           sync.Mutex
	records      map[string]ProductRecord
	totalHint    *int
	pagesFetched int
	endOfResults bool
	startedAt    time.Time
}

func newRunState() *runState {
	return &runState{
		records:   make(map[string]ProductRecord),
		startedAt: time.Now(),
	}
}

// apply merges a successful outcome. An item seen on several pages keeps
// its earliest position.
func (s *runState) apply(outcome PageOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pagesFetched++
	if outcome.Kind == OutcomeEndOfResults {
		s.endOfResults = true
	}
	if outcome.TotalHint != nil {
		s.totalHint = outcome.TotalHint
	}
	for id, record := range outcome.Records {
		if existing, ok := s.records[id]; ok && !record.Position.Before(existing.Position) {
			continue
		}
		s.records[id] = record
	}
}

// collected returns the records ordered by position, filtered by rating and
// cut to limit.
func (s *runState) collected(limit int, ratings *RatingRange) []ProductRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ProductRecord, 0, len(s.records))
	for _, record := range s.records {
		if ratings != nil && record.Reviews.Rating > 0 && !ratings.Contains(record.Reviews.Rating) {
			continue
		}
		out = append(out, record)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].Position.Before(out[j].Position)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
