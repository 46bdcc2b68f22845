package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stevib/family-events/internal/collector"
	"github.com/stevib/family-events/internal/config"
	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/fetch"
	"github.com/stevib/family-events/internal/location"
	"github.com/stevib/family-events/internal/logger"
	"github.com/stevib/family-events/internal/metrics"
	"github.com/stevib/family-events/internal/normalize"
)

// Summary is the per-request report accompanying a result: what ran, what
// failed, and what the merged output looks like.
type Summary struct {
	RequestID      string              `json:"request_id"`
	Location       string              `json:"location"`
	Total          int                 `json:"total"`
	BySource       map[string]int      `json:"by_source"`
	Attempts       []collector.Attempt `json:"attempts,omitempty"`
	FailedSources  []string            `json:"failed_sources,omitempty"`
	PartialFailure bool                `json:"partial_failure"`
	NoEvents       bool                `json:"no_events"`
	ElapsedMs      int64               `json:"elapsed_ms"`
}

// Result is the outcome of one aggregation request. Success is false only
// for request-level errors such as an unknown location; source failures
// degrade the summary instead.
type Result struct {
	Success bool           `json:"success"`
	Events  []*event.Event `json:"events"`
	Error   string         `json:"error,omitempty"`
	Summary Summary        `json:"summary"`
}

// Engine runs aggregation requests against a fixed set of per-source
// collector pairs. Safe for concurrent use.
type Engine struct {
	collection config.CollectionConfig
	resolver   *location.Resolver
	pairs      map[event.Source]collector.Pair
	controller *collector.Controller
	classifier *normalize.Classifier
	log        *logger.Logger
}

// New assembles an engine from explicit parts. Most callers want
// NewFromConfig.
func New(cfg *config.Config, pairs map[event.Source]collector.Pair, ctrl *collector.Controller, log *logger.Logger) *Engine {
	return &Engine{
		collection: cfg.Collection,
		resolver:   location.NewResolver(cfg.Locations),
		pairs:      pairs,
		controller: ctrl,
		classifier: normalize.NewClassifier(cfg.Categories),
		log:        log,
	}
}

// NewFromConfig wires the standard collector set: a dynamic/static pair for
// the social feed and static collectors for the calendar sources.
func NewFromConfig(cfg *config.Config, log *logger.Logger) *Engine {
	client := fetch.New(cfg.Collection.StaticTimeout())
	scroll := collector.ScrollConfig{
		MaxScrolls:     cfg.Collection.MaxScrolls,
		MaxIdleScrolls: cfg.Collection.MaxIdleScrolls,
		Settle:         cfg.Collection.ScrollSettle(),
		MaxEntries:     cfg.Collection.MaxEntries,
	}

	pairs := map[event.Source]collector.Pair{
		event.SourceSocialFeed: {
			Dynamic: collector.NewDynamicSocial(scroll, log),
			Static:  collector.NewStaticSocial(client, log),
		},
		event.SourceCommunityCalendar: {
			Static: collector.NewCommunity(client, log),
		},
		event.SourceSchoolCalendar: {
			Static: collector.NewSchool(client, log),
		},
		event.SourceCongregationCalendar: {
			Static: collector.NewCongregation(client, log),
		},
	}

	ctrl := &collector.Controller{
		MinYield:       cfg.Collection.MinDynamicYield,
		DynamicTimeout: cfg.Collection.DynamicTimeout(),
		StaticTimeout:  cfg.Collection.StaticTimeout(),
		Gate:           collector.NewSessionGate(cfg.Collection.MaxDynamicSessions),
		Log:            log,
	}

	return New(cfg, pairs, ctrl, log)
}

// Locations lists the location names the engine can serve, sorted.
func (e *Engine) Locations() []string {
	return e.resolver.Names()
}

// DefaultWindow returns the window used when a request names no dates.
func (e *Engine) DefaultWindow(now time.Time) event.DateRange {
	return event.DefaultRange(now, e.collection.DaysAhead)
}

// FamilyEvents collects, normalizes, and merges events for a location. All
// sources run in parallel; a failing source degrades the summary rather
// than the request.
func (e *Engine) FamilyEvents(ctx context.Context, locName string, window event.DateRange) Result {
	requestID := uuid.NewString()
	started := time.Now()

	log := e.log
	log.Info("aggregation request", logger.Fields{
		"request_id": requestID,
		"location":   locName,
	})

	place, err := e.resolver.Resolve(locName)
	if err != nil {
		return Result{
			Success: false,
			Events:  []*event.Event{},
			Error:   err.Error(),
			Summary: Summary{
				RequestID: requestID,
				Location:  locName,
				BySource:  map[string]int{},
				NoEvents:  true,
				ElapsedMs: time.Since(started).Milliseconds(),
			},
		}
	}

	if window.IsZero() {
		window = e.DefaultWindow(time.Now())
	}

	var (
		mu       sync.Mutex
		records  []collector.RawRecord
		attempts []collector.Attempt
		wg       sync.WaitGroup
	)

	for _, src := range event.Sources {
		pair, ok := e.pairs[src]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(pair collector.Pair) {
			defer wg.Done()
			recs, atts := e.controller.Collect(ctx, pair, place, window)
			mu.Lock()
			records = append(records, recs...)
			attempts = append(attempts, atts...)
			mu.Unlock()
		}(pair)
	}
	wg.Wait()

	events := normalize.Events(records, e.classifier)
	events = normalize.ConsolidateRecurring(events)
	events = event.FilterRange(events, window)
	events = event.Merge(events)

	bySource := event.CountBySource(events)
	for src, n := range bySource {
		metrics.EventsReturned.WithLabelValues(src).Add(float64(n))
	}

	summary := Summary{
		RequestID:      requestID,
		Location:       place.Name,
		Total:          len(events),
		BySource:       bySource,
		Attempts:       sortAttempts(attempts),
		FailedSources:  failedSources(attempts),
		NoEvents:       len(events) == 0,
		ElapsedMs:      time.Since(started).Milliseconds(),
	}
	summary.PartialFailure = len(summary.FailedSources) > 0

	log.Info("aggregation complete", logger.Fields{
		"request_id":     requestID,
		"location":       place.Name,
		"total":          summary.Total,
		"failed_sources": len(summary.FailedSources),
		"elapsed_ms":     summary.ElapsedMs,
	})

	return Result{Success: true, Events: events, Summary: summary}
}

// failedSources lists sources whose final attempt failed, in priority order.
func failedSources(attempts []collector.Attempt) []string {
	last := make(map[event.Source]collector.Outcome)
	for _, a := range attempts {
		last[a.Source] = a.Outcome
	}
	var out []string
	for _, src := range event.Sources {
		if last[src] == collector.OutcomeFailure {
			out = append(out, string(src))
		}
	}
	return out
}

// sortAttempts orders attempts by source priority, then by execution order
// within a source, so summaries are stable across the parallel fan-out.
func sortAttempts(attempts []collector.Attempt) []collector.Attempt {
	out := make([]collector.Attempt, 0, len(attempts))
	for _, src := range event.Sources {
		for _, a := range attempts {
			if a.Source == src {
				out = append(out, a)
			}
		}
	}
	return out
}
