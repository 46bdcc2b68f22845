package collector

import (
	"context"
	"errors"
	"time"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/location"
	"github.com/stevib/family-events/internal/logger"
	"github.com/stevib/family-events/internal/metrics"
)

// Pair binds a source's collectors together. Dynamic is nil for sources
// with no browser-driven path; Static is always set.
type Pair struct {
	Dynamic Collector
	Static  Collector
}

// Controller runs a source's dynamic collector first and falls back to the
// static one when the dynamic path fails, times out, or yields too few
// records. Browser sessions are limited by the gate; when the gate is full
// the dynamic attempt is skipped outright.
type Controller struct {
	MinYield       int
	DynamicTimeout time.Duration
	StaticTimeout  time.Duration
	Gate           *SessionGate
	Log            *logger.Logger
}

// Collect runs the pair's collectors for a location and reports every
// attempt made, in order. Records always carry the source they came from,
// never which path produced them.
func (c *Controller) Collect(ctx context.Context, pair Pair, place location.Place, window event.DateRange) ([]RawRecord, []Attempt) {
	var attempts []Attempt
	var partial []RawRecord

	if pair.Dynamic != nil {
		if c.Gate != nil && !c.Gate.TryAcquire() {
			c.Log.Warn("browser session limit reached, degrading to static", logger.Fields{
				"source":   string(pair.Dynamic.Source()),
				"location": place.Name,
			})
		} else {
			records, attempt := c.runDynamic(ctx, pair.Dynamic, place, window)
			attempts = append(attempts, attempt)
			if attempt.Outcome == OutcomeSuccess {
				return records, attempts
			}
			if attempt.Outcome == OutcomePartial {
				partial = records
			}
		}
	}

	records, attempt := c.run(ctx, pair.Static, ModeStatic, c.StaticTimeout, place, window)
	attempts = append(attempts, attempt)
	if attempt.Outcome == OutcomeFailure {
		// A thin dynamic harvest still beats nothing when static breaks too.
		return partial, attempts
	}
	return records, attempts
}

func (c *Controller) runDynamic(ctx context.Context, col Collector, place location.Place, window event.DateRange) ([]RawRecord, Attempt) {
	if c.Gate != nil {
		defer c.Gate.Release()
	}
	records, attempt := c.run(ctx, col, ModeDynamic, c.DynamicTimeout, place, window)
	if attempt.Outcome == OutcomeSuccess && attempt.RecordCount < c.MinYield {
		attempt.Outcome = OutcomePartial
		c.Log.Info("dynamic yield below threshold, falling back", logger.Fields{
			"source":  string(col.Source()),
			"records": attempt.RecordCount,
			"minimum": c.MinYield,
		})
	}
	return records, attempt
}

func (c *Controller) run(ctx context.Context, col Collector, mode Mode, timeout time.Duration, place location.Place, window event.DateRange) ([]RawRecord, Attempt) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	records, err := col.Collect(ctx, place, window)
	elapsed := time.Since(started)

	attempt := Attempt{
		Source:      col.Source(),
		Mode:        mode,
		Outcome:     OutcomeSuccess,
		RecordCount: len(records),
		Elapsed:     elapsed,
	}
	if err != nil {
		attempt.Outcome = OutcomeFailure
		attempt.Error = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			attempt.Error = "collection timed out after " + timeout.String()
		}
		c.Log.Warn("collection attempt failed", logger.Fields{
			"source":     string(col.Source()),
			"mode":       string(mode),
			"elapsed_ms": elapsed.Milliseconds(),
			"error":      attempt.Error,
		})
	} else {
		c.Log.Debug("collection attempt succeeded", logger.Fields{
			"source":     string(col.Source()),
			"mode":       string(mode),
			"records":    len(records),
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}

	metrics.CollectionAttempts.WithLabelValues(string(col.Source()), string(mode), string(attempt.Outcome)).Inc()
	if err != nil {
		return nil, attempt
	}
	return records, attempt
}
