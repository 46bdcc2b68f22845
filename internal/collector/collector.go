package collector

import (
	"context"
	"errors"
	"time"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/location"
	"github.com/stevib/family-events/internal/metrics"
)

// ErrDynamicCollectionFailed signals a hard failure of a dynamic collection
// attempt (navigation timeout, page structure mismatch, network error). It is
// consumed by the fallback controller and never surfaced to callers.
var ErrDynamicCollectionFailed = errors.New("dynamic collection failed")

// Mode distinguishes the two collection strategies.
type Mode string

const (
	ModeDynamic Mode = "dynamic"
	ModeStatic  Mode = "static"
)

// Outcome classifies one collection attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// Attempt records one collection attempt for the aggregation summary. It
// lives for a single request and is never persisted.
type Attempt struct {
	Source      event.Source  `json:"source"`
	Mode        Mode          `json:"mode"`
	Outcome     Outcome       `json:"outcome"`
	RecordCount int           `json:"record_count"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"-"`
}

// RawRecord is a tagged variant holding one source-shaped record. Exactly one
// of the pointer fields is set, matching Source.
type RawRecord struct {
	Source       event.Source
	Social       *SocialRaw
	Community    *CommunityRaw
	School       *SchoolRaw
	Congregation *CongregationRaw
}

// SocialRaw is an event entry as rendered on the social network's events
// search page.
type SocialRaw struct {
	// PageID is the on-page identifier used to collapse duplicate entries
	// seen across scroll iterations.
	PageID string
	Title  string
	// DayTime is the page's human sentence, e.g. "Sat, Aug 30 at 7 PM".
	DayTime     string
	Description string
	Venue       string
	URL         string
	// SocialContext is the engagement sentence, e.g. "639 interested · 12 going".
	SocialContext string
}

// CommunityRaw is one record from the community calendar API.
type CommunityRaw struct {
	ID            string
	Title         string
	StartDateTime string
	// Who describes the audience; may contain HTML in the API response.
	Who string
	URL string
}

// SchoolRaw is one occurrence from a school calendar feed.
type SchoolRaw struct {
	UID         string
	Summary     string
	Description string
	Venue       string
	SchoolName  string
	URL         string
	Start       time.Time
	AllDay      bool
}

// CongregationRaw is one entry scraped from a congregation site.
type CongregationRaw struct {
	SiteName    string
	Title       string
	DateText    string
	Description string
	URL         string
}

// Collector retrieves raw records for one source at one location.
// Implementations must honor ctx cancellation on all blocking work.
type Collector interface {
	Source() event.Source
	Collect(ctx context.Context, place location.Place, window event.DateRange) ([]RawRecord, error)
}

// SessionGate caps concurrent dynamic browser sessions. Attempts beyond the
// cap degrade directly to static collection instead of queueing.
type SessionGate struct {
	slots chan struct{}
}

// NewSessionGate creates a gate admitting at most n concurrent sessions.
func NewSessionGate(n int) *SessionGate {
	if n <= 0 {
		n = 1
	}
	return &SessionGate{slots: make(chan struct{}, n)}
}

// TryAcquire claims a session slot without blocking. The caller must Release
// the slot on every exit path once acquired.
func (g *SessionGate) TryAcquire() bool {
	select {
	case g.slots <- struct{}{}:
		metrics.DynamicSessionsInUse.Inc()
		return true
	default:
		return false
	}
}

// Release returns a previously acquired slot.
func (g *SessionGate) Release() {
	select {
	case <-g.slots:
		metrics.DynamicSessionsInUse.Dec()
	default:
	}
}
