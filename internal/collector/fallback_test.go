package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/location"
)

type fakeCollector struct {
	source  event.Source
	records []RawRecord
	err     error
	delay   time.Duration
	calls   int
}

func (f *fakeCollector) Source() event.Source { return f.source }

func (f *fakeCollector) Collect(ctx context.Context, place location.Place, window event.DateRange) ([]RawRecord, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, f.err
}

func socialRecords(n int) []RawRecord {
	out := make([]RawRecord, n)
	for i := range out {
		out[i] = RawRecord{Source: event.SourceSocialFeed, Social: &SocialRaw{PageID: string(rune('a' + i)), Title: "Event"}}
	}
	return out
}

func testController() *Controller {
	return &Controller{
		MinYield:       3,
		DynamicTimeout: time.Second,
		StaticTimeout:  time.Second,
		Log:            testLogger(),
	}
}

func TestControllerDynamicSucceeds(t *testing.T) {
	dynamic := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(5)}
	static := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(2)}

	records, attempts := testController().Collect(context.Background(), Pair{Dynamic: dynamic, Static: static}, testPlace(), event.DateRange{})

	if len(records) != 5 {
		t.Fatalf("expected dynamic records, got %d", len(records))
	}
	if static.calls != 0 {
		t.Error("static collector should not run when dynamic succeeds")
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].Mode != ModeDynamic || attempts[0].Outcome != OutcomeSuccess {
		t.Errorf("unexpected attempt %+v", attempts[0])
	}
}

func TestControllerFallsBackOnDynamicError(t *testing.T) {
	dynamic := &fakeCollector{source: event.SourceSocialFeed, err: ErrDynamicCollectionFailed}
	static := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(2)}

	records, attempts := testController().Collect(context.Background(), Pair{Dynamic: dynamic, Static: static}, testPlace(), event.DateRange{})

	if len(records) != 2 {
		t.Fatalf("expected static records, got %d", len(records))
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Mode != ModeDynamic || attempts[0].Outcome != OutcomeFailure {
		t.Errorf("unexpected first attempt %+v", attempts[0])
	}
	if attempts[1].Mode != ModeStatic || attempts[1].Outcome != OutcomeSuccess {
		t.Errorf("unexpected second attempt %+v", attempts[1])
	}
}

func TestControllerFallsBackOnLowYield(t *testing.T) {
	dynamic := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(2)}
	static := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(4)}

	records, attempts := testController().Collect(context.Background(), Pair{Dynamic: dynamic, Static: static}, testPlace(), event.DateRange{})

	if len(records) != 4 {
		t.Fatalf("expected static records after thin dynamic yield, got %d", len(records))
	}
	if attempts[0].Outcome != OutcomePartial {
		t.Errorf("thin yield should be recorded as partial, got %q", attempts[0].Outcome)
	}
}

func TestControllerKeepsPartialWhenStaticFails(t *testing.T) {
	dynamic := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(2)}
	static := &fakeCollector{source: event.SourceSocialFeed, err: errors.New("blocked")}

	records, attempts := testController().Collect(context.Background(), Pair{Dynamic: dynamic, Static: static}, testPlace(), event.DateRange{})

	if len(records) != 2 {
		t.Fatalf("expected thin dynamic records back, got %d", len(records))
	}
	if attempts[1].Outcome != OutcomeFailure {
		t.Errorf("unexpected static outcome %q", attempts[1].Outcome)
	}
}

func TestControllerDynamicTimeout(t *testing.T) {
	ctrl := testController()
	ctrl.DynamicTimeout = 50 * time.Millisecond
	dynamic := &fakeCollector{source: event.SourceSocialFeed, delay: time.Second, records: socialRecords(5)}
	static := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(3)}

	records, attempts := ctrl.Collect(context.Background(), Pair{Dynamic: dynamic, Static: static}, testPlace(), event.DateRange{})

	if len(records) != 3 {
		t.Fatalf("expected static records after timeout, got %d", len(records))
	}
	if attempts[0].Outcome != OutcomeFailure {
		t.Errorf("timed-out attempt should be a failure, got %q", attempts[0].Outcome)
	}
}

func TestControllerReportsTimeoutCause(t *testing.T) {
	dynamic := &fakeCollector{
		source: event.SourceSocialFeed,
		err:    fmt.Errorf("%w: navigate: %w", ErrDynamicCollectionFailed, context.DeadlineExceeded),
	}
	static := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(3)}

	_, attempts := testController().Collect(context.Background(), Pair{Dynamic: dynamic, Static: static}, testPlace(), event.DateRange{})

	if attempts[0].Outcome != OutcomeFailure {
		t.Fatalf("expected the dynamic attempt to fail, got %q", attempts[0].Outcome)
	}
	if !strings.Contains(attempts[0].Error, "collection timed out after") {
		t.Errorf("expected a timeout summary, got %q", attempts[0].Error)
	}
}

func TestControllerStaticOnly(t *testing.T) {
	static := &fakeCollector{source: event.SourceCommunityCalendar, records: []RawRecord{
		{Source: event.SourceCommunityCalendar, Community: &CommunityRaw{ID: "1", Title: "Event"}},
	}}

	records, attempts := testController().Collect(context.Background(), Pair{Static: static}, testPlace(), event.DateRange{})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if len(attempts) != 1 || attempts[0].Mode != ModeStatic {
		t.Fatalf("expected a single static attempt, got %+v", attempts)
	}
	if attempts[0].Source != event.SourceCommunityCalendar {
		t.Errorf("attempt should carry the collector's source, got %q", attempts[0].Source)
	}
}

func TestControllerGateExhausted(t *testing.T) {
	ctrl := testController()
	ctrl.Gate = NewSessionGate(1)
	if !ctrl.Gate.TryAcquire() {
		t.Fatal("expected first acquire to succeed")
	}
	defer ctrl.Gate.Release()

	dynamic := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(5)}
	static := &fakeCollector{source: event.SourceSocialFeed, records: socialRecords(2)}

	records, attempts := ctrl.Collect(context.Background(), Pair{Dynamic: dynamic, Static: static}, testPlace(), event.DateRange{})

	if dynamic.calls != 0 {
		t.Error("dynamic collector should not run when the gate is full")
	}
	if len(records) != 2 {
		t.Fatalf("expected static records, got %d", len(records))
	}
	if len(attempts) != 1 || attempts[0].Mode != ModeStatic {
		t.Fatalf("expected only the static attempt, got %+v", attempts)
	}
}

func TestSessionGate(t *testing.T) {
	gate := NewSessionGate(2)
	if !gate.TryAcquire() || !gate.TryAcquire() {
		t.Fatal("expected two acquires to succeed")
	}
	if gate.TryAcquire() {
		t.Fatal("third acquire should fail")
	}
	gate.Release()
	if !gate.TryAcquire() {
		t.Fatal("acquire after release should succeed")
	}
}
