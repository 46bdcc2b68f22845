package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/fetch"
	"github.com/stevib/family-events/internal/location"
)

func congregationSelectors() location.SelectorSet {
	return location.SelectorSet{
		Container:   ".event-card",
		Title:       ".event-title",
		Date:        ".event-date",
		Description: ".event-desc",
		Link:        ".event-link",
	}
}

func TestCongregationCollect(t *testing.T) {
	fixture, err := os.ReadFile("../../testdata/fixtures/congregation.html")
	if err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(fixture)
	}))
	defer srv.Close()

	place := location.Place{
		Name: "Snellville",
		Congregations: []location.CongregationSite{
			{Name: "First Baptist", URL: srv.URL, Selectors: congregationSelectors()},
		},
	}

	col := NewCongregation(fetch.New(5*time.Second), testLogger())
	if col.Source() != event.SourceCongregationCalendar {
		t.Fatalf("unexpected source %q", col.Source())
	}

	records, err := col.Collect(context.Background(), place, septemberWindow())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	// The December concert is outside the window and the card without a
	// title is dropped.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	potluck := records[0].Congregation
	if potluck.Title != "Community Potluck" {
		t.Errorf("unexpected title %q", potluck.Title)
	}
	if potluck.DateText != "September 14, 2025" {
		t.Errorf("unexpected date text %q", potluck.DateText)
	}
	if potluck.Description != "Bring a dish to share after the morning service." {
		t.Errorf("unexpected description %q", potluck.Description)
	}
	if potluck.SiteName != "First Baptist" {
		t.Errorf("unexpected site name %q", potluck.SiteName)
	}
	if potluck.URL != srv.URL+"/events/potluck" {
		t.Errorf("relative link not resolved: %q", potluck.URL)
	}

	gameNight := records[1].Congregation
	if gameNight.URL != "https://example.org/events/game-night" {
		t.Errorf("absolute link should pass through unchanged: %q", gameNight.URL)
	}
}

func TestCongregationCollectGenericFallback(t *testing.T) {
	page := `<html><body>
<section>
  <h2>Harvest Carnival</h2>
  <p>Join us on September 27, 2025 for games and hayrides.</p>
</section>
<section>
  <h2>About Our Congregation</h2>
  <p>We have served the community for fifty years.</p>
</section>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	place := location.Place{
		Name: "Snellville",
		Congregations: []location.CongregationSite{
			{Name: "Grace Fellowship", URL: srv.URL},
		},
	}

	col := NewCongregation(fetch.New(5*time.Second), testLogger())
	records, err := col.Collect(context.Background(), place, septemberWindow())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record from generic scan, got %d", len(records))
	}
	if records[0].Congregation.Title != "Harvest Carnival" {
		t.Errorf("unexpected title %q", records[0].Congregation.Title)
	}
}

func TestCongregationCollectAllSitesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	place := location.Place{
		Name: "Snellville",
		Congregations: []location.CongregationSite{
			{Name: "First Baptist", URL: srv.URL, Selectors: congregationSelectors()},
		},
	}

	col := NewCongregation(fetch.New(2*time.Second), testLogger())
	if _, err := col.Collect(context.Background(), place, septemberWindow()); err == nil {
		t.Fatal("expected error when every site fails")
	}
}
