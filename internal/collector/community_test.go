package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/fetch"
	"github.com/stevib/family-events/internal/location"
)

func septemberWindow() event.DateRange {
	return event.DateRange{
		Start: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.September, 30, 23, 59, 59, 0, time.UTC),
	}
}

func TestCommunityCollect(t *testing.T) {
	var gotQuery map[string]string
	var gotImpression string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.Unmarshal([]byte(r.URL.Query().Get("query")), &gotQuery); err != nil {
			t.Errorf("query parameter is not valid JSON: %v", err)
		}
		gotImpression = r.URL.Query().Get("impression")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]string{
			{
				"_id":           "abc123",
				"title":         "Touch-A-Truck",
				"startDateTime": "2025-09-13T14:00:00Z",
				"who":           "<p>Families with kids <b>of all ages</b></p>",
			},
			{
				"_id":           "def456",
				"title":         "Pumpkin Patch Opening",
				"startDateTime": "2025-10-04T15:00:00Z",
				"who":           "Everyone",
			},
			{
				"_id":   "ghi789",
				"title": "Missing start date",
			},
		})
	}))
	defer srv.Close()

	place := location.Place{
		Name: "Snellville",
		Community: location.CommunityParams{
			CalendarURL: "https://snellville.macaronikid.com/events/calendar",
			OwnerID:     "58252a7b6f1aaf645c94f16f",
		},
	}

	col := NewCommunityURL(fetch.New(5*time.Second), srv.URL, testLogger())
	records, err := col.Collect(context.Background(), place, septemberWindow())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if gotQuery["status"] != "active" {
		t.Errorf("expected active status filter, got %q", gotQuery["status"])
	}
	if gotQuery["townOwner"] != "58252a7b6f1aaf645c94f16f" {
		t.Errorf("unexpected townOwner %q", gotQuery["townOwner"])
	}
	if gotQuery["startDate"] != "2025-09-01T00:00:00.000Z" {
		t.Errorf("unexpected startDate %q", gotQuery["startDate"])
	}
	if gotImpression != "true" {
		t.Errorf("expected impression=true, got %q", gotImpression)
	}

	// The October event falls outside the window and the incomplete record
	// is skipped.
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Source != event.SourceCommunityCalendar {
		t.Errorf("record tagged %q, want %q", rec.Source, event.SourceCommunityCalendar)
	}
	if rec.Community.Title != "Touch-A-Truck" {
		t.Errorf("unexpected title %q", rec.Community.Title)
	}
	if rec.Community.Who != "Families with kids of all ages" {
		t.Errorf("expected HTML stripped from who, got %q", rec.Community.Who)
	}
	if rec.Community.URL != "https://snellville.macaronikid.com/events/abc123" {
		t.Errorf("unexpected event URL %q", rec.Community.URL)
	}
}

func TestCommunityCollectUnconfigured(t *testing.T) {
	col := NewCommunity(fetch.New(5*time.Second), testLogger())
	records, err := col.Collect(context.Background(), location.Place{Name: "Grayson"}, septemberWindow())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if records != nil {
		t.Fatalf("expected no records for unconfigured location, got %d", len(records))
	}
}

func TestCommunityCollectBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	place := location.Place{
		Name:      "Snellville",
		Community: location.CommunityParams{CalendarURL: "https://snellville.macaronikid.com/events/calendar", OwnerID: "x"},
	}
	col := NewCommunityURL(fetch.New(5*time.Second), srv.URL, testLogger())
	if _, err := col.Collect(context.Background(), place, septemberWindow()); err == nil {
		t.Fatal("expected error from non-JSON response")
	}
}
