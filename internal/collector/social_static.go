package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/fetch"
	"github.com/stevib/family-events/internal/location"
	"github.com/stevib/family-events/internal/logger"
)

// DefaultSocialSearchURL is the events search page of the social network.
const DefaultSocialSearchURL = "https://www.facebook.com/events/search"

// StaticSocial performs a single non-interactive fetch of the social
// network's events search page and extracts whatever the initial response
// contains. It yields fewer events than the dynamic collector but its only
// failure modes are network and HTTP errors.
type StaticSocial struct {
	client    *fetch.Client
	searchURL string
	log       *logger.Logger
}

// NewStaticSocial creates the static social-feed collector.
func NewStaticSocial(client *fetch.Client, log *logger.Logger) *StaticSocial {
	return &StaticSocial{client: client, searchURL: DefaultSocialSearchURL, log: log}
}

// NewStaticSocialURL creates the collector against a non-default search
// page; tests point it at a local server.
func NewStaticSocialURL(client *fetch.Client, searchURL string, log *logger.Logger) *StaticSocial {
	return &StaticSocial{client: client, searchURL: searchURL, log: log}
}

func (s *StaticSocial) Source() event.Source { return event.SourceSocialFeed }

// Collect fetches the search page for the place's query and extracts event
// objects from the embedded JSON payloads the page ships with its first
// render.
func (s *StaticSocial) Collect(ctx context.Context, place location.Place, window event.DateRange) ([]RawRecord, error) {
	u := s.searchURL + "?q=" + url.QueryEscape(place.Social.Query)

	body, err := s.client.Get(ctx, u, "text/html")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}

	records := extractEmbeddedSocial(doc)
	s.log.Debug("static social extraction", logger.Fields{
		"location": place.Name,
		"count":    len(records),
	})

	return filterSocialByLocation(records, place.Name), nil
}

// extractEmbeddedSocial walks every JSON script payload on the page and
// collects objects typed as events, deduplicated by on-page ID.
func extractEmbeddedSocial(doc *goquery.Document) []RawRecord {
	byID := make(map[string]*SocialRaw)
	order := make([]string, 0)

	doc.Find(`script[type="application/json"], script[data-sjs]`).Each(func(_ int, sel *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			return
		}
		findSocialRecords(payload, byID, &order)
	})

	records := make([]RawRecord, 0, len(order))
	for _, id := range order {
		records = append(records, RawRecord{Source: event.SourceSocialFeed, Social: byID[id]})
	}
	return records
}

// findSocialRecords recursively searches a decoded JSON document for event
// objects. The page nests them at varying depths depending on the render
// path, so shape checks beat path walking.
func findSocialRecords(v any, byID map[string]*SocialRaw, order *[]string) {
	switch t := v.(type) {
	case map[string]any:
		if t["__typename"] == "Event" {
			if rec := socialRecordFromJSON(t); rec != nil {
				if _, seen := byID[rec.PageID]; !seen {
					byID[rec.PageID] = rec
					*order = append(*order, rec.PageID)
				}
			}
		}
		for _, vv := range t {
			findSocialRecords(vv, byID, order)
		}
	case []any:
		for _, vv := range t {
			findSocialRecords(vv, byID, order)
		}
	}
}

func socialRecordFromJSON(obj map[string]any) *SocialRaw {
	name, _ := obj["name"].(string)
	id, _ := obj["id"].(string)
	if name == "" || id == "" {
		return nil
	}

	rec := &SocialRaw{
		PageID: id,
		Title:  name,
	}
	if s, ok := obj["day_time_sentence"].(string); ok {
		rec.DayTime = s
	}
	if s, ok := obj["description"].(string); ok {
		rec.Description = s
	}
	if s, ok := obj["url"].(string); ok && s != "" {
		rec.URL = s
	} else if s, ok := obj["eventUrl"].(string); ok {
		rec.URL = s
	}
	if place, ok := obj["event_place"].(map[string]any); ok {
		if s, ok := place["contextual_name"].(string); ok {
			rec.Venue = s
		}
	}
	if sc, ok := obj["social_context"].(map[string]any); ok {
		if s, ok := sc["text"].(string); ok {
			rec.SocialContext = s
		}
	}
	return rec
}

// filterSocialByLocation keeps records whose title or venue mentions the
// location name. The search page happily returns regional results; this
// trims them. When the filter would remove everything, the unfiltered list
// is returned so a strict venue format cannot blank out a source.
func filterSocialByLocation(records []RawRecord, locName string) []RawRecord {
	needle := strings.ToLower(locName)
	kept := make([]RawRecord, 0, len(records))
	for _, r := range records {
		if r.Social == nil {
			continue
		}
		title := strings.ToLower(r.Social.Title)
		venue := strings.ToLower(r.Social.Venue)
		if strings.Contains(title, needle) || strings.Contains(venue, needle) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return records
	}
	return kept
}
