package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/fetch"
	"github.com/stevib/family-events/internal/location"
	"github.com/stevib/family-events/internal/logger"
)

// DefaultCommunityAPIURL is the community calendar's public event API.
const DefaultCommunityAPIURL = "https://api.macaronikid.com/api/v1/event/v2"

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// Community fetches the community calendar's JSON API for the location's
// edition. Static-only: the API returns complete listings in one response.
type Community struct {
	client *fetch.Client
	apiURL string
	log    *logger.Logger
}

// NewCommunity creates the community-calendar collector.
func NewCommunity(client *fetch.Client, log *logger.Logger) *Community {
	return &Community{client: client, apiURL: DefaultCommunityAPIURL, log: log}
}

// NewCommunityURL creates the collector against a non-default API endpoint.
func NewCommunityURL(client *fetch.Client, apiURL string, log *logger.Logger) *Community {
	return &Community{client: client, apiURL: apiURL, log: log}
}

func (c *Community) Source() event.Source { return event.SourceCommunityCalendar }

// communityAPIEvent mirrors the fields we consume from the API response.
type communityAPIEvent struct {
	ID            string `json:"_id"`
	Title         string `json:"title"`
	StartDateTime string `json:"startDateTime"`
	Who           string `json:"who"`
}

// Collect queries the API for active events in the window. Locations without
// a configured edition legitimately yield zero records.
func (c *Community) Collect(ctx context.Context, place location.Place, window event.DateRange) ([]RawRecord, error) {
	if place.Community.OwnerID == "" {
		c.log.Debug("community calendar not configured", logger.Fields{"location": place.Name})
		return nil, nil
	}

	query, err := json.Marshal(map[string]string{
		"status":    "active",
		"townOwner": place.Community.OwnerID,
		"startDate": window.Start.UTC().Format("2006-01-02T15:04:05.000Z"),
		"endDate":   window.End.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	if err != nil {
		return nil, fmt.Errorf("building community query: %w", err)
	}

	u := c.apiURL + "?query=" + url.QueryEscape(string(query)) + "&impression=true"
	body, err := c.client.Get(ctx, u, "application/json")
	if err != nil {
		return nil, err
	}

	var apiEvents []communityAPIEvent
	if err := json.Unmarshal(body, &apiEvents); err != nil {
		return nil, fmt.Errorf("parsing community API response: %w", err)
	}

	siteBase := communitySiteBase(place.Community.CalendarURL)
	records := make([]RawRecord, 0, len(apiEvents))
	for _, ae := range apiEvents {
		if ae.ID == "" || ae.Title == "" || ae.StartDateTime == "" {
			continue
		}
		if start, perr := time.Parse(time.RFC3339, ae.StartDateTime); perr == nil && !window.Contains(start) {
			continue
		}
		records = append(records, RawRecord{
			Source: event.SourceCommunityCalendar,
			Community: &CommunityRaw{
				ID:            ae.ID,
				Title:         ae.Title,
				StartDateTime: ae.StartDateTime,
				Who:           strings.TrimSpace(htmlTagPattern.ReplaceAllString(ae.Who, "")),
				URL:           siteBase + "/events/" + ae.ID,
			},
		})
	}

	c.log.Debug("community collection", logger.Fields{
		"location": place.Name,
		"count":    len(records),
	})
	return records, nil
}

// communitySiteBase derives the edition's site root from its calendar page
// URL so per-event links can be built from record IDs.
func communitySiteBase(calendarURL string) string {
	u, err := url.Parse(calendarURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(calendarURL, "/events/calendar")
	}
	return u.Scheme + "://" + u.Host
}
