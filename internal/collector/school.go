package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/fetch"
	"github.com/stevib/family-events/internal/location"
	"github.com/stevib/family-events/internal/logger"
)

// maxOccurrencesPerEvent caps recurrence expansion so a malformed RRULE
// cannot flood a request.
const maxOccurrencesPerEvent = 100

// School collects events from every school calendar configured for a
// location. Static-only: district calendars ship complete pages and feeds.
// ICS feeds get full recurrence expansion; HTML calendars are scraped.
type School struct {
	client *fetch.Client
	log    *logger.Logger
}

// NewSchool creates the school-calendar collector.
func NewSchool(client *fetch.Client, log *logger.Logger) *School {
	return &School{client: client, log: log}
}

func (s *School) Source() event.Source { return event.SourceSchoolCalendar }

// Collect fetches each configured calendar in turn. A failing calendar is
// logged and skipped so one broken school cannot blank the source; the
// collector fails only when every calendar fails.
func (s *School) Collect(ctx context.Context, place location.Place, window event.DateRange) ([]RawRecord, error) {
	if len(place.Schools) == 0 {
		s.log.Debug("no school calendars configured", logger.Fields{"location": place.Name})
		return nil, nil
	}

	var records []RawRecord
	var lastErr error
	failures := 0

	for _, cal := range place.Schools {
		recs, err := s.collectOne(ctx, cal, window)
		if err != nil {
			failures++
			lastErr = err
			s.log.Warn("school calendar failed", logger.Fields{
				"location": place.Name,
				"school":   cal.Name,
				"error":    err.Error(),
			})
			continue
		}
		records = append(records, recs...)
	}

	if failures == len(place.Schools) {
		return nil, fmt.Errorf("all %d school calendars failed: %w", failures, lastErr)
	}
	return records, nil
}

func (s *School) collectOne(ctx context.Context, cal location.SchoolCalendar, window event.DateRange) ([]RawRecord, error) {
	if cal.Format == "ics" {
		body, err := s.client.Get(ctx, cal.URL, "text/calendar")
		if err != nil {
			return nil, err
		}
		return parseSchoolICS(cal, body, window)
	}

	body, err := s.client.Get(ctx, cal.URL, "text/html")
	if err != nil {
		return nil, err
	}
	return parseSchoolHTML(cal, body, window)
}

// parseSchoolICS parses an iCalendar feed and expands recurring events into
// concrete occurrences inside the window.
func parseSchoolICS(calSrc location.SchoolCalendar, body []byte, window event.DateRange) ([]RawRecord, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing ICS from %s: %w", calSrc.URL, err)
	}

	var records []RawRecord
	for _, ve := range cal.Events() {
		uid := ""
		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			uid = p.Value
		}
		summary := ""
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			summary = p.Value
		}
		description := ""
		if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
			description = p.Value
		}
		venue := ""
		if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
			venue = p.Value
		}

		start, err := ve.GetStartAt()
		if err != nil || start.IsZero() {
			continue
		}
		allDay := isAllDay(ve)

		rawRRule := ""
		if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
			rawRRule = p.Value
		}

		for _, occStart := range expandOccurrences(start, rawRRule, exDates(ve), window) {
			records = append(records, RawRecord{
				Source: event.SourceSchoolCalendar,
				School: &SchoolRaw{
					UID:         uid,
					Summary:     summary,
					Description: description,
					Venue:       venue,
					SchoolName:  calSrc.Name,
					URL:         calSrc.URL,
					Start:       occStart,
					AllDay:      allDay,
				},
			})
		}
	}
	return records, nil
}

// expandOccurrences returns the instants a possibly-recurring event occurs
// inside the window. A non-recurring event contributes its start when in
// range; RRULE events are expanded with EXDATEs removed.
func expandOccurrences(start time.Time, rawRRule string, exdates []time.Time, window event.DateRange) []time.Time {
	if rawRRule == "" {
		if window.Contains(start) {
			return []time.Time{start}
		}
		return nil
	}

	r, err := rrule.StrToRRule(rawRRule)
	if err != nil {
		// Unparseable rule: fall back to the base instance.
		if window.Contains(start) {
			return []time.Time{start}
		}
		return nil
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(ex.In(start.Location()))
	}

	rangeStart := window.Start.In(start.Location())
	rangeEnd := window.End.In(start.Location())
	occ := set.Between(rangeStart, rangeEnd, true)
	if len(occ) > maxOccurrencesPerEvent {
		occ = occ[:maxOccurrencesPerEvent]
	}
	return occ
}

func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func exDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSTime parses basic ICS DATE / DATE-TIME / UTC forms.
func parseICSTime(v string) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.Parse("20060102T150405", v)
	default:
		return time.Parse("20060102", v)
	}
}

// schoolHTMLSelectors are the container/title/date patterns tried in order
// against district calendar pages. Districts share CMS vendors, so a small
// fixed table covers the configured calendars.
var schoolHTMLSelectors = []struct {
	container string
	title     []string
	date      []string
}{
	{".fsCalendarEventTitle, .calendar-event", []string{".fsCalendarEventName", ".title", "a"}, []string{".fsCalendarDate", ".date", "time"}},
	{"[class*='event']", []string{"h3", "h2", ".title", "a"}, []string{".date", "time", ".when"}},
	{"li", []string{"h3", "a"}, []string{"time", ".date"}},
}

// parseSchoolHTML extracts events from an HTML calendar page using the
// selector table, keeping entries whose date parses into the window.
func parseSchoolHTML(calSrc location.SchoolCalendar, body []byte, window event.DateRange) ([]RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar page from %s: %w", calSrc.URL, err)
	}

	var records []RawRecord
	for _, pattern := range schoolHTMLSelectors {
		doc.Find(pattern.container).Each(func(_ int, sel *goquery.Selection) {
			title := firstText(sel, pattern.title)
			if title == "" || len(title) < 3 {
				return
			}
			dateText := firstText(sel, pattern.date)
			start := event.ParseWhen(dateText)
			if start.IsZero() || !window.Contains(start) {
				return
			}
			records = append(records, RawRecord{
				Source: event.SourceSchoolCalendar,
				School: &SchoolRaw{
					Summary:    title,
					SchoolName: calSrc.Name,
					URL:        calSrc.URL,
					Start:      start,
					AllDay:     true,
				},
			})
		})
		if len(records) > 0 {
			break
		}
	}

	return dedupeSchool(records), nil
}

func firstText(sel *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		if found := sel.Find(s).First(); found.Length() > 0 {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// dedupeSchool collapses identical title+day pairs produced by overlapping
// selector matches on the same page.
func dedupeSchool(records []RawRecord) []RawRecord {
	seen := make(map[string]bool, len(records))
	out := make([]RawRecord, 0, len(records))
	for _, r := range records {
		if r.School == nil {
			continue
		}
		key := event.NormalizeTitle(r.School.Summary) + "|" + r.School.Start.UTC().Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
