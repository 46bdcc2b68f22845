package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/fetch"
	"github.com/stevib/family-events/internal/location"
	"github.com/stevib/family-events/internal/logger"
)

// monthNamePattern spots date-looking text when a site has no dedicated
// date element.
var monthNamePattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b`)

// Congregation collects events from congregation websites. Each site carries
// its own selector table since these pages share no common markup; sites
// with empty selectors get a generic heading scan.
type Congregation struct {
	client *fetch.Client
	log    *logger.Logger
}

// NewCongregation creates the congregation-calendar collector.
func NewCongregation(client *fetch.Client, log *logger.Logger) *Congregation {
	return &Congregation{client: client, log: log}
}

func (c *Congregation) Source() event.Source { return event.SourceCongregationCalendar }

// Collect scrapes every configured congregation site. A failing site is
// logged and skipped; the collector fails only when every site fails.
func (c *Congregation) Collect(ctx context.Context, place location.Place, window event.DateRange) ([]RawRecord, error) {
	if len(place.Congregations) == 0 {
		c.log.Debug("no congregation sites configured", logger.Fields{"location": place.Name})
		return nil, nil
	}

	var records []RawRecord
	var lastErr error
	failures := 0

	for _, site := range place.Congregations {
		recs, err := c.collectOne(ctx, site, window)
		if err != nil {
			failures++
			lastErr = err
			c.log.Warn("congregation site failed", logger.Fields{
				"location": place.Name,
				"site":     site.Name,
				"error":    err.Error(),
			})
			continue
		}
		records = append(records, recs...)
	}

	if failures == len(place.Congregations) {
		return nil, fmt.Errorf("all %d congregation sites failed: %w", failures, lastErr)
	}
	return records, nil
}

func (c *Congregation) collectOne(ctx context.Context, site location.CongregationSite, window event.DateRange) ([]RawRecord, error) {
	body, err := c.client.Get(ctx, site.URL, "text/html")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing page from %s: %w", site.URL, err)
	}

	if site.Selectors.Container != "" {
		return scrapeWithSelectors(doc, site, window), nil
	}
	return scrapeGeneric(doc, site, window), nil
}

// scrapeWithSelectors walks the site's configured container elements pulling
// title, date, description and link with the per-site selectors.
func scrapeWithSelectors(doc *goquery.Document, site location.CongregationSite, window event.DateRange) []RawRecord {
	var records []RawRecord
	doc.Find(site.Selectors.Container).Each(func(_ int, sel *goquery.Selection) {
		title := selectorText(sel, site.Selectors.Title)
		if title == "" {
			return
		}
		dateText := selectorText(sel, site.Selectors.Date)
		if dateText == "" {
			return
		}
		if start := event.ParseWhen(dateText); !start.IsZero() && !window.Contains(start) {
			return
		}

		rec := &CongregationRaw{
			SiteName:    site.Name,
			Title:       title,
			DateText:    dateText,
			Description: selectorText(sel, site.Selectors.Description),
			URL:         site.URL,
		}
		if site.Selectors.Link != "" {
			if href, ok := sel.Find(site.Selectors.Link).First().Attr("href"); ok {
				rec.URL = resolveLink(site.URL, href)
			}
		}
		records = append(records, RawRecord{Source: event.SourceCongregationCalendar, Congregation: rec})
	})
	return dedupeCongregation(records)
}

// scrapeGeneric is the fallback for sites with no selector table: scan
// headings and keep those whose surrounding text mentions a month name.
func scrapeGeneric(doc *goquery.Document, site location.CongregationSite, window event.DateRange) []RawRecord {
	var records []RawRecord
	doc.Find("h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		if title == "" || len(title) > 120 {
			return
		}
		context := strings.TrimSpace(sel.Parent().Text())
		dateText := monthNamePhrase(context)
		if dateText == "" {
			return
		}
		if start := event.ParseWhen(dateText); !start.IsZero() && !window.Contains(start) {
			return
		}
		records = append(records, RawRecord{
			Source: event.SourceCongregationCalendar,
			Congregation: &CongregationRaw{
				SiteName: site.Name,
				Title:    title,
				DateText: dateText,
				URL:      site.URL,
			},
		})
	})
	return dedupeCongregation(records)
}

func selectorText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

// monthNamePhrase returns the line of text containing the first month-name
// mention, or empty when none is present.
func monthNamePhrase(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && monthNamePattern.MatchString(line) {
			return line
		}
	}
	return ""
}

func resolveLink(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	hrefURL, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(hrefURL).String()
}

func dedupeCongregation(records []RawRecord) []RawRecord {
	seen := make(map[string]bool, len(records))
	out := make([]RawRecord, 0, len(records))
	for _, r := range records {
		if r.Congregation == nil {
			continue
		}
		key := event.NormalizeTitle(r.Congregation.Title) + "|" + event.DateToken(r.Congregation.DateText)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
