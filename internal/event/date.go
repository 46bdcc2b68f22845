package event

import (
	"regexp"
	"strings"
	"time"
)

// whenFormats are the layouts tried, in order, when parsing a "when"
// descriptor. Sources emit anything from full timestamps to bare month/day.
var whenFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 02 2006",
	"Jan 2 2006",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
}

// yearlessFormats are tried with the current year substituted in. Social
// listings commonly render "Sat, Aug 30" with no year.
var yearlessFormats = []string{
	"Jan 2",
	"Jan 02",
	"Monday, January 2",
	"January 2",
}

// embeddedDatePattern pulls a "Aug 30" style fragment out of free text such
// as "Sat, Aug 30 at 7:00 PM".
var embeddedDatePattern = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2}(,?\s+\d{4})?`)

// ParseWhen attempts to parse a when descriptor into a time.Time.
// Returns the zero time if nothing usable is found.
func ParseWhen(when string) time.Time {
	when = strings.TrimSpace(when)
	if when == "" || when == PlaceholderWhen {
		return time.Time{}
	}

	for _, layout := range whenFormats {
		if t, err := time.Parse(layout, when); err == nil {
			return t
		}
	}

	now := time.Now().UTC()
	for _, layout := range yearlessFormats {
		if t, err := time.Parse(layout, when); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}

	// Fall back to an embedded month/day fragment.
	if frag := embeddedDatePattern.FindString(when); frag != "" {
		frag = strings.ReplaceAll(frag, ",", "")
		frag = strings.ReplaceAll(frag, ".", "")
		for _, layout := range []string{"Jan 2 2006", "January 2 2006"} {
			if t, err := time.Parse(layout, frag); err == nil {
				return t
			}
		}
		for _, layout := range []string{"Jan 2", "January 2"} {
			if t, err := time.Parse(layout, frag); err == nil {
				return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			}
		}
	}

	return time.Time{}
}

// DateToken reduces a when descriptor to a normalized token for identity-key
// computation: the UTC calendar day when the date parses, otherwise the
// lower-cased whitespace-normalized text. Identical descriptors always
// produce identical tokens.
func DateToken(when string) string {
	if t := ParseWhen(when); !t.IsZero() {
		return t.UTC().Format("2006-01-02")
	}
	return strings.Join(strings.Fields(strings.ToLower(when)), " ")
}

// DateRange bounds a collection request. A zero range means "no bound".
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no bound was requested.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether t falls inside the range, inclusive on both ends.
// An open end on either side admits everything on that side.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// DefaultRange returns the default collection window: the start of today
// through the end of the day `days` ahead, in UTC.
func DefaultRange(now time.Time, days int) DateRange {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{
		Start: start,
		End:   start.AddDate(0, 0, days+1).Add(-time.Second),
	}
}

// FilterRange drops events whose parsed date falls outside the range. Events
// with unparseable dates are kept; dropping them would hide listings whose
// sources only publish vague sentences.
func FilterRange(events []*Event, r DateRange) []*Event {
	if r.IsZero() {
		return events
	}
	out := make([]*Event, 0, len(events))
	for _, evt := range events {
		t := ParseWhen(evt.When)
		if t.IsZero() || r.Contains(t) {
			out = append(out, evt)
		}
	}
	return out
}
