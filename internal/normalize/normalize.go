package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/stevib/family-events/internal/collector"
	"github.com/stevib/family-events/internal/event"
)

var (
	interestedPattern = regexp.MustCompile(`(\d+)\s+interested`)
	goingPattern      = regexp.MustCompile(`(\d+)\s+going`)
)

// Events converts raw collection records into canonical events. Records the
// collectors tagged with a payload mismatching their source are dropped.
func Events(records []collector.RawRecord, cls *Classifier) []*event.Event {
	events := make([]*event.Event, 0, len(records))
	for _, r := range records {
		var ev *event.Event
		switch {
		case r.Social != nil:
			ev = fromSocial(r.Social, cls)
		case r.Community != nil:
			ev = fromCommunity(r.Community, cls)
		case r.School != nil:
			ev = fromSchool(r.School)
		case r.Congregation != nil:
			ev = fromCongregation(r.Congregation)
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

func fromSocial(raw *collector.SocialRaw, cls *Classifier) *event.Event {
	ev := event.New(event.SourceSocialFeed, raw.Title, raw.DayTime)
	ev.Description = raw.Description
	ev.Website = raw.URL
	ev.Address = raw.Venue
	ev.Category = cls.Classify(raw.Title, raw.Description, DefaultCategory)
	ev.InterestedCount = extractCount(interestedPattern, raw.SocialContext)
	ev.AttendingCount = extractCount(goingPattern, raw.SocialContext)
	return ev
}

func fromCommunity(raw *collector.CommunityRaw, cls *Classifier) *event.Event {
	when := raw.StartDateTime
	if t, err := time.Parse(time.RFC3339, raw.StartDateTime); err == nil {
		when = t.UTC().Format("January 2, 2006 3:04 PM")
	}
	ev := event.New(event.SourceCommunityCalendar, raw.Title, when)
	ev.Description = raw.Who
	ev.Website = raw.URL
	ev.Category = cls.Classify(raw.Title, raw.Who, DefaultCategory)
	return ev
}

func fromSchool(raw *collector.SchoolRaw) *event.Event {
	layout := "January 2, 2006 3:04 PM"
	if raw.AllDay {
		layout = "January 2, 2006"
	}
	when := event.PlaceholderWhen
	if !raw.Start.IsZero() {
		when = raw.Start.UTC().Format(layout)
	}

	title := raw.Summary
	if title != "" && raw.SchoolName != "" {
		title = title + " (" + raw.SchoolName + ")"
	}

	ev := event.New(event.SourceSchoolCalendar, title, when)
	ev.Description = raw.Description
	ev.Website = raw.URL
	ev.Address = raw.Venue
	ev.Category = "school"
	return ev
}

func fromCongregation(raw *collector.CongregationRaw) *event.Event {
	ev := event.New(event.SourceCongregationCalendar, raw.Title, raw.DateText)
	ev.Description = raw.Description
	ev.Website = raw.URL
	ev.Address = raw.SiteName
	ev.Category = "church"
	return ev
}

func extractCount(pattern *regexp.Regexp, text string) int {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// ConsolidateRecurring collapses repeated school occurrences of the same
// event into the earliest one, noting the later dates on its description.
// Other sources pass through untouched since their feeds list each event
// once.
func ConsolidateRecurring(events []*event.Event) []*event.Event {
	type group struct {
		first *event.Event
		later []string
	}

	groups := make(map[string]*group)
	order := make([]string, 0, len(events))
	out := make([]*event.Event, 0, len(events))

	for _, ev := range events {
		if ev.Source != event.SourceSchoolCalendar {
			out = append(out, ev)
			continue
		}
		key := event.NormalizeTitle(ev.Title)
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{first: ev}
			order = append(order, key)
			continue
		}
		firstAt := event.ParseWhen(g.first.When)
		nextAt := event.ParseWhen(ev.When)
		if !nextAt.IsZero() && (firstAt.IsZero() || nextAt.Before(firstAt)) {
			g.later = append(g.later, g.first.When)
			g.first = ev
		} else {
			g.later = append(g.later, ev.When)
		}
	}

	for _, key := range order {
		g := groups[key]
		if len(g.later) > 0 {
			note := "Also on " + strings.Join(g.later, ", ")
			if g.first.Description == "" {
				g.first.Description = note
			} else {
				g.first.Description = g.first.Description + " " + note
			}
		}
		out = append(out, g.first)
	}
	return out
}
