package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/stevib/family-events/internal/event"
)

const defaultEventDuration = 2 * time.Hour

// Generate renders events as an iCalendar document. Events whose when text
// does not parse are scheduled a week out so they still land on the
// calendar rather than vanishing.
func Generate(events []*event.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//family-events//EN")

	for _, evt := range events {
		start := event.ParseWhen(evt.When)
		if start.IsZero() {
			start = now.AddDate(0, 0, 7)
		}

		ve := cal.AddEvent(evt.IdentityKey + "@family-events")
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(start.UTC())
		ve.SetEndAt(start.UTC().Add(defaultEventDuration))
		ve.SetSummary(evt.Title)

		description := evt.When
		if evt.Description != "" {
			description = description + "\n" + evt.Description
		}
		if evt.Website != "" {
			description = description + "\nDetails: " + evt.Website
		}
		ve.SetDescription(description)

		if evt.Address != "" {
			ve.SetLocation(evt.Address)
		}
		if evt.Website != "" {
			ve.SetURL(evt.Website)
		}
	}

	return cal.Serialize()
}
