package cli

import (
	"sort"
	"strings"

	"github.com/stevib/family-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate   SortOrder = "date"
	SortByTitle  SortOrder = "title"
	SortBySource SortOrder = "source"
)

// sortEvents sorts a slice of events based on the specified sort order
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortBySource:
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Source != events[j].Source {
				return events[i].Source.Priority() < events[j].Source.Priority()
			}
			// If sources are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Title != events[j].Title {
				return strings.ToLower(events[i].Title) < strings.ToLower(events[j].Title)
			}
			// If titles are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	}
}

// compareByDate compares two events by their parsed date
// Returns true if event i should come before event j
func compareByDate(i, j *event.Event) bool {
	dateI := event.ParseWhen(i.When)
	dateJ := event.ParseWhen(j.When)

	// If both dates are valid, compare them
	if !dateI.IsZero() && !dateJ.IsZero() {
		return dateI.Before(dateJ)
	}

	// If only one date is valid, put the valid one first
	if !dateI.IsZero() {
		return true
	}
	if !dateJ.IsZero() {
		return false
	}

	// If neither has a valid date, sort by source then title
	if i.Source != j.Source {
		return i.Source.Priority() < j.Source.Priority()
	}
	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}
