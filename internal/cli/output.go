package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/stevib/family-events/internal/aggregate"
	"github.com/stevib/family-events/internal/calendar"
	"github.com/stevib/family-events/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, res aggregate.Result, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatICS:
		return writeICS(w, res)
	case FormatText:
		return writeText(w, res, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs the full result as JSON
func writeJSON(w io.Writer, res aggregate.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(res)
}

// writeICS outputs the merged events as an iCalendar document
func writeICS(w io.Writer, res aggregate.Result) error {
	_, err := io.WriteString(w, calendar.Generate(res.Events, time.Now()))
	return err
}

// writeText outputs results as human-readable text, grouped by category
func writeText(w io.Writer, res aggregate.Result, verbose bool) error {
	if len(res.Events) == 0 {
		fmt.Fprintf(w, "No events found for %s.\n", res.Summary.Location)
		if len(res.Summary.FailedSources) > 0 {
			fmt.Fprintf(w, "Sources unavailable: %d\n", len(res.Summary.FailedSources))
		}
		return nil
	}

	byCategory := make(map[string][]*event.Event)
	for _, evt := range res.Events {
		byCategory[evt.Category] = append(byCategory[evt.Category], evt)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		events := byCategory[cat]
		fmt.Fprintf(w, "\n%s (%d):\n", cat, len(events))
		for _, evt := range events {
			fmt.Fprintf(w, "  %s | %s\n", evt.When, evt.Title)
			if evt.InterestedCount > 0 || evt.AttendingCount > 0 {
				fmt.Fprintf(w, "       %d interested, %d going\n", evt.InterestedCount, evt.AttendingCount)
			}
			if verbose {
				fmt.Fprintf(w, "       Source: %s\n", evt.Source)
				if evt.Address != "" {
					fmt.Fprintf(w, "       Where: %s\n", evt.Address)
				}
				if evt.Website != "" {
					fmt.Fprintf(w, "       Link: %s\n", evt.Website)
				}
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d events for %s\n", res.Summary.Total, res.Summary.Location)
	if res.Summary.PartialFailure {
		fmt.Fprintf(w, "Note: %d source(s) unavailable, results may be incomplete\n", len(res.Summary.FailedSources))
	}
	return nil
}
