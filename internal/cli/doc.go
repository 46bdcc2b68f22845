// Package cli implements the command-line interface for family-events.
//
// The cli package provides the Cobra-based CLI for running a one-shot
// aggregation: resolving a location, collecting from every source, and
// writing the merged events as text, JSON, or an iCalendar file. It
// coordinates the config, aggregate, and calendar packages.
package cli
