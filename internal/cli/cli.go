package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stevib/family-events/internal/aggregate"
	"github.com/stevib/family-events/internal/config"
	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/logger"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitNoEvents = 2
)

// errNoEvents signals an empty but successful result, mapped to ExitNoEvents
// by Execute. Returned rather than exiting inside RunE so deferred cleanup
// still runs.
var errNoEvents = errors.New("no events found")

var (
	flagLocation  string
	flagStartDate string
	flagEndDate   string
	flagConfig    string
	flagFormat    string
	flagSort      string
	flagTimeout   time.Duration
	flagVerbose   bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "family-events",
		Short: "Aggregate family events for a location",
		Long: `A CLI tool to aggregate family-friendly events for a location.
Collects from the social feed, community calendar, school calendars, and
congregation sites, then merges duplicates into a single ranked list.`,
		RunE:          runAggregate,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Define flags
	cmd.Flags().StringVar(&flagLocation, "location", "", "Location name, e.g. Snellville (required)")
	cmd.Flags().StringVar(&flagStartDate, "start-date", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagEndDate, "end-date", "", "Window end, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagConfig, "config", "", "Path to YAML config (built-in defaults when empty)")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text, json, or ics")
	cmd.Flags().StringVar(&flagSort, "sort", "date", "Sort order: date, title, or source")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "Overall request timeout")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.MarkFlagRequired("location")

	return cmd
}

// runAggregate is the main command logic
func runAggregate(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON && format != FormatICS {
		return fmt.Errorf("invalid format: %s (must be 'text', 'json', or 'ics')", flagFormat)
	}

	sortOrder := SortOrder(strings.ToLower(flagSort))
	if sortOrder != SortByDate && sortOrder != SortByTitle && sortOrder != SortBySource {
		return fmt.Errorf("invalid sort order: %s (must be 'date', 'title', or 'source')", flagSort)
	}

	level := logger.LevelWarn
	if flagVerbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, os.Stderr)
	logger.SetDefault(log)

	cfg, err := config.LoadOrDefault(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	window, err := windowFromFlags(flagStartDate, flagEndDate)
	if err != nil {
		return err
	}

	if flagVerbose {
		fmt.Fprintf(os.Stderr, "Location: %s\n", flagLocation)
		fmt.Fprintf(os.Stderr, "Configured locations: %d\n", len(cfg.Locations))
	}

	engine := aggregate.NewFromConfig(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	res := engine.FamilyEvents(ctx, flagLocation, window)
	if !res.Success {
		return fmt.Errorf("aggregation failed: %s", res.Error)
	}

	sortEvents(res.Events, sortOrder)

	if err := WriteOutput(os.Stdout, res, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if len(res.Events) == 0 {
		return errNoEvents
	}
	return nil
}

// windowFromFlags parses the optional date flags. An empty window defers to
// the engine's configured default.
func windowFromFlags(startStr, endStr string) (event.DateRange, error) {
	if startStr == "" && endStr == "" {
		return event.DateRange{}, nil
	}
	if startStr == "" || endStr == "" {
		return event.DateRange{}, fmt.Errorf("--start-date and --end-date must be provided together")
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return event.DateRange{}, fmt.Errorf("invalid --start-date %q: want YYYY-MM-DD", startStr)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return event.DateRange{}, fmt.Errorf("invalid --end-date %q: want YYYY-MM-DD", endStr)
	}
	if end.Before(start) {
		return event.DateRange{}, fmt.Errorf("--end-date precedes --start-date")
	}

	return event.DateRange{
		Start: start.UTC(),
		End:   end.UTC().Add(24*time.Hour - time.Second),
	}, nil
}

// Execute runs the CLI
func Execute() {
	os.Exit(exitCode(NewRootCmd().Execute()))
}

// exitCode maps a command error to the process exit code. An empty result is
// not an error but still gets its own code so scripts can tell it apart.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errNoEvents):
		return ExitNoEvents
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
}
