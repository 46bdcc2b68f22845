// Package location maps human-readable location names to canonical addresses
// and per-source search parameters. The location set is closed and comes from
// configuration; asking for anything outside it is a caller error.
package location

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLocation is returned when a requested location is not in the
// configured set. It is a caller error and is never retried.
var ErrUnknownLocation = errors.New("unknown location")

// SocialParams configures the social-feed collectors for one location.
type SocialParams struct {
	// Query is the search text used on the social network's events page,
	// e.g. "Snellville, GA".
	Query string `yaml:"query"`
}

// CommunityParams configures the community-calendar collector.
type CommunityParams struct {
	// CalendarURL is the public calendar page for the location's edition.
	CalendarURL string `yaml:"calendar_url"`
	// OwnerID is the edition owner ID required by the calendar API. Empty
	// means the community calendar has no edition for this location.
	OwnerID string `yaml:"owner_id"`
}

// SchoolCalendar is one school calendar feed for a location.
type SchoolCalendar struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Format is "ics" for iCalendar feeds or "html" for calendar pages that
	// need scraping. Defaults to "html".
	Format string `yaml:"format"`
}

// SelectorSet holds the CSS selectors used to extract events from one
// congregation site. Empty selectors fall back to generic patterns.
type SelectorSet struct {
	Container   string `yaml:"container"`
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
}

// CongregationSite is one congregation calendar page for a location.
type CongregationSite struct {
	Name      string      `yaml:"name"`
	URL       string      `yaml:"url"`
	Selectors SelectorSet `yaml:"selectors"`
}

// Place is the resolved form of a location: its canonical address plus every
// per-source search key the collectors need.
type Place struct {
	Name          string             `yaml:"name"`
	Address       string             `yaml:"address"`
	Social        SocialParams       `yaml:"social"`
	Community     CommunityParams    `yaml:"community"`
	Schools       []SchoolCalendar   `yaml:"schools"`
	Congregations []CongregationSite `yaml:"congregations"`
}

// Resolver answers location lookups against the configured set.
type Resolver struct {
	places map[string]Place
}

// NewResolver builds a Resolver from the configured places. Lookup is
// case-insensitive on the location name.
func NewResolver(places []Place) *Resolver {
	m := make(map[string]Place, len(places))
	for _, p := range places {
		m[strings.ToLower(strings.TrimSpace(p.Name))] = p
	}
	return &Resolver{places: m}
}

// Resolve returns the Place for a location name, or ErrUnknownLocation.
func (r *Resolver) Resolve(name string) (Place, error) {
	p, ok := r.places[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Place{}, fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}
	return p, nil
}

// Names returns the configured location names, sorted.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.places))
	for _, p := range r.places {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
