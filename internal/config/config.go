// Package config provides the engine configuration: the location table,
// per-source thresholds, timeout budgets, and the category classifier table.
// Configuration is an explicit object passed into the aggregation engine at
// construction; there is no module-level mutable state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stevib/family-events/internal/location"
)

// CollectionConfig holds per-source thresholds and timeout budgets. Timeouts
// are expressed in seconds to keep the YAML plain.
type CollectionConfig struct {
	// DynamicTimeoutSec bounds one dynamic (browser) collection attempt.
	DynamicTimeoutSec int `yaml:"dynamic_timeout_sec"`
	// StaticTimeoutSec bounds one static collection attempt.
	StaticTimeoutSec int `yaml:"static_timeout_sec"`
	// MinDynamicYield is the minimum record count for a dynamic attempt to
	// be accepted without falling back to static collection.
	MinDynamicYield int `yaml:"min_dynamic_yield"`
	// MaxScrolls caps the number of scroll-to-bottom actions per session.
	MaxScrolls int `yaml:"max_scrolls"`
	// MaxIdleScrolls ends the scroll loop after this many consecutive
	// scrolls that render no new entries.
	MaxIdleScrolls int `yaml:"max_idle_scrolls"`
	// ScrollSettleSec bounds the wait for new content after each scroll.
	ScrollSettleSec int `yaml:"scroll_settle_sec"`
	// MaxEntries caps the total entries extracted by one dynamic session.
	MaxEntries int `yaml:"max_entries"`
	// MaxDynamicSessions caps concurrent browser sessions across requests.
	// Attempts beyond the cap degrade directly to static collection.
	MaxDynamicSessions int `yaml:"max_dynamic_sessions"`
	// DaysAhead is the default collection window when the caller passes no
	// date range.
	DaysAhead int `yaml:"days_ahead"`
}

// DynamicTimeout returns the dynamic attempt budget as a duration.
func (c CollectionConfig) DynamicTimeout() time.Duration {
	return time.Duration(c.DynamicTimeoutSec) * time.Second
}

// StaticTimeout returns the static attempt budget as a duration.
func (c CollectionConfig) StaticTimeout() time.Duration {
	return time.Duration(c.StaticTimeoutSec) * time.Second
}

// ScrollSettle returns the per-scroll settle budget as a duration.
func (c CollectionConfig) ScrollSettle() time.Duration {
	return time.Duration(c.ScrollSettleSec) * time.Second
}

// Config is the top-level engine configuration.
type Config struct {
	// Listen is the HTTP listen address for the server binary.
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Collection CollectionConfig `yaml:"collection"`

	// Locations is the enumerated location set the engine serves.
	Locations []location.Place `yaml:"locations"`

	// Categories maps a category tag to the keywords that assign it. The
	// classifier checks categories in a fixed precedence order (school,
	// church, then the rest alphabetically) so results are deterministic.
	Categories map[string][]string `yaml:"categories"`
}

// Default returns the built-in configuration: the stock location table with
// the Snellville sources fully wired, and conservative collection budgets.
func Default() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
		Collection: CollectionConfig{
			DynamicTimeoutSec:  45,
			StaticTimeoutSec:   15,
			MinDynamicYield:    3,
			MaxScrolls:         10,
			MaxIdleScrolls:     3,
			ScrollSettleSec:    8,
			MaxEntries:         30,
			MaxDynamicSessions: 2,
			DaysAhead:          14,
		},
		Locations: defaultLocations(),
		Categories: map[string][]string{
			"school": {"school", "pta", "classroom", "student", "elementary", "kindergarten"},
			"church": {"church", "worship", "congregation", "bible", "vbs", "ministry"},
			"community": {
				"family", "kids", "youth", "community", "festival", "library",
				"camp", "storytime", "rec center",
			},
		},
	}
}

// defaultLocations is the stock location table. Snellville carries the full
// per-source wiring; the remaining locations resolve addresses and the
// social query only until their calendars are configured.
func defaultLocations() []location.Place {
	base := []struct {
		name, address string
	}{
		{"Covington", "3104 Highway 278 NW, Covington, GA 30014"},
		{"Douglasville", "7003 N. Concourse Parkway, Douglasville, GA 30134"},
		{"Duluth", "1500 Pleasant Hill Rd, Duluth, GA 30096"},
		{"Gainesville", "1500 Browns Bridge Rd., Gainesville, GA 30501"},
		{"Hiram", "4215 Jimmy Lee Smith Pkwy, Hiram, GA 30141"},
		{"Fayetteville", "107 Banks Station, Fayetteville, GA 30214"},
		{"Snellville", "1977 Scenic Hwy S, Snellville, GA 30078"},
		{"Stockbridge", "3570 GA-138, Stockbridge, GA 30281"},
		{"Warner Robins", "2907 Watson Blvd, Warner Robins, GA 31093"},
		{"Findlay", "7535 Patriot Dr., Findlay, OH 45840"},
	}

	places := make([]location.Place, 0, len(base))
	for _, b := range base {
		places = append(places, location.Place{
			Name:    b.name,
			Address: b.address,
			Social:  location.SocialParams{Query: b.name + ", " + stateOf(b.address)},
		})
	}

	for i := range places {
		if places[i].Name != "Snellville" {
			continue
		}
		places[i].Community = location.CommunityParams{
			CalendarURL: "https://snellville.macaronikid.com/events/calendar",
			OwnerID:     "58252a7b6f1aaf645c94f16f",
		}
		places[i].Schools = []location.SchoolCalendar{
			{Name: "Brookwood Elementary", URL: "https://brookwoodes.gcpsk12.org/calendar", Format: "html"},
			{Name: "Snellville Middle", URL: "https://snellvillems.gcpsk12.org/calendar", Format: "html"},
			{Name: "South Gwinnett High", URL: "https://southgwinnetths.gcpsk12.org/calendar", Format: "html"},
		}
		places[i].Congregations = []location.CongregationSite{
			{
				Name: "12Stone",
				URL:  "https://12stone.com/events/",
				Selectors: location.SelectorSet{
					Container: ".event__overlay",
				},
			},
			{
				Name: "Grace Snellville",
				URL:  "https://gracesnellville.churchcenter.com/registrations",
				Selectors: location.SelectorSet{
					Container: "article",
					Title:     "h3",
					Date:      "p",
					Link:      "a",
				},
			},
		}
	}
	return places
}

// stateOf extracts the two-letter state code from a US street address,
// which ends with "<ST> <ZIP>".
func stateOf(address string) string {
	fields := strings.Fields(address)
	if len(fields) < 2 {
		return ""
	}
	return fields[len(fields)-2]
}

// Load reads and validates a YAML config file, filling defaults for omitted
// sections.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault loads from path when given, otherwise returns Default.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	col := &c.Collection
	dc := def.Collection
	if col.DynamicTimeoutSec <= 0 {
		col.DynamicTimeoutSec = dc.DynamicTimeoutSec
	}
	if col.StaticTimeoutSec <= 0 {
		col.StaticTimeoutSec = dc.StaticTimeoutSec
	}
	if col.MinDynamicYield <= 0 {
		col.MinDynamicYield = dc.MinDynamicYield
	}
	if col.MaxScrolls <= 0 {
		col.MaxScrolls = dc.MaxScrolls
	}
	if col.MaxIdleScrolls <= 0 {
		col.MaxIdleScrolls = dc.MaxIdleScrolls
	}
	if col.ScrollSettleSec <= 0 {
		col.ScrollSettleSec = dc.ScrollSettleSec
	}
	if col.MaxEntries <= 0 {
		col.MaxEntries = dc.MaxEntries
	}
	if col.MaxDynamicSessions <= 0 {
		col.MaxDynamicSessions = dc.MaxDynamicSessions
	}
	if col.DaysAhead <= 0 {
		col.DaysAhead = dc.DaysAhead
	}
	if len(c.Locations) == 0 {
		c.Locations = def.Locations
	}
	if len(c.Categories) == 0 {
		c.Categories = def.Categories
	}
}

// Validate checks invariants the engine relies on.
func (c *Config) Validate() error {
	if len(c.Locations) == 0 {
		return fmt.Errorf("at least one location is required")
	}
	seen := make(map[string]bool, len(c.Locations))
	for _, p := range c.Locations {
		if p.Name == "" {
			return fmt.Errorf("location with empty name")
		}
		if p.Address == "" {
			return fmt.Errorf("location %q has no address", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate location %q", p.Name)
		}
		seen[p.Name] = true
		for _, s := range p.Schools {
			if s.Format != "" && s.Format != "ics" && s.Format != "html" {
				return fmt.Errorf("location %q: school %q has unknown format %q", p.Name, s.Name, s.Format)
			}
		}
	}
	if c.Collection.MinDynamicYield > c.Collection.MaxEntries {
		return fmt.Errorf("min_dynamic_yield %d exceeds max_entries %d",
			c.Collection.MinDynamicYield, c.Collection.MaxEntries)
	}
	return nil
}
