package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// Source identifies the origin system of an event. The set is closed;
// downstream consumers group and filter on these exact values.
type Source string

const (
	SourceSocialFeed           Source = "social-feed"
	SourceCommunityCalendar    Source = "community-calendar"
	SourceSchoolCalendar       Source = "school-calendar"
	SourceCongregationCalendar Source = "congregation-calendar"
)

// Sources lists all known sources in priority order. When two sources report
// the same event, the one earlier in this list wins deduplication.
var Sources = []Source{
	SourceSocialFeed,
	SourceCommunityCalendar,
	SourceSchoolCalendar,
	SourceCongregationCalendar,
}

// Priority returns the dedup priority of a source; lower is preferred.
// Unknown sources sort last.
func (s Source) Priority() int {
	for i, known := range Sources {
		if s == known {
			return i
		}
	}
	return len(Sources)
}

// Valid reports whether s is one of the closed source set.
func (s Source) Valid() bool {
	return s.Priority() < len(Sources)
}

// Placeholder values substituted by the normalization pipeline when a source
// omits a required field. These names are part of the outbound contract.
const (
	PlaceholderTitle = "Untitled Event"
	PlaceholderWhen  = "N/A"
)

// Event is the canonical, post-normalization representation of a single
// listing. Field names are stable: external consumers pattern-match on them.
type Event struct {
	IdentityKey     string `json:"identity_key"`
	Title           string `json:"title"`
	When            string `json:"when"`
	Description     string `json:"description,omitempty"`
	Source          Source `json:"source"`
	Category        string `json:"category"`
	Website         string `json:"website,omitempty"`
	InterestedCount int    `json:"interested_count,omitempty"`
	AttendingCount  int    `json:"attending_count,omitempty"`
	Address         string `json:"address,omitempty"`
}

// New creates an Event with required fields backfilled by placeholders and
// the identity key computed. Optional fields are left for the caller.
func New(source Source, title, when string) *Event {
	title = strings.TrimSpace(title)
	if title == "" {
		title = PlaceholderTitle
	}
	when = strings.TrimSpace(when)
	if when == "" {
		when = PlaceholderWhen
	}
	return &Event{
		IdentityKey: IdentityKey(title, when, source),
		Title:       title,
		When:        when,
		Source:      source,
	}
}

// IdentityKey computes the deterministic fingerprint used to recognize the
// same real-world event across runs: lower-cased whitespace-normalized title,
// a normalized date token, and the source identifier, SHA1-hashed.
func IdentityKey(title, when string, source Source) string {
	h := sha1.New()
	h.Write([]byte(NormalizeTitle(title) + "|" + DateToken(when) + "|" + string(source)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// NormalizeTitle lower-cases a title and collapses all runs of whitespace to
// single spaces.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
