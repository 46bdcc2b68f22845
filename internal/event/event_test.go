package event

import (
	"testing"
)

func TestIdentityKeyDeterministic(t *testing.T) {
	k1 := IdentityKey("Fall Festival", "2026-09-12", SourceSocialFeed)
	k2 := IdentityKey("Fall Festival", "2026-09-12", SourceSocialFeed)

	if k1 != k2 {
		t.Errorf("IdentityKey should be deterministic, got %s vs %s", k1, k2)
	}

	if len(k1) != 40 { // SHA1 produces 40 hex characters
		t.Errorf("expected key length of 40, got %d", len(k1))
	}
}

func TestIdentityKeyNormalization(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		whenA  string
		whenB  string
		source Source
		equal  bool
	}{
		{
			name:   "case and whitespace insensitive",
			a:      "Fall  Festival",
			b:      "fall festival",
			whenA:  "2026-09-12",
			whenB:  "2026-09-12",
			source: SourceSocialFeed,
			equal:  true,
		},
		{
			name:   "equivalent date formats",
			a:      "Fall Festival",
			b:      "Fall Festival",
			whenA:  "2026-09-12",
			whenB:  "September 12, 2026",
			source: SourceSocialFeed,
			equal:  true,
		},
		{
			name:   "different titles differ",
			a:      "Fall Festival",
			b:      "Spring Festival",
			whenA:  "2026-09-12",
			whenB:  "2026-09-12",
			source: SourceSocialFeed,
			equal:  false,
		},
		{
			name:   "different dates differ",
			a:      "Fall Festival",
			b:      "Fall Festival",
			whenA:  "2026-09-12",
			whenB:  "2026-09-13",
			source: SourceSocialFeed,
			equal:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := IdentityKey(tt.a, tt.whenA, tt.source)
			kb := IdentityKey(tt.b, tt.whenB, tt.source)
			if (ka == kb) != tt.equal {
				t.Errorf("expected equal=%v for %q/%q vs %q/%q", tt.equal, tt.a, tt.whenA, tt.b, tt.whenB)
			}
		})
	}
}

func TestIdentityKeySourceScoped(t *testing.T) {
	ka := IdentityKey("Fall Festival", "2026-09-12", SourceSocialFeed)
	kb := IdentityKey("Fall Festival", "2026-09-12", SourceSchoolCalendar)
	if ka == kb {
		t.Error("same event from different sources should have different identity keys")
	}
}

func TestNewFillsPlaceholders(t *testing.T) {
	evt := New(SourceSocialFeed, "", "")

	if evt.Title != PlaceholderTitle {
		t.Errorf("expected placeholder title, got %q", evt.Title)
	}
	if evt.When != PlaceholderWhen {
		t.Errorf("expected placeholder when, got %q", evt.When)
	}
	if evt.IdentityKey == "" {
		t.Error("expected identity key to be set")
	}
	if evt.Source != SourceSocialFeed {
		t.Errorf("expected source to be preserved, got %q", evt.Source)
	}
}

func TestSourcePriority(t *testing.T) {
	if SourceSocialFeed.Priority() >= SourceCommunityCalendar.Priority() {
		t.Error("social-feed should outrank community-calendar")
	}
	if SourceCommunityCalendar.Priority() >= SourceSchoolCalendar.Priority() {
		t.Error("community-calendar should outrank school-calendar")
	}
	if SourceSchoolCalendar.Priority() >= SourceCongregationCalendar.Priority() {
		t.Error("school-calendar should outrank congregation-calendar")
	}
	if Source("bogus").Valid() {
		t.Error("unknown source should not be valid")
	}
	if !SourceCongregationCalendar.Valid() {
		t.Error("congregation-calendar should be valid")
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Fall Festival", "fall festival"},
		{"  Fall   Festival  ", "fall festival"},
		{"FALL\tFESTIVAL", "fall festival"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
