package event

import (
	"sort"
	"strings"
)

// Merge collapses duplicates in the concatenated output of all sources and
// returns a deterministically ordered list.
//
// Two passes run over the priority-sorted input:
//
//  1. Exact pass: no two retained events share an identity key. On a
//     collision the event from the higher-priority source is kept.
//  2. Near-duplicate pass: events with the same normalized title whose dates
//     fall on the same UTC calendar day collapse even when formatting
//     differences produced distinct keys. Events with unparseable dates
//     collapse only on identical date tokens.
//
// Merge is idempotent: merging an already-merged list returns the same list.
func Merge(events []*Event) []*Event {
	sorted := make([]*Event, len(events))
	copy(sorted, events)
	Sort(sorted)

	byKey := make(map[string]bool, len(sorted))
	byNear := make(map[string]bool, len(sorted))
	out := make([]*Event, 0, len(sorted))

	for _, evt := range sorted {
		if byKey[evt.IdentityKey] {
			continue
		}
		near := nearKey(evt)
		if byNear[near] {
			continue
		}
		byKey[evt.IdentityKey] = true
		byNear[near] = true
		out = append(out, evt)
	}

	return out
}

// nearKey buckets an event for the near-duplicate pass: normalized title plus
// the UTC calendar day (or the raw date token when the date does not parse).
// The tolerance window is therefore one calendar day; "Fall Festival" on
// 2026-09-12 from two sources collapses, the same title on 2026-09-13 does not.
func nearKey(evt *Event) string {
	return NormalizeTitle(evt.Title) + "|" + DateToken(evt.When)
}

// Sort orders events deterministically: source priority, then parsed date
// (undated entries last), then title, then identity key as the final
// tie-break. Repeated requests over unchanged upstream data yield identical
// output order.
func Sort(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if pa, pb := a.Source.Priority(), b.Source.Priority(); pa != pb {
			return pa < pb
		}
		da, db := ParseWhen(a.When), ParseWhen(b.When)
		switch {
		case !da.IsZero() && !db.IsZero() && !da.Equal(db):
			return da.Before(db)
		case da.IsZero() != db.IsZero():
			return !da.IsZero()
		}
		if ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title); ta != tb {
			return ta < tb
		}
		return a.IdentityKey < b.IdentityKey
	})
}

// CountBySource tallies events per source. The aggregation summary reports
// these counts from the final deduplicated list, not raw collector yields.
func CountBySource(events []*Event) map[string]int {
	counts := make(map[string]int, len(Sources))
	for _, evt := range events {
		counts[string(evt.Source)]++
	}
	return counts
}
