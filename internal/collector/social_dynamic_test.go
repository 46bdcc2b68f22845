package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakePage feeds the harvest loop one batch per extraction. Once the batches
// run out it keeps returning the last one, like a page that stopped loading.
type fakePage struct {
	batches  [][]domEntry
	err      error
	extracts int
	scrolls  int
}

func (p *fakePage) extract() ([]domEntry, error) {
	if p.err != nil {
		return nil, p.err
	}
	i := p.extracts
	p.extracts++
	if i >= len(p.batches) {
		i = len(p.batches) - 1
	}
	return p.batches[i], nil
}

func (p *fakePage) scroll() error { p.scrolls++; return nil }

func (p *fakePage) count() int { return 0 }

func pageEntries(start, n int) []domEntry {
	out := make([]domEntry, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%d", 1000+start+i)
		out = append(out, domEntry{
			ID:    id,
			URL:   "https://social.example.com/events/" + id,
			Title: "Event " + id,
			When:  "Saturday at 10 AM",
			Venue: "Snellville, GA",
		})
	}
	return out
}

func scrollCollector(cfg ScrollConfig) *DynamicSocial {
	return NewDynamicSocial(cfg, testLogger())
}

func TestHarvestStopsWhenPageStopsGrowing(t *testing.T) {
	page := &fakePage{batches: [][]domEntry{pageEntries(0, 2)}}
	d := scrollCollector(ScrollConfig{MaxScrolls: 50, MaxIdleScrolls: 3, MaxEntries: 100})

	records, err := d.harvest(context.Background(), page, testPlace())
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if page.scrolls != 3 {
		t.Errorf("expected 3 scrolls before the idle streak ended the loop, got %d", page.scrolls)
	}
}

func TestHarvestStopsAtMaxScrolls(t *testing.T) {
	batches := make([][]domEntry, 10)
	for i := range batches {
		batches[i] = pageEntries(0, i+1)
	}
	page := &fakePage{batches: batches}
	d := scrollCollector(ScrollConfig{MaxScrolls: 4, MaxIdleScrolls: 10, MaxEntries: 100})

	records, err := d.harvest(context.Background(), page, testPlace())
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if page.scrolls != 4 {
		t.Errorf("expected exactly 4 scrolls, got %d", page.scrolls)
	}
	if len(records) != 5 {
		t.Fatalf("expected the 5 entries rendered by then, got %d", len(records))
	}
}

func TestHarvestStopsAtMaxEntries(t *testing.T) {
	batches := make([][]domEntry, 5)
	for i := range batches {
		batches[i] = pageEntries(0, 3*(i+1))
	}
	page := &fakePage{batches: batches}
	d := scrollCollector(ScrollConfig{MaxScrolls: 50, MaxIdleScrolls: 10, MaxEntries: 5})

	records, err := d.harvest(context.Background(), page, testPlace())
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected records capped at 5, got %d", len(records))
	}
}

func TestHarvestCollapsesRepeatedIDs(t *testing.T) {
	page := &fakePage{batches: [][]domEntry{
		pageEntries(0, 2),
		pageEntries(1, 2),
		pageEntries(2, 1),
	}}
	d := scrollCollector(ScrollConfig{MaxScrolls: 50, MaxIdleScrolls: 2, MaxEntries: 100})

	records, err := d.harvest(context.Background(), page, testPlace())
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 unique records, got %d", len(records))
	}
	want := []string{"1000", "1001", "1002"}
	for i, w := range want {
		if records[i].Social.PageID != w {
			t.Errorf("record %d: expected page ID %s, got %s", i, w, records[i].Social.PageID)
		}
	}
}

func TestHarvestExtractError(t *testing.T) {
	page := &fakePage{err: fmt.Errorf("%w: extract: %w", ErrDynamicCollectionFailed, context.DeadlineExceeded)}
	d := scrollCollector(ScrollConfig{MaxScrolls: 10, MaxIdleScrolls: 3, MaxEntries: 100})

	_, err := d.harvest(context.Background(), page, testPlace())
	if !errors.Is(err, ErrDynamicCollectionFailed) {
		t.Fatalf("expected ErrDynamicCollectionFailed, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected the timeout cause to survive wrapping")
	}
}
