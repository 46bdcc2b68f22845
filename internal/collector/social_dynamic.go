package collector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/stevib/family-events/internal/event"
	"github.com/stevib/family-events/internal/location"
	"github.com/stevib/family-events/internal/logger"
)

// Viewport for the headless session. Tall enough that the page renders a
// full first screen of event cards before any scrolling.
const (
	dynamicViewportWidth  = 1280
	dynamicViewportHeight = 1600
)

// ScrollConfig bounds the scroll-simulation loop. Every limit exists to keep
// collection terminating on malformed or hostile pages.
type ScrollConfig struct {
	// MaxScrolls caps scroll-to-bottom actions per session.
	MaxScrolls int
	// MaxIdleScrolls ends the loop after this many consecutive scrolls
	// that rendered no new entries.
	MaxIdleScrolls int
	// Settle bounds the wait for new content after each scroll; the wait
	// polls for DOM growth rather than sleeping the full budget.
	Settle time.Duration
	// MaxEntries caps the total entries extracted by one session.
	MaxEntries int
}

// DynamicSocial drives a headless browser session against the social
// network's events search page, repeatedly extracting rendered entries and
// scrolling to trigger the page's lazy-loading pagination.
type DynamicSocial struct {
	searchURL string
	scroll    ScrollConfig
	log       *logger.Logger
}

// NewDynamicSocial creates the dynamic social-feed collector.
func NewDynamicSocial(scroll ScrollConfig, log *logger.Logger) *DynamicSocial {
	return &DynamicSocial{searchURL: DefaultSocialSearchURL, scroll: scroll, log: log}
}

// NewDynamicSocialURL creates the collector against a non-default search page.
func NewDynamicSocialURL(searchURL string, scroll ScrollConfig, log *logger.Logger) *DynamicSocial {
	return &DynamicSocial{searchURL: searchURL, scroll: scroll, log: log}
}

func (d *DynamicSocial) Source() event.Source { return event.SourceSocialFeed }

// domEntry mirrors the object shape produced by extractEntriesJS.
type domEntry struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	When    string `json:"when"`
	Venue   string `json:"venue"`
	Context string `json:"context"`
}

// extractEntriesJS pulls every currently-rendered event card out of the DOM.
// Event links carry a numeric event ID in their href; the surrounding card
// text holds the date sentence, venue, and engagement line.
const extractEntriesJS = `(() => {
	const out = [];
	const seen = new Set();
	for (const a of document.querySelectorAll('a[href*="/events/"]')) {
		const m = (a.href || '').match(/\/events\/(\d+)/);
		if (!m || seen.has(m[1])) continue;
		const card = a.closest('[role="article"]') || a.parentElement;
		if (!card) continue;
		const lines = card.innerText.split('\n').map(s => s.trim()).filter(Boolean);
		const title = (a.innerText || '').trim() || (lines.length > 1 ? lines[1] : '');
		if (!title) continue;
		seen.add(m[1]);
		out.push({
			id: m[1],
			url: a.href.split('?')[0],
			title: title,
			when: lines.length > 0 ? lines[0] : '',
			venue: lines.length > 2 ? lines[2] : '',
			context: lines.find(l => /\d+\s+(interested|going)/.test(l)) || ''
		});
	}
	return out;
})()`

// countEntriesJS counts rendered event links; the settle wait polls it to
// detect whether a scroll actually loaded more content.
const countEntriesJS = `document.querySelectorAll('a[href*="/events/"]').length`

const scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight)`

// socialPage is the per-iteration surface of the rendered search page: pull
// what is on screen, trigger more loading, count what has rendered so far.
// A chromedp session backs it in production.
type socialPage interface {
	extract() ([]domEntry, error)
	scroll() error
	count() int
}

type chromedpPage struct {
	ctx context.Context
}

func (p chromedpPage) extract() ([]domEntry, error) {
	var entries []domEntry
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(extractEntriesJS, &entries)); err != nil {
		return nil, fmt.Errorf("%w: extract: %w", ErrDynamicCollectionFailed, err)
	}
	return entries, nil
}

func (p chromedpPage) scroll() error {
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(scrollToBottomJS, nil)); err != nil {
		return fmt.Errorf("%w: scroll: %w", ErrDynamicCollectionFailed, err)
	}
	return nil
}

func (p chromedpPage) count() int {
	var count int
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(countEntriesJS, &count)); err != nil {
		return 0
	}
	return count
}

// Collect runs the scroll-simulation loop. The session is always torn down
// on exit, including failure and context expiry. Hard failures are wrapped
// in ErrDynamicCollectionFailed; deciding whether to fall back belongs to
// the fallback controller, not this collector.
func (d *DynamicSocial) Collect(ctx context.Context, place location.Place, window event.DateRange) ([]RawRecord, error) {
	u := d.searchURL + "?q=" + url.QueryEscape(place.Social.Query)

	// chromedp tears the browser down when this context is cancelled; the
	// deferred cancels cover every exit path.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	sessionCtx, cancelSession := chromedp.NewContext(allocCtx)
	defer cancelSession()

	if err := chromedp.Run(sessionCtx,
		chromedp.EmulateViewport(dynamicViewportWidth, dynamicViewportHeight),
		chromedp.Navigate(u),
	); err != nil {
		return nil, fmt.Errorf("%w: navigate: %w", ErrDynamicCollectionFailed, err)
	}

	return d.harvest(sessionCtx, chromedpPage{ctx: sessionCtx}, place)
}

// harvest drives the extract-scroll-settle loop until one of the configured
// bounds fires. Entries are deduplicated by page ID across iterations since
// each extraction re-reads everything rendered so far.
func (d *DynamicSocial) harvest(ctx context.Context, page socialPage, place location.Place) ([]RawRecord, error) {
	byID := make(map[string]*SocialRaw)
	order := make([]string, 0, d.scroll.MaxEntries)
	idleScrolls := 0

	for scrolls := 0; ; scrolls++ {
		entries, err := page.extract()
		if err != nil {
			return nil, err
		}

		grew := false
		for _, e := range entries {
			if _, seen := byID[e.ID]; seen {
				continue
			}
			byID[e.ID] = &SocialRaw{
				PageID:        e.ID,
				Title:         e.Title,
				DayTime:       e.When,
				Venue:         e.Venue,
				URL:           e.URL,
				SocialContext: e.Context,
			}
			order = append(order, e.ID)
			grew = true
		}

		if grew {
			idleScrolls = 0
		} else {
			idleScrolls++
		}

		d.log.Debug("scroll iteration", logger.Fields{
			"location": place.Name,
			"scrolls":  scrolls,
			"entries":  len(order),
			"idle":     idleScrolls,
		})

		if len(order) >= d.scroll.MaxEntries ||
			scrolls >= d.scroll.MaxScrolls ||
			idleScrolls >= d.scroll.MaxIdleScrolls {
			break
		}

		prevCount := page.count()
		if err := page.scroll(); err != nil {
			return nil, err
		}
		if err := d.waitForGrowth(ctx, page, prevCount); err != nil {
			return nil, err
		}
	}

	records := make([]RawRecord, 0, len(order))
	for _, id := range order {
		records = append(records, RawRecord{Source: event.SourceSocialFeed, Social: byID[id]})
	}
	if len(records) > d.scroll.MaxEntries {
		records = records[:d.scroll.MaxEntries]
	}
	return filterSocialByLocation(records, place.Name), nil
}

// waitForGrowth polls the rendered-entry count until it exceeds prevCount or
// the settle budget elapses. A lapsed budget is not an error: the next
// extraction simply finds nothing new and the idle-scroll streak ends the
// loop. Context expiry is an error so a wedged session cannot outlive its
// attempt budget.
func (d *DynamicSocial) waitForGrowth(ctx context.Context, page socialPage, prevCount int) error {
	deadline := time.Now().Add(d.scroll.Settle)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: settle wait: %w", ErrDynamicCollectionFailed, ctx.Err())
		case <-ticker.C:
			if page.count() > prevCount {
				return nil
			}
		}
	}
	return nil
}
