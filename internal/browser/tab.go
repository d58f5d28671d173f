package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/myspacecornelius/leadscout/internal/stealth"
)

// Tab is one exclusively-owned browser tab. The pagination driver calls its
// methods sequentially; Tab is not safe for concurrent use.
type Tab struct {
	ctx       context.Context
	behavior  *stealth.Behavior
	close     func()
	closeOnce sync.Once
}

// Close releases the tab and its render slot.
func (t *Tab) Close() {
	t.closeOnce.Do(t.close)
}

// HTML returns the current DOM snapshot.
func (t *Tab) HTML() (string, error) {
	var html string
	if err := chromedp.Run(t.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("tab html: %w", err)
	}
	return html, nil
}

// Navigate loads a new URL in the same tab.
func (t *Tab) Navigate(rawURL string) error {
	tasks := chromedp.Tasks{
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(t.ctx, tasks); err != nil {
		return fmt.Errorf("tab navigate %s: %w", rawURL, err)
	}
	return nil
}

// ClickIfVisible clicks the first visible element matching sel. A missing or
// invisible element returns false with no error, which pagination treats as
// "exhausted" rather than a failure.
func (t *Tab) ClickIfVisible(sel string) (bool, error) {
	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	const r = el.getBoundingClientRect();
	const s = getComputedStyle(el);
	if (r.width === 0 || r.height === 0 || s.visibility === 'hidden' || s.display === 'none') return false;
	el.scrollIntoView({block: 'center'});
	el.click();
	return true;
})()`, sel)
	var clicked bool
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return false, fmt.Errorf("tab click %s: %w", sel, err)
	}
	if clicked {
		chromedp.Run(t.ctx, chromedp.Sleep(t.behavior.MicroPause()))
	}
	return clicked, nil
}

// ClickByText clicks the first visible button or link whose label matches one
// of the given texts, case-insensitively. Used for "Load More" style reveals
// that carry no stable selector.
func (t *Tab) ClickByText(labels ...string) (bool, error) {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", strings.ToLower(l))
	}
	script := fmt.Sprintf(`(() => {
	const labels = [%s];
	for (const el of document.querySelectorAll('button, a, [role="button"]')) {
		const text = (el.innerText || '').trim().toLowerCase();
		if (!labels.some(l => text.includes(l))) continue;
		const r = el.getBoundingClientRect();
		const s = getComputedStyle(el);
		if (r.width === 0 || r.height === 0 || s.visibility === 'hidden' || s.display === 'none') continue;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	}
	return false;
})()`, strings.Join(quoted, ", "))
	var clicked bool
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return false, fmt.Errorf("tab click by text: %w", err)
	}
	if clicked {
		chromedp.Run(t.ctx, chromedp.Sleep(t.behavior.MicroPause()))
	}
	return clicked, nil
}

// Count returns how many elements match sel.
func (t *Tab) Count(sel string) (int, error) {
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, sel)
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("tab count %s: %w", sel, err)
	}
	return n, nil
}

// DocHeight returns document.body.scrollHeight, used for stale-round
// detection during infinite scroll.
func (t *Tab) DocHeight() (int, error) {
	var h int
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(`document.body.scrollHeight`, &h)); err != nil {
		return 0, fmt.Errorf("tab height: %w", err)
	}
	return h, nil
}

// HumanScroll performs one humanlike scroll increment.
func (t *Tab) HumanScroll() error {
	if err := chromedp.Run(t.ctx, t.behavior.HumanScroll()); err != nil {
		return fmt.Errorf("tab scroll: %w", err)
	}
	return nil
}

// ScrollToBottom jumps to the end of the page to trigger lazy loaders.
func (t *Tab) ScrollToBottom() error {
	if err := chromedp.Run(t.ctx, t.behavior.ScrollToBottom()); err != nil {
		return fmt.Errorf("tab scroll bottom: %w", err)
	}
	return nil
}

// WaitVisible waits for sel to appear, bounded by the tab's own timeout.
func (t *Tab) WaitVisible(sel string) error {
	if err := chromedp.Run(t.ctx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("tab wait %s: %w", sel, err)
	}
	return nil
}
