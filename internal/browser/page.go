// internal/browser/page.go
package browser

import (
	"context"
	"time"
)

// Page is the minimal capability contract the agent needs from a live
// browser tab. Any automation driver that can evaluate scripts, navigate,
// screenshot and simulate input is substitutable; the shipped
// implementation is Tab, backed by chromedp.
type Page interface {
	// URL returns the current page URL.
	URL(ctx context.Context) (string, error)

	// Navigate loads a URL and waits for the document body to be ready.
	// Navigation failures propagate: navigation is a precondition, not a
	// recoverable step.
	Navigate(ctx context.Context, url string) error

	// Evaluate runs a script against the DOM and decodes the serialized
	// result into out. Pass a *[]byte to receive the raw JSON payload, or
	// nil to discard the result.
	Evaluate(ctx context.Context, script string, out any) error

	// Screenshot writes a PNG of the page to path.
	Screenshot(ctx context.Context, path string, fullPage bool) error

	// WaitVisible waits up to timeout for a selector to exist and be
	// visible. A miss is an expected outcome, not an error: it gates
	// strategy fallback in the callers.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool

	// Click clicks the first visible match. clickCount > 1 issues repeated
	// clicks (triple click selects existing input content).
	Click(ctx context.Context, selector string, clickCount int) error

	// Fill overwrites the value of the first visible matching input.
	Fill(ctx context.Context, selector, value string) error

	// Sleep pauses for d, respecting both the page lifecycle and ctx.
	Sleep(ctx context.Context, d time.Duration) error

	// BringToFront focuses the tab (human-in-the-loop steps).
	BringToFront(ctx context.Context) error
}

// CombineContext derives a context that is canceled when either parent is.
// Page operations must respect both the tab lifecycle and the caller's
// deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
