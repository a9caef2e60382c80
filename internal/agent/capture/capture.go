// internal/agent/capture/capture.go

// Package capture harvests rendered page content: scroll-through
// screenshot sequences and visible-text extraction, plus a paced
// multi-page visitor for post-login dashboard tours.
package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/browser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ScrollOptions tunes one scroll-and-capture pass.
type ScrollOptions struct {
	// Dir receives the screenshot files.
	Dir string
	// Name prefixes each screenshot file.
	Name string
	// ScrollCount is the number of scroll steps after the initial top
	// capture (default 5).
	ScrollCount int
	// ScrollWait is the render pause after each scroll (default 2.5s).
	ScrollWait time.Duration
}

func (o ScrollOptions) withDefaults() ScrollOptions {
	if o.ScrollCount <= 0 {
		o.ScrollCount = 5
	}
	if o.ScrollWait <= 0 {
		o.ScrollWait = 2500 * time.Millisecond
	}
	if o.Name == "" {
		o.Name = "page"
	}
	return o
}

// Capture is the harvest from one page.
type Capture struct {
	// Screenshots are file paths in capture order, top first.
	Screenshots []string
	// Text is the longest visible-text extraction observed while
	// scrolling. Lazy-rendered pages grow their text as content loads,
	// so the longest sample is the most complete one.
	Text string
}

// Capturer scrolls pages and records what they render.
type Capturer struct {
	logger *zap.Logger
}

// NewCapturer creates a capturer.
func NewCapturer(logger *zap.Logger) *Capturer {
	return &Capturer{logger: logger.Named("capture")}
}

// ScrollAndCapture screenshots the page at the top and after each of
// ScrollCount viewport-sized scroll steps, sampling visible text at every
// stop, then scrolls back to the top. Individual capture failures are
// logged and skipped.
func (c *Capturer) ScrollAndCapture(ctx context.Context, page browser.Page, opts ScrollOptions) Capture {
	opts = opts.withDefaults()
	var out Capture

	c.sample(ctx, page, opts, 0, &out)

	for i := 1; i <= opts.ScrollCount; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := page.Evaluate(ctx, `window.scrollBy(0, window.innerHeight * 0.8)`, nil); err != nil {
			c.logger.Debug("Scroll step failed.", zap.Int("step", i), zap.Error(err))
		}
		_ = page.Sleep(ctx, opts.ScrollWait)
		c.sample(ctx, page, opts, i, &out)
	}

	if err := page.Evaluate(ctx, `window.scrollTo(0, 0)`, nil); err != nil {
		c.logger.Debug("Scroll to top failed.", zap.Error(err))
	}

	c.logger.Info("Page captured.",
		zap.String("name", opts.Name),
		zap.Int("screenshots", len(out.Screenshots)),
		zap.Int("text_len", len(out.Text)))
	return out
}

// sample takes one screenshot and one text extraction at the current
// scroll position, keeping the longest text seen so far.
func (c *Capturer) sample(ctx context.Context, page browser.Page, opts ScrollOptions, step int, out *Capture) {
	path := filepath.Join(opts.Dir, fmt.Sprintf("%s-%02d.png", opts.Name, step))
	if err := page.Screenshot(ctx, path, false); err != nil {
		c.logger.Debug("Screenshot failed.", zap.Int("step", step), zap.Error(err))
	} else {
		out.Screenshots = append(out.Screenshots, path)
	}

	if text, err := VisibleText(ctx, page); err == nil && len(text) > len(out.Text) {
		out.Text = text
	}
}

// VisibleText returns the page's rendered body text.
func VisibleText(ctx context.Context, page browser.Page) (string, error) {
	var raw []byte
	script := `(() => document.body ? document.body.innerText : '')()`
	if err := page.Evaluate(ctx, script, &raw); err != nil {
		return "", fmt.Errorf("extracting page text: %w", err)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("decoding page text: %w", err)
	}
	return text, nil
}
