// internal/agent/capture/visitor.go

package capture

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/finagg/portalagent/internal/agent/popup"
	"github.com/finagg/portalagent/internal/browser"
)

// readyTextLen is the rendered-text length past which a page is considered
// data-bearing even without dollar figures.
const readyTextLen = 500

var dollarRe = regexp.MustCompile(`\$[\d,]{3,}`)

// Target is one page to visit after login.
type Target struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ScrapeFn extracts structured data from a ready page. Optional; errors
// are recorded per visit and never stop the tour.
type ScrapeFn func(ctx context.Context, page browser.Page, target Target) (any, error)

// VisitOptions tunes a multi-page tour.
type VisitOptions struct {
	// Dir receives the per-page screenshot files.
	Dir string
	// Scroll tunes the per-page capture pass; Name is overridden per target.
	Scroll ScrollOptions
	// WaitForData bounds the per-page readiness poll (default 45s).
	WaitForData time.Duration
	// CheckInterval is the readiness poll period (default 2s).
	CheckInterval time.Duration
	// SettleWait runs after readiness, before capture (default 3s).
	SettleWait time.Duration
	// Popup tunes the pre-capture popup sweep.
	Popup popup.Options
	// Scrape extracts structured data per page. Optional.
	Scrape ScrapeFn
	// Limiter paces navigations across targets. Optional.
	Limiter *rate.Limiter
}

func (o VisitOptions) withDefaults() VisitOptions {
	if o.WaitForData <= 0 {
		o.WaitForData = 45 * time.Second
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = 2 * time.Second
	}
	if o.SettleWait <= 0 {
		o.SettleWait = 3 * time.Second
	}
	return o
}

// VisitResult records one target's harvest. Err is set when navigation or
// scraping failed; captures taken before the failure are still kept.
type VisitResult struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	VisitedAt   time.Time `json:"visitedAt"`
	Ready       bool      `json:"ready"`
	Text        string    `json:"text,omitempty"`
	Screenshots []string  `json:"screenshots,omitempty"`
	ScrapeData  any       `json:"scrapeData,omitempty"`
	Err         string    `json:"error,omitempty"`
}

// Visitor tours a list of pages on an authenticated tab.
type Visitor struct {
	logger   *zap.Logger
	capturer *Capturer
	engine   *popup.Engine
}

// NewVisitor wires a visitor from its collaborators.
func NewVisitor(logger *zap.Logger, capturer *Capturer, engine *popup.Engine) *Visitor {
	return &Visitor{logger: logger.Named("visitor"), capturer: capturer, engine: engine}
}

// VisitPages visits every target in order, capturing each one. A failing
// target is recorded and the tour continues; only context cancellation
// stops it early.
func (v *Visitor) VisitPages(ctx context.Context, page browser.Page, targets []Target, opts VisitOptions) []VisitResult {
	opts = opts.withDefaults()
	results := make([]VisitResult, 0, len(targets))

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				break
			}
		}
		results = append(results, v.visitOne(ctx, page, target, opts))
	}
	return results
}

func (v *Visitor) visitOne(ctx context.Context, page browser.Page, target Target, opts VisitOptions) VisitResult {
	res := VisitResult{Name: target.Name, URL: target.URL, VisitedAt: time.Now().UTC()}
	log := v.logger.With(zap.String("name", target.Name), zap.String("url", target.URL))

	if err := page.Navigate(ctx, target.URL); err != nil {
		log.Warn("Navigation failed, skipping target.", zap.Error(err))
		res.Err = err.Error()
		return res
	}

	res.Ready = v.waitForData(ctx, page, opts)
	if !res.Ready {
		log.Warn("Page never looked data-bearing, capturing anyway.")
	}
	_ = page.Sleep(ctx, opts.SettleWait)

	if cleared := v.engine.ClearAll(ctx, page, opts.Popup); cleared > 0 {
		log.Info("Cleared popups before capture.", zap.Int("actions", cleared))
	}

	scroll := opts.Scroll
	scroll.Dir = opts.Dir
	scroll.Name = target.Name
	harvested := v.capturer.ScrollAndCapture(ctx, page, scroll)
	res.Text = harvested.Text
	res.Screenshots = harvested.Screenshots

	if opts.Scrape != nil {
		data, err := opts.Scrape(ctx, page, target)
		if err != nil {
			log.Warn("Scrape failed.", zap.Error(err))
			res.Err = err.Error()
		} else {
			res.ScrapeData = data
		}
	}
	return res
}

// waitForData polls until the page renders enough text or any dollar
// figure, whichever comes first.
func (v *Visitor) waitForData(ctx context.Context, page browser.Page, opts VisitOptions) bool {
	deadline := time.Now().Add(opts.WaitForData)
	for {
		if text, err := VisibleText(ctx, page); err == nil {
			if len(text) > readyTextLen || dollarRe.MatchString(text) {
				return true
			}
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}
		_ = page.Sleep(ctx, opts.CheckInterval)
	}
}
