// internal/agent/popup/engine.go
package popup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/agent/probe"
	"github.com/finagg/portalagent/internal/agent/state"
	"github.com/finagg/portalagent/internal/browser"
)

// DismissResult reports the single action one DismissOne call performed.
type DismissResult struct {
	// Clicked is true when any action (click or removal) was taken.
	Clicked bool
	// Strategy tags which rule fired.
	Strategy string
	// Text is the label of the clicked element, when there was one.
	Text string
}

// Options tunes the bounded clearing loops.
type Options struct {
	// MaxAttempts caps ClearAll iterations (default 6).
	MaxAttempts int
	// DismissWait is the settle delay after a dismissal, letting animations
	// finish and follow-up popups appear (default 3s).
	DismissWait time.Duration
	// Timeout bounds WaitUntilClear (default 30s).
	Timeout time.Duration
	// CheckInterval paces WaitUntilClear polls (default 2s).
	CheckInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 6
	}
	if o.DismissWait <= 0 {
		o.DismissWait = 3 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = 2 * time.Second
	}
	return o
}

// Engine attempts popup dismissals. It is stateless: every call probes the
// page fresh, so repetition across DOM mutations is the caller's loop.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a dismissal engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger.Named("popup")}
}

// DismissOne performs at most one dismissal action. No popup found (or a
// degraded probe) yields {Clicked: false}; it never returns an error.
func (e *Engine) DismissOne(ctx context.Context, page browser.Page) DismissResult {
	snap, err := probe.Take(ctx, page)
	if err != nil {
		e.logger.Debug("Dismissal probe degraded.", zap.Error(err))
		return DismissResult{}
	}
	return e.execute(ctx, page, Decide(snap))
}

func (e *Engine) execute(ctx context.Context, page browser.Page, action Action) DismissResult {
	switch action.Kind {
	case ActionClick:
		if err := page.Click(ctx, probe.Selector(action.Ref), 1); err != nil {
			e.logger.Debug("Dismissal click failed.",
				zap.String("strategy", action.Strategy), zap.Error(err))
			return DismissResult{}
		}
		e.logger.Info("Dismissed popup element.",
			zap.String("strategy", action.Strategy), zap.String("text", action.Text))
		return DismissResult{Clicked: true, Strategy: action.Strategy, Text: action.Text}

	case ActionRemove:
		if err := probe.RemoveRef(ctx, page, action.Ref); err != nil {
			e.logger.Debug("Overlay removal failed.",
				zap.String("strategy", action.Strategy), zap.Error(err))
			return DismissResult{}
		}
		e.logger.Info("Removed overlay element.", zap.String("strategy", action.Strategy))
		return DismissResult{Clicked: true, Strategy: action.Strategy}

	default:
		return DismissResult{}
	}
}

// ClearAll loops dismissals until the page reads popup-free or the attempt
// budget runs out. When a popup is detected but no strategy can act on it,
// qualifying overlays are force-removed once and the loop stops, preventing
// an infinite spin on an undetectable-but-present layer. Returns the number
// of actions performed.
func (e *Engine) ClearAll(ctx context.Context, page browser.Page, opts Options) int {
	opts = opts.withDefaults()
	actions := 0

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return actions
		}

		snap, err := probe.Take(ctx, page)
		if err != nil {
			e.logger.Debug("Clearing probe degraded; stopping.", zap.Error(err))
			return actions
		}
		if !state.HasPopup(snap) {
			return actions
		}

		action := Decide(snap)
		if action.Kind == ActionNone {
			// Present but unactionable: force-remove once and stop.
			refs := ForcedRemovals(snap)
			for _, ref := range refs {
				if err := probe.RemoveRef(ctx, page, ref); err == nil {
					actions++
				}
			}
			e.logger.Info("Force-removed unactionable overlays.", zap.Int("count", len(refs)))
			return actions
		}

		if res := e.execute(ctx, page, action); res.Clicked {
			actions++
			_ = page.Sleep(ctx, opts.DismissWait)
		}
	}

	return actions
}

// WaitUntilClear polls until the page reads popup-free or the deadline
// expires, clearing between checks. Purely a wait condition: returns
// success as a boolean and never an error.
func (e *Engine) WaitUntilClear(ctx context.Context, page browser.Page, opts Options) bool {
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.Timeout)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}

		snap, err := probe.Take(ctx, page)
		if err == nil && !state.HasPopup(snap) {
			return true
		}

		e.ClearAll(ctx, page, opts)

		if err := page.Sleep(ctx, opts.CheckInterval); err != nil {
			return false
		}
	}

	snap, err := probe.Take(ctx, page)
	return err == nil && !state.HasPopup(snap)
}
