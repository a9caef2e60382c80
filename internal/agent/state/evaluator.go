// internal/agent/state/evaluator.go
package state

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/agent/probe"
	"github.com/finagg/portalagent/internal/browser"
)

// Evaluator inspects a live page and produces PageState snapshots. When a
// screenshots directory is set, each evaluation also writes a labelled
// screenshot alongside.
type Evaluator struct {
	logger         *zap.Logger
	screenshotsDir string
}

// NewEvaluator creates an evaluator. screenshotsDir may be empty to disable
// the screenshot side effect.
func NewEvaluator(logger *zap.Logger, screenshotsDir string) *Evaluator {
	return &Evaluator{
		logger:         logger.Named("state"),
		screenshotsDir: screenshotsDir,
	}
}

// Evaluate probes the page and classifies it. It never returns an error:
// any internal failure degrades to a PageState with Degraded set and the
// best-effort URL, so callers always have something to drive on.
func (e *Evaluator) Evaluate(ctx context.Context, page browser.Page, label string) PageState {
	snap, err := probe.Take(ctx, page)
	if err != nil {
		e.logger.Debug("Page evaluation degraded.", zap.String("label", label), zap.Error(err))
		url, _ := page.URL(ctx)
		return PageState{URL: url, Degraded: true}
	}

	st := FromSnapshot(snap)

	if e.screenshotsDir != "" && label != "" {
		path := filepath.Join(e.screenshotsDir,
			fmt.Sprintf("%s-%d.png", label, time.Now().UnixMilli()))
		if err := page.Screenshot(ctx, path, false); err != nil {
			e.logger.Debug("Evaluation screenshot failed.", zap.String("path", path), zap.Error(err))
		}
	}

	e.logger.Debug("Page evaluated.",
		zap.String("label", label),
		zap.String("url", st.URL),
		zap.Bool("login", st.IsLogin),
		zap.Bool("dashboard", st.IsDashboard),
		zap.Bool("2fa", st.Is2FA),
		zap.Bool("popup", st.HasPopup),
		zap.Bool("dollars", st.HasDollarAmounts),
	)
	return st
}
