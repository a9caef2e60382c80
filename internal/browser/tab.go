// internal/browser/tab.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/config"
)

var _ Page = (*Tab)(nil)

// Tab is the chromedp-backed Page implementation. It owns a single browser
// tab context derived from the manager's allocator.
type Tab struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	onClose func()
}

func newTab(allocCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Tab {
	id := uuid.New().String()
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	return &Tab{
		id:     id,
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.With(zap.String("tab_id", id[:8])),
		cfg:    cfg,
	}
}

// ID returns the unique identifier for this tab.
func (t *Tab) ID() string {
	return t.id
}

// Close terminates the tab and releases its manager slot.
func (t *Tab) Close() {
	t.cancel()
	if t.onClose != nil {
		t.onClose()
		t.onClose = nil
	}
}

// run executes chromedp actions against the tab, honoring the caller's ctx.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (t *Tab) URL(ctx context.Context) (string, error) {
	var url string
	if err := t.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

func (t *Tab) Navigate(ctx context.Context, url string) error {
	t.logger.Debug("Navigating", zap.String("url", url))

	navCtx, cancel := context.WithTimeout(ctx, t.cfg.NavigationTimeout)
	defer cancel()

	err := t.run(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if t.cfg.DisableCache {
				return network.SetCacheDisabled(true).Do(ctx)
			}
			return nil
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(t.cfg.PostLoadWait),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (t *Tab) Evaluate(ctx context.Context, script string, out any) error {
	return t.run(ctx, chromedp.Evaluate(script, out))
}

func (t *Tab) Screenshot(ctx context.Context, path string, fullPage bool) error {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := t.run(ctx, action); err != nil {
		return fmt.Errorf("screenshot capture failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}

func (t *Tab) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := t.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		// Expected miss; it drives strategy fallback in callers.
		return false
	}
	return true
}

func (t *Tab) Click(ctx context.Context, selector string, clickCount int) error {
	if clickCount < 1 {
		clickCount = 1
	}
	for i := 0; i < clickCount; i++ {
		if err := t.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
			return fmt.Errorf("click on %q failed: %w", selector, err)
		}
	}
	return nil
}

func (t *Tab) Fill(ctx context.Context, selector, value string) error {
	err := t.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill on %q failed: %w", selector, err)
	}
	return nil
}

func (t *Tab) Sleep(ctx context.Context, d time.Duration) error {
	sleepCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	select {
	case <-time.After(d):
		return nil
	case <-sleepCtx.Done():
		return sleepCtx.Err()
	}
}

func (t *Tab) BringToFront(ctx context.Context) error {
	return t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.BringToFront().Do(ctx)
	}))
}
