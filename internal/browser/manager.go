// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/finagg/portalagent/internal/config"
)

// Manager owns the headless browser process and hands out tabs. The number
// of concurrently open tabs is capped by browser.concurrency; each logical
// session (one login flow, one visit batch) runs strictly sequentially on
// its own tab.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	slots *semaphore.Weighted
}

// NewManager launches the browser process and verifies it is responsive.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		slots:  semaphore.NewWeighted(cfg.Concurrency),
	}

	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, m.buildAllocatorOptions()...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Confirm the browser starts and responds before handing out tabs.
	testCtx, cancelTest := context.WithTimeout(allocCtx, 30*time.Second)
	testCtx, cancelTestCtx := chromedp.NewContext(testCtx)
	defer cancelTestCtx()
	defer cancelTest()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// buildAllocatorOptions assembles launch flags. Automation giveaways are
// suppressed minimally: the enable-automation switch is turned off and the
// AutomationControlled blink feature disabled. Nothing beyond that.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Headless),
		chromedp.UserAgent(m.cfg.UserAgent),
	)

	// Custom arguments from config ("--foo=bar" or "--foo").
	for _, arg := range m.cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Containers on Linux need these to run Chrome at all.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// NewPage opens a fresh tab, blocking until a concurrency slot is free.
// The caller owns the tab and must Close it.
func (m *Manager) NewPage(ctx context.Context) (*Tab, error) {
	if err := m.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a free tab slot: %w", err)
	}

	tab := newTab(m.allocatorCtx, m.cfg, m.logger)
	tab.onClose = func() { m.slots.Release(1) }

	// Force the tab to actually open so failures surface here, not on the
	// first agent operation.
	if err := tab.run(ctx, chromedp.Navigate("about:blank")); err != nil {
		tab.Close()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	m.logger.Info("New tab opened.", zap.String("tab_id", tab.ID()[:8]))
	return tab, nil
}

// Shutdown terminates the browser process. Open tabs become unusable; their
// in-flight operations surface context errors that the agent treats as
// degraded state.
func (m *Manager) Shutdown() {
	if m.allocatorCancel == nil {
		return
	}
	m.logger.Info("Shutting down browser process...")
	m.allocatorCancel()
	<-m.allocatorCtx.Done()
	m.logger.Info("Browser manager shutdown complete.")
}
