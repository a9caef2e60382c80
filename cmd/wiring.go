// cmd/wiring.go
package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/agent/forms"
	"github.com/finagg/portalagent/internal/agent/login"
	"github.com/finagg/portalagent/internal/agent/popup"
	"github.com/finagg/portalagent/internal/agent/state"
	"github.com/finagg/portalagent/internal/browser"
	"github.com/finagg/portalagent/internal/config"
	"github.com/finagg/portalagent/internal/results"
)

// agentSession bundles everything a command needs to drive one portal:
// a live tab, the installed collaborators, and the run-scoped output dir.
type agentSession struct {
	cfg     *config.Config
	manager *browser.Manager
	tab     *browser.Tab
	flow    *login.Flow
	engine  *popup.Engine
	runDir  string
	runID   string
}

// newAgentSession loads the final config, launches the browser and opens
// one tab. The caller must call close().
func newAgentSession(ctx context.Context, logger *zap.Logger, headed bool) (*agentSession, error) {
	cfg, err := config.NewFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if headed {
		cfg.Browser.Headless = false
	}

	runDir, runID, err := results.NewRunDir(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	logger.Info("Run artifacts directory created", zap.String("dir", runDir), zap.String("run_id", runID))

	manager, err := browser.NewManager(ctx, cfg.Browser, logger)
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	tab, err := manager.NewPage(ctx)
	if err != nil {
		manager.Shutdown()
		return nil, fmt.Errorf("opening tab: %w", err)
	}

	evaluator := state.NewEvaluator(logger, filepath.Join(runDir, "screenshots"))
	engine := popup.NewEngine(logger)
	filler := forms.NewFiller(logger)

	return &agentSession{
		cfg:     cfg,
		manager: manager,
		tab:     tab,
		flow:    login.NewFlow(logger, evaluator, engine, filler),
		engine:  engine,
		runDir:  runDir,
		runID:   runID,
	}, nil
}

func (s *agentSession) close() {
	s.tab.Close()
	s.manager.Shutdown()
}

// loginOptions maps the resolved config onto the flow's option struct.
func (s *agentSession) loginOptions() login.FlowOptions {
	return login.FlowOptions{
		Credentials: login.Credentials{
			Username: s.cfg.Login.Username,
			Password: s.cfg.Login.Password,
		},
		Timeout: s.cfg.Login.Timeout,
		Waits: login.Waits{
			Settle:    s.cfg.Login.SettleWait,
			Popup:     s.cfg.Login.PopupWait,
			TwoFactor: s.cfg.Login.TwoFactorWait,
			Manual:    s.cfg.Login.ManualWait,
		},
		FillDelay: s.cfg.Login.FillDelay,
		Popup:     s.popupOptions(),
	}
}

func (s *agentSession) popupOptions() popup.Options {
	return popup.Options{
		MaxAttempts:   s.cfg.Popup.MaxAttempts,
		DismissWait:   s.cfg.Popup.DismissWait,
		Timeout:       s.cfg.Popup.ClearTimeout,
		CheckInterval: s.cfg.Popup.CheckInterval,
	}
}
