// cmd/harvest.go
package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/finagg/portalagent/internal/agent/capture"
	"github.com/finagg/portalagent/internal/observability"
	"github.com/finagg/portalagent/internal/results"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newHarvestCmd creates and configures the `harvest` command.
func newHarvestCmd() *cobra.Command {
	var targetsFile string

	harvestCmd := &cobra.Command{
		Use:   "harvest <portal-url> [page-urls...]",
		Short: "Logs into a portal, then captures a list of pages",
		Long: `Runs the full pipeline: log in, then visit each target page in
order, waiting for rendered data, sweeping popups, scrolling through the
page with screenshots and text extraction. Targets come from positional
URLs or from a JSON file of {"name","url"} objects via --targets. The
manifest is written to <output.dir>/<run-id>/visits.json.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			targets, err := loadTargets(targetsFile, args[1:])
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return fmt.Errorf("no target pages given: pass page URLs or --targets")
			}

			headed, _ := cmd.Flags().GetBool("headed")
			sess, err := newAgentSession(ctx, logger, headed)
			if err != nil {
				return err
			}
			defer sess.close()

			manifest := results.Manifest{
				RunID:     sess.runID,
				PortalURL: args[0],
				StartedAt: time.Now().UTC(),
			}

			loginResult, err := sess.flow.Run(ctx, sess.tab, args[0], sess.loginOptions())
			if err != nil {
				return err
			}
			manifest.LoginSuccess = loginResult.Success

			if loginResult.Success {
				capturer := capture.NewCapturer(logger)
				visitor := capture.NewVisitor(logger, capturer, sess.engine)
				manifest.Visits = visitor.VisitPages(ctx, sess.tab, targets, capture.VisitOptions{
					Dir: sess.runDir,
					Scroll: capture.ScrollOptions{
						ScrollCount: sess.cfg.Capture.ScrollCount,
						ScrollWait:  sess.cfg.Capture.ScrollWait,
					},
					WaitForData: sess.cfg.Capture.WaitForData,
					SettleWait:  sess.cfg.Capture.SettleWait,
					Popup:       sess.popupOptions(),
					Limiter:     navigationLimiter(sess.cfg.Capture.NavigationsPerMinute),
				})
			}

			manifest.FinishedAt = time.Now().UTC()
			path, err := results.WriteManifest(sess.runDir, sess.cfg.Output.ResultsFile, manifest)
			if err != nil {
				return err
			}
			logger.Info("Manifest written", zap.String("path", path), zap.Int("visits", len(manifest.Visits)))

			if !loginResult.Success {
				return fmt.Errorf("login to %s not confirmed within %s, no pages visited", args[0], sess.cfg.Login.Timeout)
			}
			return nil
		},
	}

	harvestCmd.Flags().StringVarP(&targetsFile, "targets", "t", "", "JSON file with target pages [{\"name\":...,\"url\":...}]")
	return harvestCmd
}

// navigationLimiter converts a per-minute budget into a limiter. Zero
// means unpaced.
func navigationLimiter(perMinute float64) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perMinute/60.0), 1)
}

// loadTargets merges the targets file with positional page URLs. Positional
// URLs get names derived from their path.
func loadTargets(file string, urls []string) ([]capture.Target, error) {
	var targets []capture.Target

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading targets file: %w", err)
		}
		if err := json.Unmarshal(data, &targets); err != nil {
			return nil, fmt.Errorf("parsing targets file %s: %w", file, err)
		}
	}

	for _, raw := range urls {
		targets = append(targets, capture.Target{Name: targetName(raw), URL: raw})
	}

	for i, t := range targets {
		if t.URL == "" {
			return nil, fmt.Errorf("target %d has no url", i)
		}
		if t.Name == "" {
			targets[i].Name = targetName(t.URL)
		}
	}
	return targets, nil
}

// targetName derives a filesystem-safe name from a URL path, falling back
// to the host.
func targetName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "page"
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		name = u.Hostname()
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '.':
			return r
		default:
			return '-'
		}
	}, name)
	if name == "" {
		name = "page"
	}
	return name
}
