// cmd/login.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/observability"
)

// newLoginCmd creates and configures the `login` command.
func newLoginCmd() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login <portal-url>",
		Short: "Logs into a portal and reports whether the session was established",
		Long: `Navigates to the portal, dismisses popups, fills credentials from
PORTALAGENT_LOGIN_USERNAME / PORTALAGENT_LOGIN_PASSWORD, waits out 2FA
prompts, and exits zero once the page looks authenticated. With no
credentials set, run with --headed and complete the login manually.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			headed, _ := cmd.Flags().GetBool("headed")
			sess, err := newAgentSession(ctx, logger, headed)
			if err != nil {
				return err
			}
			defer sess.close()

			result, err := sess.flow.Run(ctx, sess.tab, args[0], sess.loginOptions())
			if err != nil {
				return err
			}
			if !result.Success {
				logger.Warn("Login not confirmed",
					zap.String("final_url", result.State.URL),
					zap.Int("iterations", result.Iterations))
				return fmt.Errorf("login to %s not confirmed within %s", args[0], sess.cfg.Login.Timeout)
			}

			logger.Info("Login confirmed",
				zap.String("url", result.State.URL),
				zap.Duration("elapsed", result.Elapsed),
				zap.Int("iterations", result.Iterations))
			return nil
		},
	}
	return loginCmd
}
