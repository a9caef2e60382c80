// internal/agent/login/flow_test.go
package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/agent/agenttest"
	"github.com/finagg/portalagent/internal/agent/forms"
	"github.com/finagg/portalagent/internal/agent/popup"
	"github.com/finagg/portalagent/internal/agent/probe"
	"github.com/finagg/portalagent/internal/agent/state"
	"github.com/finagg/portalagent/internal/browser"
)

func newTestFlow() *Flow {
	logger := zap.NewNop()
	return NewFlow(logger,
		state.NewEvaluator(logger, ""),
		popup.NewEngine(logger),
		forms.NewFiller(logger),
	)
}

func loginSnapshot() probe.Snapshot {
	return probe.Snapshot{
		URL: "https://portal.example.com/login",
		Inputs: []probe.InputFact{
			{Ref: "pa-1", Type: "email", Visible: true},
			{Ref: "pa-2", Type: "password", Visible: true},
		},
		Buttons: []probe.ButtonFact{
			{Ref: "pa-3", Text: "Sign In", Visible: true},
		},
	}
}

func dashboardSnapshot() probe.Snapshot {
	return probe.Snapshot{
		URL:      "https://portal.example.com/dashboard",
		BodyText: "Net worth $1,234,567 as of today",
	}
}

func TestRunSucceedsOnRenderedDollars(t *testing.T) {
	page := &agenttest.Page{Snapshots: []probe.Snapshot{dashboardSnapshot()}}

	result, err := newTestFlow().Run(context.Background(), page, "https://portal.example.com/login", FlowOptions{})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Iterations)
	assert.True(t, result.State.HasDollarAmounts)
	assert.Equal(t, []string{"https://portal.example.com/login"}, page.Navigations)
}

func TestRunNavigationErrorIsFatal(t *testing.T) {
	page := &agenttest.Page{
		NavigateErrs: map[string]error{
			"https://portal.example.com/login": errors.New("dns failure"),
		},
	}

	_, err := newTestFlow().Run(context.Background(), page, "https://portal.example.com/login", FlowOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dns failure")
}

func TestRunTypesCredentialsThenSucceeds(t *testing.T) {
	// Login form first, then the authenticated dashboard.
	page := &agenttest.Page{
		Snapshots: []probe.Snapshot{loginSnapshot(), dashboardSnapshot()},
		Visible: map[string]bool{
			`input[type="email"]`:    true,
			`input[type="password"]`: true,
		},
	}

	result, err := newTestFlow().Run(context.Background(), page, "https://portal.example.com/login", FlowOptions{
		Credentials: Credentials{Username: "analyst@example.com", Password: "s3cret"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Equal(t, "analyst@example.com", page.Fills[`input[type="email"]`])
	assert.Equal(t, "s3cret", page.Fills[`input[type="password"]`])
}

func TestRunTypesCredentialsOnce(t *testing.T) {
	// The page never leaves the login form; credentials must still be
	// typed exactly once.
	page := &agenttest.Page{
		Snapshots: []probe.Snapshot{loginSnapshot()},
		Visible: map[string]bool{
			`input[type="email"]`:    true,
			`input[type="password"]`: true,
		},
	}

	result, err := newTestFlow().Run(context.Background(), page, "https://portal.example.com/login", FlowOptions{
		Timeout:     50 * time.Millisecond,
		Credentials: Credentials{Username: "u@example.com", Password: "p"},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)

	emailClicks := 0
	for _, sel := range page.Clicks {
		if sel == `input[type="email"]` {
			emailClicks++
		}
	}
	assert.Equal(t, 1, emailClicks, "email field must be focused and filled exactly once")
}

func TestRunPredicateShortCircuits(t *testing.T) {
	// The portal-specific predicate outranks every heuristic: even a page
	// that still looks like a login form succeeds immediately.
	page := &agenttest.Page{Snapshots: []probe.Snapshot{loginSnapshot()}}

	result, err := newTestFlow().Run(context.Background(), page, "https://portal.example.com/login", FlowOptions{
		IsLoggedIn: func(ctx context.Context, p browser.Page) bool { return true },
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, page.Fills)
}

func TestRunDeadlineTerminates(t *testing.T) {
	// A login page with no credentials loops on manual handover; the
	// deadline must end the flow promptly.
	page := &agenttest.Page{Snapshots: []probe.Snapshot{loginSnapshot()}}

	start := time.Now()
	result, err := newTestFlow().Run(context.Background(), page, "https://portal.example.com/login", FlowOptions{
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Greater(t, result.Iterations, 0)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Greater(t, page.FrontCalls, 0, "manual handover raises the window")
}

func TestRunContextCancellation(t *testing.T) {
	page := &agenttest.Page{Snapshots: []probe.Snapshot{loginSnapshot()}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFlow().Run(ctx, page, "https://portal.example.com/login", FlowOptions{})
	assert.Error(t, err)
}
