// internal/agent/login/fsm.go

// Package login drives a page through an interactive login flow until the
// session looks authenticated. The decision logic is a pure function over
// an Observation so every branch is testable without a browser; the Flow
// driver executes the chosen steps against a live page.
package login

import "time"

// Credentials for the portal. Empty credentials are valid: the flow then
// waits for a human to complete the login in a headed browser.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether no credentials were provided.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// Session tracks what the flow has already done, so credentials are typed
// at most once per run even when the page re-renders the same form.
type Session struct {
	EmailEntered    bool
	PasswordEntered bool
}

// Observation is one evaluated view of the page plus the caller's own
// logged-in predicate. Decide consumes nothing else.
type Observation struct {
	LoggedIn         bool
	HasCredentials   bool
	IsLogin          bool
	IsDashboard      bool
	Is2FA            bool
	HasPopup         bool
	HasEmailField    bool
	HasPasswordField bool
	HasDollarAmounts bool
	FilledInputCount int
}

// StepKind identifies the action the driver must take next.
type StepKind int

const (
	// StepSucceed ends the flow as authenticated.
	StepSucceed StepKind = iota
	// StepWait sleeps without touching the page.
	StepWait
	// StepClearPopups runs popup dismissal, then sleeps.
	StepClearPopups
	// StepBringToFront raises the window for a human, then sleeps.
	StepBringToFront
	// StepFillEmail types the username (and password when the form shows
	// both), submits, then sleeps.
	StepFillEmail
	// StepFillPassword types the password, submits, then sleeps.
	StepFillPassword
	// StepSubmit clicks submit on an already-populated form, then sleeps.
	StepSubmit
)

// Step is one decision: what to do and how long to settle afterwards.
type Step struct {
	Kind   StepKind
	Wait   time.Duration
	Reason string
}

// Waits holds the settle durations between iterations.
type Waits struct {
	Settle    time.Duration
	Popup     time.Duration
	TwoFactor time.Duration
	Manual    time.Duration
}

// DefaultWaits matches the tuned production intervals.
func DefaultWaits() Waits {
	return Waits{
		Settle:    5 * time.Second,
		Popup:     2 * time.Second,
		TwoFactor: 10 * time.Second,
		Manual:    10 * time.Second,
	}
}

// Decide picks the next step for one loop iteration. Branches are ordered
// by priority; the first match wins. Popups are always cleared before any
// form interaction, otherwise an overlay can swallow the keystrokes.
func Decide(obs Observation, sess Session, w Waits) Step {
	switch {
	case obs.LoggedIn:
		return Step{Kind: StepSucceed, Reason: "logged-in predicate"}

	case obs.HasDollarAmounts && (obs.IsDashboard || !obs.IsLogin):
		return Step{Kind: StepSucceed, Reason: "dollar amounts rendered"}

	case obs.IsDashboard:
		return Step{Kind: StepWait, Wait: w.Settle, Reason: "dashboard still loading data"}

	case obs.HasPopup:
		return Step{Kind: StepClearPopups, Wait: w.Popup, Reason: "popup blocking page"}

	case obs.Is2FA:
		return Step{Kind: StepBringToFront, Wait: w.TwoFactor, Reason: "waiting for verification code"}

	case obs.HasEmailField && obs.HasCredentials && !sess.EmailEntered:
		return Step{Kind: StepFillEmail, Wait: w.Settle, Reason: "email field present"}

	case obs.HasPasswordField && obs.HasCredentials && !sess.PasswordEntered:
		return Step{Kind: StepFillPassword, Wait: w.Settle, Reason: "password field present"}

	case obs.IsLogin && obs.FilledInputCount > 0:
		return Step{Kind: StepSubmit, Wait: w.Settle, Reason: "form already populated"}

	case obs.IsLogin && !obs.HasCredentials:
		return Step{Kind: StepBringToFront, Wait: w.Manual, Reason: "manual login required"}

	default:
		return Step{Kind: StepClearPopups, Wait: w.Settle, Reason: "page state unclear"}
	}
}
