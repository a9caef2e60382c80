// internal/agent/login/flow.go

package login

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/agent/forms"
	"github.com/finagg/portalagent/internal/agent/popup"
	"github.com/finagg/portalagent/internal/agent/state"
	"github.com/finagg/portalagent/internal/browser"
)

// Predicate is an optional portal-specific logged-in check, evaluated once
// per iteration before the generic heuristics.
type Predicate func(ctx context.Context, page browser.Page) bool

// FlowOptions configures one login run.
type FlowOptions struct {
	Credentials Credentials
	// IsLoggedIn short-circuits the flow when it returns true. Optional.
	IsLoggedIn Predicate
	// Timeout bounds the whole flow (default 10m).
	Timeout time.Duration
	Waits   Waits
	// FillDelay is the settle pause around each field overwrite.
	FillDelay time.Duration
	Popup     popup.Options
}

func (o FlowOptions) withDefaults() FlowOptions {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Minute
	}
	if o.Waits == (Waits{}) {
		o.Waits = DefaultWaits()
	}
	return o
}

// Result is the final outcome of a flow.
type Result struct {
	Success    bool
	State      state.PageState
	Iterations int
	Elapsed    time.Duration
}

// Flow executes login decisions against a live page.
type Flow struct {
	logger    *zap.Logger
	evaluator *state.Evaluator
	engine    *popup.Engine
	filler    *forms.Filler
}

// NewFlow wires a flow from its collaborators.
func NewFlow(logger *zap.Logger, evaluator *state.Evaluator, engine *popup.Engine, filler *forms.Filler) *Flow {
	return &Flow{
		logger:    logger.Named("login"),
		evaluator: evaluator,
		engine:    engine,
		filler:    filler,
	}
}

// Run navigates to url and iterates evaluate/decide/act until the page
// looks authenticated or the deadline passes. Navigation failure is the
// only hard error; everything after that degrades into retries.
func (f *Flow) Run(ctx context.Context, page browser.Page, url string, opts FlowOptions) (Result, error) {
	opts = opts.withDefaults()

	if err := page.Navigate(ctx, url); err != nil {
		return Result{}, fmt.Errorf("navigating to login page %s: %w", url, err)
	}

	started := time.Now()
	deadline := started.Add(opts.Timeout)
	var sess Session
	var iterations int

	for {
		if ctx.Err() != nil {
			return Result{State: f.evaluator.Evaluate(ctx, page, "login-final"), Iterations: iterations, Elapsed: time.Since(started)}, ctx.Err()
		}
		if time.Now().After(deadline) {
			f.logger.Warn("Login flow deadline exceeded.", zap.Int("iterations", iterations))
			return Result{State: f.evaluator.Evaluate(ctx, page, "login-final"), Iterations: iterations, Elapsed: time.Since(started)}, nil
		}

		ps := f.evaluator.Evaluate(ctx, page, fmt.Sprintf("login-%02d", iterations))
		obs := observe(ctx, page, ps, opts)
		step := Decide(obs, sess, opts.Waits)
		iterations++

		f.logger.Info("Login step.",
			zap.Int("iteration", iterations),
			zap.String("reason", step.Reason),
			zap.String("url", ps.URL))

		if step.Kind == StepSucceed {
			return Result{Success: true, State: ps, Iterations: iterations, Elapsed: time.Since(started)}, nil
		}

		sess = f.act(ctx, page, step, obs, sess, opts)
		f.settle(ctx, page, step.Wait, deadline)
	}
}

// act performs the step's side effects and returns the updated session.
func (f *Flow) act(ctx context.Context, page browser.Page, step Step, obs Observation, sess Session, opts FlowOptions) Session {
	switch step.Kind {
	case StepClearPopups:
		f.engine.ClearAll(ctx, page, opts.Popup)

	case StepBringToFront:
		if err := page.BringToFront(ctx); err != nil {
			f.logger.Debug("Bring to front failed.", zap.Error(err))
		}

	case StepFillEmail:
		fields := []forms.FieldSpec{{
			Type: "email", Name: "email", Label: "email",
			Value: opts.Credentials.Username,
		}}
		// Single-screen forms show both fields at once; type the password
		// in the same pass so one submit covers both.
		if obs.HasPasswordField {
			fields = append(fields, forms.FieldSpec{
				Type: "password", Name: "password", Label: "password",
				Value: opts.Credentials.Password,
			})
		}
		results := f.filler.Fill(ctx, page, fields, forms.Options{Delay: opts.FillDelay})
		if results[0].Filled {
			sess.EmailEntered = true
		}
		if len(results) > 1 && results[1].Filled {
			sess.PasswordEntered = true
		}
		f.filler.ClickSubmit(ctx, page, forms.SubmitOptions{})

	case StepFillPassword:
		results := f.filler.Fill(ctx, page, []forms.FieldSpec{{
			Type: "password", Name: "password", Label: "password",
			Value: opts.Credentials.Password,
		}}, forms.Options{Delay: opts.FillDelay})
		if results[0].Filled {
			sess.PasswordEntered = true
		}
		f.filler.ClickSubmit(ctx, page, forms.SubmitOptions{})

	case StepSubmit:
		f.filler.ClickSubmit(ctx, page, forms.SubmitOptions{})
	}
	return sess
}

// settle sleeps for the step's wait, clipped to the flow deadline.
func (f *Flow) settle(ctx context.Context, page browser.Page, wait time.Duration, deadline time.Time) {
	if wait <= 0 {
		return
	}
	if remaining := time.Until(deadline); wait > remaining {
		wait = remaining
	}
	if wait > 0 {
		_ = page.Sleep(ctx, wait)
	}
}

func observe(ctx context.Context, page browser.Page, ps state.PageState, opts FlowOptions) Observation {
	obs := Observation{
		HasCredentials:   !opts.Credentials.Empty(),
		IsLogin:          ps.IsLogin,
		IsDashboard:      ps.IsDashboard,
		Is2FA:            ps.Is2FA,
		HasPopup:         ps.HasPopup,
		HasEmailField:    ps.HasEmailField,
		HasPasswordField: ps.HasPasswordField,
		HasDollarAmounts: ps.HasDollarAmounts,
		FilledInputCount: ps.FilledInputCount,
	}
	if opts.IsLoggedIn != nil {
		obs.LoggedIn = opts.IsLoggedIn(ctx, page)
	}
	return obs
}
