// internal/agent/login/fsm_test.go
package login

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecidePriorityOrder(t *testing.T) {
	w := DefaultWaits()

	testCases := []struct {
		name     string
		obs      Observation
		sess     Session
		wantKind StepKind
		wantWait time.Duration
	}{
		{
			name:     "predicate wins over everything",
			obs:      Observation{LoggedIn: true, IsLogin: true, HasPopup: true},
			wantKind: StepSucceed,
		},
		{
			name:     "dollars on a dashboard succeed",
			obs:      Observation{HasDollarAmounts: true, IsDashboard: true},
			wantKind: StepSucceed,
		},
		{
			name:     "dollars off the login page succeed",
			obs:      Observation{HasDollarAmounts: true},
			wantKind: StepSucceed,
		},
		{
			name:     "dollars on the login page do not succeed",
			obs:      Observation{HasDollarAmounts: true, IsLogin: true, HasCredentials: true, HasEmailField: true},
			wantKind: StepFillEmail,
			wantWait: w.Settle,
		},
		{
			name:     "dashboard without dollars settles",
			obs:      Observation{IsDashboard: true},
			wantKind: StepWait,
			wantWait: w.Settle,
		},
		{
			name:     "popup is cleared before any typing",
			obs:      Observation{HasPopup: true, HasEmailField: true, HasCredentials: true, IsLogin: true},
			wantKind: StepClearPopups,
			wantWait: w.Popup,
		},
		{
			name:     "2fa waits for the human",
			obs:      Observation{Is2FA: true, HasEmailField: true, HasCredentials: true},
			wantKind: StepBringToFront,
			wantWait: w.TwoFactor,
		},
		{
			name:     "email field with credentials",
			obs:      Observation{IsLogin: true, HasEmailField: true, HasCredentials: true},
			wantKind: StepFillEmail,
			wantWait: w.Settle,
		},
		{
			name:     "email already entered moves to password",
			obs:      Observation{IsLogin: true, HasEmailField: true, HasPasswordField: true, HasCredentials: true},
			sess:     Session{EmailEntered: true},
			wantKind: StepFillPassword,
			wantWait: w.Settle,
		},
		{
			name:     "both entered, form populated, submit",
			obs:      Observation{IsLogin: true, HasEmailField: true, HasPasswordField: true, HasCredentials: true, FilledInputCount: 2},
			sess:     Session{EmailEntered: true, PasswordEntered: true},
			wantKind: StepSubmit,
			wantWait: w.Settle,
		},
		{
			name:     "autofilled form without credentials submits",
			obs:      Observation{IsLogin: true, FilledInputCount: 2},
			wantKind: StepSubmit,
			wantWait: w.Settle,
		},
		{
			name:     "login page without credentials hands over to the human",
			obs:      Observation{IsLogin: true},
			wantKind: StepBringToFront,
			wantWait: w.Manual,
		},
		{
			name:     "unknown state sweeps popups and waits",
			obs:      Observation{},
			wantKind: StepClearPopups,
			wantWait: w.Settle,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			step := Decide(tc.obs, tc.sess, w)
			assert.Equal(t, tc.wantKind, step.Kind, "reason: %s", step.Reason)
			if tc.wantKind != StepSucceed {
				assert.Equal(t, tc.wantWait, step.Wait)
			}
			assert.NotEmpty(t, step.Reason)
		})
	}
}

// Credentials must be typed at most once: after the session records them,
// the same page state must not produce another fill step.
func TestDecideNeverRetypesCredentials(t *testing.T) {
	w := DefaultWaits()
	obs := Observation{IsLogin: true, HasEmailField: true, HasPasswordField: true, HasCredentials: true}
	sess := Session{EmailEntered: true, PasswordEntered: true}

	step := Decide(obs, sess, w)
	assert.NotEqual(t, StepFillEmail, step.Kind)
	assert.NotEqual(t, StepFillPassword, step.Kind)
}

func TestCredentialsEmpty(t *testing.T) {
	assert.True(t, Credentials{}.Empty())
	assert.False(t, Credentials{Username: "u"}.Empty())
	assert.False(t, Credentials{Password: "p"}.Empty())
}
