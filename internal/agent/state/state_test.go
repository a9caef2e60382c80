// internal/agent/state/state_test.go
package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finagg/portalagent/internal/agent/probe"
)

func TestFromSnapshotURLClassification(t *testing.T) {
	testCases := []struct {
		name        string
		url         string
		bodyText    string
		isLogin     bool
		isDashboard bool
		is2FA       bool
	}{
		{name: "login path", url: "https://portal.example.com/login", isLogin: true},
		{name: "signin path", url: "https://portal.example.com/signin?next=/x", isLogin: true},
		{name: "auth path", url: "https://portal.example.com/auth/start", isLogin: true},
		{name: "dashboard path", url: "https://portal.example.com/dashboard", isDashboard: true},
		{name: "home path", url: "https://portal.example.com/home", isDashboard: true},
		{name: "account path", url: "https://portal.example.com/account/summary", isDashboard: true},
		{name: "mfa url", url: "https://portal.example.com/mfa", is2FA: true},
		{name: "challenge url", url: "https://accounts.example.com/challenge/sms", is2FA: true},
		{name: "2fa by body text", url: "https://portal.example.com/next", bodyText: "Enter the verification code we sent you", is2FA: true},
		{name: "two-factor by body text", url: "https://portal.example.com/next", bodyText: "Two-Factor authentication required", is2FA: true},
		{name: "plain page", url: "https://portal.example.com/reports"},
		// A login URL that is also a challenge marks both; the orchestrator
		// decides which wins.
		{name: "login with mfa", url: "https://portal.example.com/login/mfa", isLogin: true, is2FA: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := FromSnapshot(&probe.Snapshot{URL: tc.url, BodyText: tc.bodyText})
			assert.Equal(t, tc.isLogin, st.IsLogin, "IsLogin")
			assert.Equal(t, tc.isDashboard, st.IsDashboard, "IsDashboard")
			assert.Equal(t, tc.is2FA, st.Is2FA, "Is2FA")
			assert.False(t, st.Degraded)
		})
	}
}

func TestFromSnapshotDollarAmounts(t *testing.T) {
	testCases := []struct {
		text string
		want bool
	}{
		{"Total balance: $1,234.56", true},
		{"$123", true},
		{"$1,000,000 under management", true},
		{"$12", false}, // too short to be a real figure
		{"price in USD only", false},
		{"", false},
	}

	for _, tc := range testCases {
		st := FromSnapshot(&probe.Snapshot{BodyText: tc.text})
		assert.Equal(t, tc.want, st.HasDollarAmounts, "text %q", tc.text)
	}
}

func TestFromSnapshotInputDetection(t *testing.T) {
	snap := &probe.Snapshot{
		Inputs: []probe.InputFact{
			{Ref: "pa-1", Type: "email", Visible: true},
			{Ref: "pa-2", Type: "password", Visible: true, HasValue: true},
			{Ref: "pa-3", Type: "text", Name: "username", Visible: true},
			{Ref: "pa-4", Type: "text", Name: "search", Visible: false}, // hidden, ignored
		},
	}

	st := FromSnapshot(snap)
	assert.True(t, st.HasEmailField)
	assert.True(t, st.HasPasswordField)
	assert.Equal(t, 3, st.InputCount)
	assert.Equal(t, 1, st.FilledInputCount)
}

func TestIsEmailLike(t *testing.T) {
	assert.True(t, isEmailLike(probe.InputFact{Type: "email"}))
	assert.True(t, isEmailLike(probe.InputFact{Type: "text", Name: "user_email"}))
	assert.True(t, isEmailLike(probe.InputFact{Type: "text", Placeholder: "Username or email"}))
	assert.True(t, isEmailLike(probe.InputFact{Type: "text", ID: "userId"}))

	// A password field named "user_password" must never count as an email field.
	assert.False(t, isEmailLike(probe.InputFact{Type: "password", Name: "user_password"}))
	assert.False(t, isEmailLike(probe.InputFact{Type: "text", Name: "zipcode"}))
}

func TestFromSnapshotTruncation(t *testing.T) {
	snap := &probe.Snapshot{
		BodyText: strings.Repeat("lorem ipsum ", 100),
	}
	for i := 0; i < 20; i++ {
		snap.Buttons = append(snap.Buttons, probe.ButtonFact{Ref: "b", Text: "Go", Visible: true})
	}

	st := FromSnapshot(snap)
	assert.Len(t, st.ButtonLabels, maxButtonLabels)
	assert.LessOrEqual(t, len(st.TextSnippet), maxSnippet)
}

func TestSnippetCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", snippet("  a\n\n b\t c  "))
}
