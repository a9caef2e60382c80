// internal/agent/state/state.go

// Package state classifies a page snapshot into the login/dashboard/2FA/
// popup observation the orchestrator drives on.
package state

import (
	"regexp"
	"strings"

	"github.com/finagg/portalagent/internal/agent/probe"
)

// PageState is a point-in-time classification of a page. It is a pure
// function of the page at one instant; no two evaluations are comparable
// without re-probing.
type PageState struct {
	URL         string
	IsLogin     bool
	IsDashboard bool
	Is2FA       bool
	HasPopup    bool

	HasEmailField    bool
	HasPasswordField bool

	HasDollarAmounts bool
	InputCount       int
	// FilledInputCount counts visible inputs that already carry a value
	// (browser autofill shows up here).
	FilledInputCount int

	ButtonLabels []string
	TextSnippet  string

	// Degraded marks a state built from a failed evaluation: only URL (if
	// any) is meaningful. Callers can distinguish "nothing detected" from
	// "detection failed".
	Degraded bool
}

const (
	maxButtonLabels = 10
	maxSnippet      = 300
)

var (
	dollarRe = regexp.MustCompile(`\$[\d,]{3,}`)

	loginURLKeywords     = []string{"/login", "/signin", "/auth"}
	dashboardURLKeywords = []string{"/dashboard", "/home", "/account"}
	twoFAURLKeywords     = []string{"challenge", "mfa", "verify"}
	twoFATextKeywords    = []string{"verification code", "two-factor", "security code"}
)

// FromSnapshot computes a PageState from a snapshot.
func FromSnapshot(snap *probe.Snapshot) PageState {
	lowerURL := strings.ToLower(snap.URL)
	lowerText := strings.ToLower(snap.BodyText)

	st := PageState{
		URL:              snap.URL,
		IsLogin:          containsAny(lowerURL, loginURLKeywords),
		IsDashboard:      containsAny(lowerURL, dashboardURLKeywords),
		Is2FA:            containsAny(lowerURL, twoFAURLKeywords) || containsAny(lowerText, twoFATextKeywords),
		HasPopup:         HasPopup(snap),
		HasDollarAmounts: dollarRe.MatchString(snap.BodyText),
		TextSnippet:      snippet(snap.BodyText),
	}

	for _, in := range snap.Inputs {
		if !in.Visible {
			continue
		}
		st.InputCount++
		if in.HasValue {
			st.FilledInputCount++
		}
		if isEmailLike(in) {
			st.HasEmailField = true
		}
		if in.Type == "password" {
			st.HasPasswordField = true
		}
	}

	for _, b := range snap.Buttons {
		if !b.Visible || b.Text == "" {
			continue
		}
		st.ButtonLabels = append(st.ButtonLabels, b.Text)
		if len(st.ButtonLabels) >= maxButtonLabels {
			break
		}
	}

	return st
}

// isEmailLike matches type=email, or name/placeholder/id containing "email"
// or "user" (case-insensitive). Password inputs never qualify.
func isEmailLike(in probe.InputFact) bool {
	if in.Type == "password" {
		return false
	}
	if in.Type == "email" {
		return true
	}
	hay := strings.ToLower(in.Name + " " + in.Placeholder + " " + in.ID)
	return strings.Contains(hay, "email") || strings.Contains(hay, "user")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func snippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if len(collapsed) > maxSnippet {
		return collapsed[:maxSnippet]
	}
	return collapsed
}
