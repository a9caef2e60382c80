// internal/agent/forms/forms_test.go
package forms

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/agent/agenttest"
	"github.com/finagg/portalagent/internal/agent/probe"
)

func fastOpts() Options {
	return Options{Delay: time.Millisecond, SelectorWait: time.Millisecond}
}

func TestFillByType(t *testing.T) {
	page := &agenttest.Page{
		Visible: map[string]bool{`input[type="email"]`: true},
	}
	filler := NewFiller(zap.NewNop())

	results := filler.Fill(context.Background(), page, []FieldSpec{
		{Type: "email", Value: "analyst@example.com"},
	}, fastOpts())

	require.Len(t, results, 1)
	assert.True(t, results[0].Filled)
	assert.Equal(t, `input[type="email"]`, results[0].Selector)
	assert.Equal(t, "analyst@example.com", page.Fills[`input[type="email"]`])
	// The focus click precedes the fill and selects existing content.
	assert.Contains(t, page.Clicks, `input[type="email"]`)
}

func TestFillSelectorPriority(t *testing.T) {
	// Both the explicit selector and the type selector resolve; the
	// explicit one must win.
	page := &agenttest.Page{
		Visible: map[string]bool{
			"#login-email":        true,
			`input[type="email"]`: true,
		},
	}
	filler := NewFiller(zap.NewNop())

	results := filler.Fill(context.Background(), page, []FieldSpec{
		{Selector: "#login-email", Type: "email", Value: "a@b.c"},
	}, fastOpts())

	assert.Equal(t, "#login-email", results[0].Selector)
}

func TestFillFallsThroughToNameVariants(t *testing.T) {
	page := &agenttest.Page{
		Visible: map[string]bool{`input[name*="user"]`: true},
	}
	filler := NewFiller(zap.NewNop())

	results := filler.Fill(context.Background(), page, []FieldSpec{
		{Type: "email", Name: "user", Value: "a@b.c"},
	}, fastOpts())

	require.True(t, results[0].Filled)
	assert.Equal(t, `input[name*="user"]`, results[0].Selector)
}

func TestFillByLabelProximity(t *testing.T) {
	page := &agenttest.Page{LabelRef: "pa-9"}
	filler := NewFiller(zap.NewNop())

	results := filler.Fill(context.Background(), page, []FieldSpec{
		{Label: "Work email", Value: "a@b.c"},
	}, fastOpts())

	require.True(t, results[0].Filled)
	assert.Equal(t, probe.Selector("pa-9"), results[0].Selector)
	assert.Equal(t, "a@b.c", page.Fills[probe.Selector("pa-9")])
}

func TestFillMissingFieldIsNotAnError(t *testing.T) {
	page := &agenttest.Page{} // nothing visible, no label match
	filler := NewFiller(zap.NewNop())

	results := filler.Fill(context.Background(), page, []FieldSpec{
		{Type: "password", Name: "password", Label: "password", Value: "s3cret"},
	}, fastOpts())

	require.Len(t, results, 1)
	assert.False(t, results[0].Filled)
	assert.Empty(t, results[0].Selector)
	assert.Empty(t, page.Fills)
}

func TestFillVerificationMismatchMovesOn(t *testing.T) {
	// The page rewrites the value (a masked input, say): verification
	// fails for the first candidate and the next one is tried.
	page := &agenttest.Page{
		Visible: map[string]bool{
			`input[type="email"]`: true,
			`input[name="email"]`: true,
		},
		EvaluateFn: func(script string, out any) error {
			if out == nil {
				return nil
			}
			*(out.(*[]byte)) = []byte(`"something else"`)
			return nil
		},
	}
	filler := NewFiller(zap.NewNop())

	results := filler.Fill(context.Background(), page, []FieldSpec{
		{Type: "email", Name: "email", Value: "a@b.c"},
	}, fastOpts())

	assert.False(t, results[0].Filled)
	// Both visible candidates were attempted.
	assert.Len(t, page.Clicks, 2)
}

func TestClickSubmitPrefersExplicitSelector(t *testing.T) {
	page := &agenttest.Page{
		Visible: map[string]bool{`button[type="submit"]`: true},
	}
	filler := NewFiller(zap.NewNop())

	ok := filler.ClickSubmit(context.Background(), page, SubmitOptions{})
	assert.True(t, ok)
	assert.Equal(t, []string{`button[type="submit"]`}, page.Clicks)
}

func TestClickSubmitFallsBackToLabel(t *testing.T) {
	page := &agenttest.Page{
		Snapshots: []probe.Snapshot{{
			Buttons: []probe.ButtonFact{
				{Ref: "pa-1", Text: "Cancel", Visible: true},
				{Ref: "pa-2", Text: "Sign In", Visible: true},
			},
		}},
	}
	filler := NewFiller(zap.NewNop())

	ok := filler.ClickSubmit(context.Background(), page, SubmitOptions{})
	require.True(t, ok)
	assert.Equal(t, []string{probe.Selector("pa-2")}, page.Clicks)
}

func TestClickSubmitLabelPriorityOrder(t *testing.T) {
	// "Sign in" outranks "Continue" regardless of DOM order.
	page := &agenttest.Page{
		Snapshots: []probe.Snapshot{{
			Buttons: []probe.ButtonFact{
				{Ref: "pa-1", Text: "Continue", Visible: true},
				{Ref: "pa-2", Text: "sign in", Visible: true},
			},
		}},
	}
	filler := NewFiller(zap.NewNop())

	require.True(t, filler.ClickSubmit(context.Background(), page, SubmitOptions{}))
	assert.Equal(t, []string{probe.Selector("pa-2")}, page.Clicks)
}

func TestClickSubmitNothingFound(t *testing.T) {
	page := &agenttest.Page{Snapshots: []probe.Snapshot{{}}}
	filler := NewFiller(zap.NewNop())

	assert.False(t, filler.ClickSubmit(context.Background(), page, SubmitOptions{}))
	assert.Empty(t, page.Clicks)
}

func TestCandidateSelectors(t *testing.T) {
	sels := candidateSelectors(FieldSpec{Selector: "#x", Type: "email", Name: "user"})
	assert.Equal(t, []string{
		"#x",
		`input[type="email"]`,
		`input[name="user"]`,
		`input[id="user"]`,
		`input[name*="user"]`,
		`input[placeholder*="user" i]`,
	}, sels)
}
