// internal/agent/forms/forms.go

// Package forms matches and fills input fields on a live page. Matching
// tries candidate selectors in priority order (explicit selector, type,
// name-derived attributes, label proximity). A missing field is recorded,
// never fatal; the caller decides whether it matters.
package forms

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/agent/probe"
	"github.com/finagg/portalagent/internal/browser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FieldSpec describes one field to fill. At least one of Selector, Type,
// Name or Label must be set.
type FieldSpec struct {
	Selector string
	Type     string
	Name     string
	Label    string
	Value    string
}

// FillResult reports the outcome for one FieldSpec.
type FillResult struct {
	Filled   bool
	Selector string
}

// Options tunes fill behavior.
type Options struct {
	// Delay is the settle pause before and after each overwrite (default 500ms).
	Delay time.Duration
	// SelectorWait bounds each candidate-selector visibility wait (default 3s).
	SelectorWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.Delay <= 0 {
		o.Delay = 500 * time.Millisecond
	}
	if o.SelectorWait <= 0 {
		o.SelectorWait = 3 * time.Second
	}
	return o
}

// SubmitOptions tunes ClickSubmit.
type SubmitOptions struct {
	// Selectors are tried first, in order.
	Selectors []string
	// Labels are matched against visible button text, in priority order.
	Labels []string
}

var defaultSubmitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
}

var defaultSubmitLabels = []string{
	"sign in", "log in", "login", "submit", "continue",
}

// Filler fills fields and clicks submit buttons.
type Filler struct {
	logger *zap.Logger
}

// NewFiller creates a form filler.
func NewFiller(logger *zap.Logger) *Filler {
	return &Filler{logger: logger.Named("forms")}
}

// Fill attempts every field, in order, and returns one result per field.
// It never returns an error for a missing field.
func (f *Filler) Fill(ctx context.Context, page browser.Page, fields []FieldSpec, opts Options) []FillResult {
	opts = opts.withDefaults()
	results := make([]FillResult, 0, len(fields))

	for _, field := range fields {
		results = append(results, f.fillOne(ctx, page, field, opts))
	}
	return results
}

func (f *Filler) fillOne(ctx context.Context, page browser.Page, field FieldSpec, opts Options) FillResult {
	for _, sel := range candidateSelectors(field) {
		if !page.WaitVisible(ctx, sel, opts.SelectorWait) {
			continue
		}
		if f.overwrite(ctx, page, sel, field.Value, opts.Delay) {
			return FillResult{Filled: true, Selector: sel}
		}
	}

	// Label-proximity fallback.
	if field.Label != "" {
		if ref := f.fieldByLabel(ctx, page, field.Label); ref != "" {
			sel := probe.Selector(ref)
			if f.overwrite(ctx, page, sel, field.Value, opts.Delay) {
				return FillResult{Filled: true, Selector: sel}
			}
		}
	}

	f.logger.Debug("No selector matched field.",
		zap.String("type", field.Type), zap.String("name", field.Name), zap.String("label", field.Label))
	return FillResult{}
}

// overwrite selects existing content (triple click), types the value with a
// settle delay on both sides, then verifies the input took it.
func (f *Filler) overwrite(ctx context.Context, page browser.Page, selector, value string, delay time.Duration) bool {
	_ = page.Sleep(ctx, delay)

	if err := page.Click(ctx, selector, 3); err != nil {
		f.logger.Debug("Field focus click failed.", zap.String("selector", selector), zap.Error(err))
		return false
	}
	if err := page.Fill(ctx, selector, value); err != nil {
		f.logger.Debug("Field fill failed.", zap.String("selector", selector), zap.Error(err))
		return false
	}

	_ = page.Sleep(ctx, delay)
	return f.verify(ctx, page, selector, value)
}

func (f *Filler) verify(ctx context.Context, page browser.Page, selector, value string) bool {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? el.value : null; })()`,
		selector)

	var raw []byte
	if err := page.Evaluate(ctx, script, &raw); err != nil {
		// Verification is best effort: a flaky evaluate should not undo a
		// fill that visibly succeeded.
		f.logger.Debug("Fill verification degraded.", zap.Error(err))
		return true
	}
	var got string
	if err := json.Unmarshal(raw, &got); err != nil {
		return true
	}
	if got != value {
		f.logger.Debug("Fill verification mismatch.",
			zap.String("selector", selector), zap.Int("got_len", len(got)))
		return false
	}
	return true
}

// candidateSelectors builds the priority-ordered selector list for a field:
// explicit selector, then type, then name-derived attribute matches.
func candidateSelectors(field FieldSpec) []string {
	var sels []string
	if field.Selector != "" {
		sels = append(sels, field.Selector)
	}
	if field.Type != "" {
		sels = append(sels, fmt.Sprintf(`input[type=%q]`, field.Type))
	}
	if field.Name != "" {
		sels = append(sels,
			fmt.Sprintf(`input[name=%q]`, field.Name),
			fmt.Sprintf(`input[id=%q]`, field.Name),
			fmt.Sprintf(`input[name*=%q]`, field.Name),
			fmt.Sprintf(`input[placeholder*=%q i]`, field.Name),
		)
	}
	return sels
}

// fieldByLabel resolves an input via label text proximity: a label element
// containing the text, resolved through its for= attribute, a nested input,
// or the next input in document order. Returns a snapshot ref or "".
func (f *Filler) fieldByLabel(ctx context.Context, page browser.Page, label string) string {
	script := fmt.Sprintf(`
(() => {
    const wanted = %q.toLowerCase();
    const labels = Array.from(document.querySelectorAll('label'));
    for (const lab of labels) {
        const text = (lab.innerText || '').trim().toLowerCase();
        if (!text || !text.includes(wanted)) continue;
        let input = null;
        const forAttr = lab.getAttribute('for');
        if (forAttr) input = document.getElementById(forAttr);
        if (!input) input = lab.querySelector('input, textarea');
        if (!input) {
            let n = lab.nextElementSibling;
            while (n && !input) {
                input = n.matches('input, textarea') ? n : n.querySelector('input, textarea');
                n = n.nextElementSibling;
            }
        }
        if (input) {
            window.__paRefSeq = (window.__paRefSeq || 0) + 1;
            if (!input.hasAttribute('data-pa-ref')) {
                input.setAttribute('data-pa-ref', 'pa-' + window.__paRefSeq);
            }
            return input.getAttribute('data-pa-ref');
        }
    }
    return '';
})()`, label)

	var raw []byte
	if err := page.Evaluate(ctx, script, &raw); err != nil {
		f.logger.Debug("Label-proximity lookup degraded.", zap.Error(err))
		return ""
	}
	var ref string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	return ref
}

// ClickSubmit clicks the most plausible submit control: explicit selectors
// first, then text-labelled buttons in priority order. Returns whether
// anything was clicked.
func (f *Filler) ClickSubmit(ctx context.Context, page browser.Page, opts SubmitOptions) bool {
	selectors := opts.Selectors
	if len(selectors) == 0 {
		selectors = defaultSubmitSelectors
	}
	labels := opts.Labels
	if len(labels) == 0 {
		labels = defaultSubmitLabels
	}

	for _, sel := range selectors {
		if !page.WaitVisible(ctx, sel, 1500*time.Millisecond) {
			continue
		}
		if err := page.Click(ctx, sel, 1); err == nil {
			f.logger.Info("Clicked submit.", zap.String("selector", sel))
			return true
		}
	}

	snap, err := probe.Take(ctx, page)
	if err != nil {
		f.logger.Debug("Submit probe degraded.", zap.Error(err))
		return false
	}
	for _, want := range labels {
		for _, b := range snap.Buttons {
			if !b.Visible {
				continue
			}
			if strings.ToLower(strings.TrimSpace(b.Text)) != want {
				continue
			}
			if err := page.Click(ctx, probe.Selector(b.Ref), 1); err == nil {
				f.logger.Info("Clicked submit by label.", zap.String("label", b.Text))
				return true
			}
		}
	}

	f.logger.Debug("No submit control found.")
	return false
}
