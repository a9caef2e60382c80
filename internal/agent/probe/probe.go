// internal/agent/probe/probe.go

// Package probe takes point-in-time snapshots of a live page's DOM. A
// snapshot is the raw material every heuristic in the agent is computed
// from: the JavaScript side only collects facts, all decisions happen
// process-side where they can be unit tested.
package probe

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/finagg/portalagent/internal/browser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// InputFact describes one input or textarea element.
type InputFact struct {
	Ref         string `json:"ref"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Visible     bool   `json:"visible"`
	HasValue    bool   `json:"hasValue"`
}

// ButtonFact describes one clickable element (button, link, role=button).
type ButtonFact struct {
	Ref     string  `json:"ref"`
	Tag     string  `json:"tag"`
	Text    string  `json:"text"`
	Visible bool    `json:"visible"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	// InPopup is true when the element is nested inside a popup-like
	// container (role=dialog or a modal/popup-ish class).
	InPopup bool `json:"inPopup"`
}

// CloseFact describes an element carrying a close/dismiss affordance
// (aria-label or class containing close/dismiss, data-dismiss, data-close).
type CloseFact struct {
	Ref     string  `json:"ref"`
	Text    string  `json:"text"`
	Visible bool    `json:"visible"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// ChildFact is a visible interactive child of an overlay, in DOM order.
type ChildFact struct {
	Ref  string `json:"ref"`
	Text string `json:"text"`
}

// OverlayFact describes one popup/overlay candidate element.
type OverlayFact struct {
	Ref           string      `json:"ref"`
	Tag           string      `json:"tag"`
	Class         string      `json:"class"`
	Role          string      `json:"role"`
	Position      string      `json:"position"`
	ZIndex        int         `json:"zIndex"`
	Width         float64     `json:"width"`
	Height        float64     `json:"height"`
	Visible       bool        `json:"visible"`
	HasCloseChild bool        `json:"hasCloseChild"`
	Children      []ChildFact `json:"children"`
	HasFormInputs bool        `json:"hasFormInputs"`
}

// Snapshot is a structured view of the page at one instant. Two snapshots
// are never comparable without re-probing; element refs are only guaranteed
// valid against the DOM they were captured from.
type Snapshot struct {
	URL            string        `json:"url"`
	Title          string        `json:"title"`
	ViewportWidth  float64       `json:"viewportWidth"`
	ViewportHeight float64       `json:"viewportHeight"`
	BodyText       string        `json:"bodyText"`
	Inputs         []InputFact   `json:"inputs"`
	Buttons        []ButtonFact  `json:"buttons"`
	CloseButtons   []CloseFact   `json:"closeCandidates"`
	Overlays       []OverlayFact `json:"overlays"`
}

// Take captures a fresh snapshot of the page.
func Take(ctx context.Context, page browser.Page) (*Snapshot, error) {
	var raw []byte
	if err := page.Evaluate(ctx, snapshotJS, &raw); err != nil {
		return nil, fmt.Errorf("snapshot evaluation failed: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("snapshot decode failed: %w", err)
	}
	return &snap, nil
}

// Selector returns a CSS selector addressing a snapshot ref.
func Selector(ref string) string {
	return fmt.Sprintf(`[data-pa-ref=%q]`, ref)
}

// RemoveRef deletes the element behind ref from the DOM. Destructive; used
// only as the dismissal escalation of last resort.
func RemoveRef(ctx context.Context, page browser.Page, ref string) error {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector('[data-pa-ref=%q]'); if (el) el.remove(); return true; })()`,
		ref)
	if err := page.Evaluate(ctx, script, nil); err != nil {
		return fmt.Errorf("overlay removal failed: %w", err)
	}
	return nil
}
