// internal/agent/state/popupdetect.go
package state

import (
	"strings"

	"github.com/finagg/portalagent/internal/agent/probe"
)

// Popup detection thresholds. An overlay is blocking when a dialog is wide
// enough to matter, or a high-z fixed element covers a real share of the
// viewport, or a modal-classed element carries a close affordance.
const (
	dialogMinWidth    = 50.0
	coverZIndex       = 100
	coverViewportFrac = 0.30
	coverMinHeight    = 100.0 // excludes thin nav/footer bars
	modalMinWidth     = 100.0
	modalZIndex       = 50
)

// popupRule is one tagged step of the detection decision tree.
type popupRule struct {
	tag   string
	match func(o probe.OverlayFact, vw, vh float64) bool
}

// popupRules is evaluated in order, first match wins. This is a decision
// tree, not a score.
var popupRules = []popupRule{
	{
		tag: "dialog-role",
		match: func(o probe.OverlayFact, vw, vh float64) bool {
			return o.Role == "dialog" && o.Visible && o.Width > dialogMinWidth
		},
	},
	{
		tag: "covering-layer",
		match: func(o probe.OverlayFact, vw, vh float64) bool {
			if o.Tag != "div" && o.Tag != "section" && o.Tag != "aside" {
				return false
			}
			if !isFloating(o.Position) || o.ZIndex <= coverZIndex {
				return false
			}
			return o.Width > coverViewportFrac*vw &&
				o.Height > coverViewportFrac*vh &&
				o.Height >= coverMinHeight
		},
	},
	{
		tag: "modal-class",
		match: func(o probe.OverlayFact, vw, vh float64) bool {
			if !hasModalClass(o.Class) || !o.Visible || o.Width < modalMinWidth {
				return false
			}
			if o.ZIndex <= modalZIndex && !isFloating(o.Position) {
				return false
			}
			return o.HasCloseChild
		},
	},
}

// HasPopup reports whether the snapshot contains a blocking overlay.
func HasPopup(snap *probe.Snapshot) bool {
	_, ok := DetectPopup(snap)
	return ok
}

// DetectPopup returns the first overlay matching the detection rules along
// with the rule tag that fired.
func DetectPopup(snap *probe.Snapshot) (string, bool) {
	for _, rule := range popupRules {
		for _, o := range snap.Overlays {
			if rule.match(o, snap.ViewportWidth, snap.ViewportHeight) {
				return rule.tag, true
			}
		}
	}
	return "", false
}

func isFloating(position string) bool {
	return position == "fixed" || position == "absolute"
}

func hasModalClass(class string) bool {
	c := strings.ToLower(class)
	return strings.Contains(c, "modal") ||
		strings.Contains(c, "dialog") ||
		strings.Contains(c, "popup")
}
