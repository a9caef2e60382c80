// internal/agent/popup/rules.go

// Package popup clears blocking overlays: modals, cookie banners,
// announcement layers. Strategy selection is a pure function over a DOM
// snapshot; only the chosen action (one click, or one removal) touches the
// page. The strategy order is a deliberate escalation from reversible
// clicks to destructive DOM removal.
package popup

import (
	"strings"

	"github.com/finagg/portalagent/internal/agent/probe"
)

// ActionKind says what a strategy decided to do.
type ActionKind int

const (
	// ActionNone means no strategy found anything to act on.
	ActionNone ActionKind = iota
	// ActionClick clicks the element behind Ref.
	ActionClick
	// ActionRemove deletes the element behind Ref from the DOM.
	ActionRemove
)

// Action is the single dismissal step a snapshot warrants.
type Action struct {
	Kind     ActionKind
	Ref      string
	Strategy string
	Text     string
}

// skipWords are labels that must never be dismissed: clicking them would
// submit a form or leave the flow entirely.
var skipWords = []string{
	"sign in", "log in", "login", "signin",
	"sign up", "register", "create account",
	"submit", "forgot", "reset password",
}

// dismissWords are labels that close a layer when clicked. Matched against
// the whole normalized label or its leading word(s).
var dismissWords = []string{
	"close", "dismiss",
	"accept", "accept all", "accept cookies",
	"got it", "ok", "okay", "agree", "i agree",
	"not now", "no thanks", "skip", "maybe later",
	"allow", "allow all", "understood",
}

// ambiguousWords advance wizards as often as they close popups. They are
// only eligible inside a popup-like container.
//
// A former strategy matched these (and similar broad labels) anywhere on
// the page; it clicked unrelated navigation links and was removed. Do not
// widen this list or drop the container requirement without that history
// in mind.
var ambiguousWords = []string{"next", "continue"}

// Glyphs that conventionally mark a close button.
var closeGlyphs = []string{"×", "✕", "X", "x"}

const (
	maxLabelLen        = 30
	glyphMaxSize       = 60.0
	removalZIndex      = 50
	forcedRemoveZIndex = 100
	forcedRemoveFrac   = 0.30
)

// strategy is one tagged step of the dismissal escalation.
type strategy struct {
	tag    string
	decide func(snap *probe.Snapshot) (Action, bool)
}

// strategies run in fixed order; the first one to produce an action wins.
var strategies = []strategy{
	{"close-button", decideCloseButton},
	{"dismiss-text", decideDismissText},
	{"floating-container", decideFloatingContainer},
	{"close-glyph", decideCloseGlyph},
	{"remove-overlay", decideRemoveOverlay},
	{"remove-covering", decideRemoveCovering},
}

// Decide picks exactly one dismissal action for the snapshot, or none.
func Decide(snap *probe.Snapshot) Action {
	for _, s := range strategies {
		if action, ok := s.decide(snap); ok {
			action.Strategy = s.tag
			return action
		}
	}
	return Action{Kind: ActionNone}
}

// decideCloseButton clicks the first visible close/dismiss-affordance
// element, unless its label is protected.
func decideCloseButton(snap *probe.Snapshot) (Action, bool) {
	for _, c := range snap.CloseButtons {
		if !c.Visible || isSkipLabel(c.Text) {
			continue
		}
		return Action{Kind: ActionClick, Ref: c.Ref, Text: c.Text}, true
	}
	return Action{}, false
}

// decideDismissText clicks the first visible button whose short label is on
// the dismiss list. The skip list is checked first and always wins;
// ambiguous labels need a popup-like container around them.
func decideDismissText(snap *probe.Snapshot) (Action, bool) {
	for _, b := range snap.Buttons {
		if !b.Visible {
			continue
		}
		label := normalizeLabel(b.Text)
		if label == "" || len(label) > maxLabelLen {
			continue
		}
		if isSkipLabel(label) {
			continue
		}
		if matchesDismiss(label) {
			return Action{Kind: ActionClick, Ref: b.Ref, Text: b.Text}, true
		}
		if b.InPopup && matchesAny(label, ambiguousWords) {
			return Action{Kind: ActionClick, Ref: b.Ref, Text: b.Text}, true
		}
	}
	return Action{}, false
}

// decideFloatingContainer targets floating layers with 1-3 visible
// interactive children and no form inputs, clicking the last child (the
// conventional OK/Next position) that is not skip-listed.
func decideFloatingContainer(snap *probe.Snapshot) (Action, bool) {
	for _, o := range snap.Overlays {
		if !o.Visible || !isFloating(o.Position) || o.HasFormInputs {
			continue
		}
		if len(o.Children) < 1 || len(o.Children) > 3 {
			continue
		}
		for i := len(o.Children) - 1; i >= 0; i-- {
			child := o.Children[i]
			if isSkipLabel(normalizeLabel(child.Text)) {
				continue
			}
			return Action{Kind: ActionClick, Ref: child.Ref, Text: child.Text}, true
		}
	}
	return Action{}, false
}

// decideCloseGlyph clicks small elements whose entire text is a close glyph.
func decideCloseGlyph(snap *probe.Snapshot) (Action, bool) {
	match := func(text string, w, h float64, ref string) (Action, bool) {
		trimmed := strings.TrimSpace(text)
		for _, g := range closeGlyphs {
			if trimmed == g && w < glyphMaxSize && h < glyphMaxSize {
				return Action{Kind: ActionClick, Ref: ref, Text: trimmed}, true
			}
		}
		return Action{}, false
	}
	for _, b := range snap.Buttons {
		if !b.Visible {
			continue
		}
		if a, ok := match(b.Text, b.Width, b.Height, b.Ref); ok {
			return a, true
		}
	}
	for _, c := range snap.CloseButtons {
		if !c.Visible {
			continue
		}
		if a, ok := match(c.Text, c.Width, c.Height, c.Ref); ok {
			return a, true
		}
	}
	return Action{}, false
}

// decideRemoveOverlay deletes backdrop/mask layers outright.
func decideRemoveOverlay(snap *probe.Snapshot) (Action, bool) {
	for _, o := range snap.Overlays {
		if isBackdrop(o) {
			return Action{Kind: ActionRemove, Ref: o.Ref}, true
		}
	}
	return Action{}, false
}

// decideRemoveCovering is the last resort: delete any fixed, high-z element
// covering a large share of the viewport.
func decideRemoveCovering(snap *probe.Snapshot) (Action, bool) {
	for _, o := range snap.Overlays {
		if isCoveringLayer(o, snap.ViewportWidth, snap.ViewportHeight) {
			return Action{Kind: ActionRemove, Ref: o.Ref}, true
		}
	}
	return Action{}, false
}

// ForcedRemovals lists every overlay qualifying for destructive removal.
// Used once when a popup is detected but no strategy can act on it.
func ForcedRemovals(snap *probe.Snapshot) []string {
	var refs []string
	for _, o := range snap.Overlays {
		if isBackdrop(o) || isCoveringLayer(o, snap.ViewportWidth, snap.ViewportHeight) {
			refs = append(refs, o.Ref)
		}
	}
	return refs
}

func isBackdrop(o probe.OverlayFact) bool {
	if !isFloating(o.Position) || o.ZIndex <= removalZIndex {
		return false
	}
	c := strings.ToLower(o.Class)
	return strings.Contains(c, "overlay") ||
		strings.Contains(c, "backdrop") ||
		strings.Contains(c, "mask")
}

func isCoveringLayer(o probe.OverlayFact, vw, vh float64) bool {
	return o.Position == "fixed" && o.ZIndex > forcedRemoveZIndex &&
		o.Width > forcedRemoveFrac*vw && o.Height > forcedRemoveFrac*vh
}

func isFloating(position string) bool {
	return position == "fixed" || position == "absolute"
}

func normalizeLabel(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func isSkipLabel(label string) bool {
	for _, w := range skipWords {
		if strings.Contains(label, w) {
			return true
		}
	}
	return false
}

// matchesDismiss accepts exact matches and labels that begin with a dismiss
// word ("accept all cookies" matches "accept").
func matchesDismiss(label string) bool {
	for _, w := range dismissWords {
		if label == w || strings.HasPrefix(label, w+" ") {
			return true
		}
	}
	return false
}

func matchesAny(label string, words []string) bool {
	for _, w := range words {
		if label == w {
			return true
		}
	}
	return false
}
