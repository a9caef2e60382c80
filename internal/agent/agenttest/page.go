// internal/agent/agenttest/page.go

// Package agenttest provides a scripted in-memory Page for exercising the
// agent packages without a browser. The fake dispatches Evaluate calls on
// script markers: the probe snapshot script is answered from a queue, text
// extraction from BodyText, and value lookups from the recorded fills.
package agenttest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/finagg/portalagent/internal/agent/probe"
	"github.com/finagg/portalagent/internal/browser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ browser.Page = (*Page)(nil)

// Page is a fake browser.Page. The zero value is usable: every wait fails,
// the snapshot queue is empty, and all actions succeed and are recorded.
type Page struct {
	mu sync.Mutex

	// CurrentURL is returned by URL and updated by Navigate.
	CurrentURL string
	// NavigateErrs fails Navigate for specific URLs.
	NavigateErrs map[string]error
	// Snapshots answers successive probe snapshot evaluations; the last
	// entry repeats. An empty queue degrades the probe with an error.
	Snapshots []probe.Snapshot
	// BodyText answers text extraction scripts.
	BodyText string
	// LabelRef answers label-proximity lookups.
	LabelRef string
	// Visible marks selectors WaitVisible should succeed for.
	Visible map[string]bool
	// ClickErrs fails Click for specific selectors.
	ClickErrs map[string]error
	// EvaluateFn, when set, overrides all script dispatch.
	EvaluateFn func(script string, out any) error

	snapIdx     int
	Navigations []string
	Clicks      []string
	Fills       map[string]string
	Screenshots []string
	Removed     []string
	SleptTotal  time.Duration
	FrontCalls  int
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL, nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigations = append(p.Navigations, url)
	if err := p.NavigateErrs[url]; err != nil {
		return err
	}
	p.CurrentURL = url
	return nil
}

func (p *Page) Evaluate(ctx context.Context, script string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.EvaluateFn != nil {
		return p.EvaluateFn(script, out)
	}

	switch {
	case strings.Contains(script, "closeCandidates"):
		return p.answerSnapshot(out)
	case strings.Contains(script, ".remove()"):
		p.Removed = append(p.Removed, script)
		return nil
	case strings.Contains(script, "__paRefSeq"):
		return encodeInto(p.LabelRef, out)
	case strings.Contains(script, "innerText") && out != nil:
		return encodeInto(p.BodyText, out)
	case strings.Contains(script, ".value"):
		return p.answerValue(script, out)
	default:
		// Scrolls and other fire-and-forget scripts.
		return nil
	}
}

func (p *Page) answerSnapshot(out any) error {
	if len(p.Snapshots) == 0 {
		return errors.New("no scripted snapshot")
	}
	snap := p.Snapshots[p.snapIdx]
	if p.snapIdx < len(p.Snapshots)-1 {
		p.snapIdx++
	}
	return encodeInto(snap, out)
}

// answerValue resolves a querySelector value script against the recorded
// fills, matching on the quoted selector embedded in the script.
func (p *Page) answerValue(script string, out any) error {
	for sel, val := range p.Fills {
		if strings.Contains(script, strconv.Quote(sel)) {
			return encodeInto(val, out)
		}
	}
	return encodeInto("", out)
}

func (p *Page) Screenshot(ctx context.Context, path string, fullPage bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		return err
	}
	p.Screenshots = append(p.Screenshots, path)
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Visible[selector]
}

func (p *Page) Click(ctx context.Context, selector string, clickCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ClickErrs[selector]; err != nil {
		return err
	}
	p.Clicks = append(p.Clicks, selector)
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fills == nil {
		p.Fills = map[string]string{}
	}
	p.Fills[selector] = value
	return nil
}

// Sleep records the requested duration without actually sleeping, so
// loop-heavy tests stay fast. Context cancellation is still honored.
func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.SleptTotal += d
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) BringToFront(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FrontCalls++
	return nil
}

func encodeInto(v any, out any) error {
	raw, ok := out.(*[]byte)
	if !ok {
		return errors.New("agenttest: unsupported evaluate out type")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	*raw = data
	return nil
}
