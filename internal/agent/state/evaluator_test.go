// internal/agent/state/evaluator_test.go
package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/agent/agenttest"
	"github.com/finagg/portalagent/internal/agent/probe"
)

func TestEvaluateClassifiesAndScreenshots(t *testing.T) {
	dir := t.TempDir()
	page := &agenttest.Page{
		Snapshots: []probe.Snapshot{{
			URL:      "https://portal.example.com/dashboard",
			BodyText: "Assets under management $1,234,567",
		}},
	}

	ev := NewEvaluator(zap.NewNop(), dir)
	st := ev.Evaluate(context.Background(), page, "check")

	assert.True(t, st.IsDashboard)
	assert.True(t, st.HasDollarAmounts)
	assert.False(t, st.Degraded)

	require.Len(t, page.Screenshots, 1)
	assert.Equal(t, dir, filepath.Dir(page.Screenshots[0]))
}

func TestEvaluateDegradesOnProbeFailure(t *testing.T) {
	// An empty snapshot queue makes the probe fail; evaluation must still
	// produce a usable state carrying the URL.
	page := &agenttest.Page{CurrentURL: "https://portal.example.com/login"}

	ev := NewEvaluator(zap.NewNop(), "")
	st := ev.Evaluate(context.Background(), page, "check")

	assert.True(t, st.Degraded)
	assert.Equal(t, "https://portal.example.com/login", st.URL)
	assert.False(t, st.IsLogin, "degraded states carry no classification")
	assert.Empty(t, page.Screenshots)
}

func TestEvaluateWithoutScreenshotDir(t *testing.T) {
	page := &agenttest.Page{
		Snapshots: []probe.Snapshot{{URL: "https://portal.example.com/x"}},
	}

	ev := NewEvaluator(zap.NewNop(), "")
	ev.Evaluate(context.Background(), page, "check")
	assert.Empty(t, page.Screenshots)
}
