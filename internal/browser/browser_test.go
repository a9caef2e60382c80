// internal/browser/browser_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/finagg/portalagent/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCombineContextCancelsWithPrimary(t *testing.T) {
	primary, cancelPrimary := context.WithCancel(context.Background())
	secondary := context.Background()

	combined, cancel := CombineContext(primary, secondary)
	defer cancel()

	cancelPrimary()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context did not follow the primary cancellation")
	}
}

func TestCombineContextCancelsWithSecondary(t *testing.T) {
	primary := context.Background()
	secondary, cancelSecondary := context.WithCancel(context.Background())

	combined, cancel := CombineContext(primary, secondary)
	defer cancel()

	cancelSecondary()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context did not follow the secondary cancellation")
	}
}

func TestCombineContextCancelReleasesGoroutine(t *testing.T) {
	// The goleak TestMain catches the watcher goroutine if cancel leaks it.
	_, cancel := CombineContext(context.Background(), context.Background())
	cancel()
}

func TestBuildAllocatorOptions(t *testing.T) {
	m := &Manager{
		logger: zap.NewNop(),
		cfg: config.BrowserConfig{
			Headless:  true,
			UserAgent: "test-agent",
			Args:      []string{"--window-size=1920,1080", "--mute-audio"},
		},
	}

	opts := m.buildAllocatorOptions()
	require.NotEmpty(t, opts)
	// Defaults plus our overrides plus the two custom args.
	assert.Greater(t, len(opts), 10)
}

func TestShutdownWithoutLaunchIsSafe(t *testing.T) {
	m := &Manager{logger: zap.NewNop()}
	m.Shutdown()
}
