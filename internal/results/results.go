// internal/results/results.go

// Package results persists run artifacts: a per-run output directory and
// the visits manifest written at the end of a harvest.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/finagg/portalagent/internal/agent/capture"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manifest is the top-level record of one harvest run.
type Manifest struct {
	RunID        string                `json:"runId"`
	PortalURL    string                `json:"portalUrl"`
	StartedAt    time.Time             `json:"startedAt"`
	FinishedAt   time.Time             `json:"finishedAt"`
	LoginSuccess bool                  `json:"loginSuccess"`
	Visits       []capture.VisitResult `json:"visits"`
}

// NewRunDir creates and returns a fresh run-scoped directory under base,
// named by a new run id.
func NewRunDir(base string) (dir string, runID string, err error) {
	runID = uuid.NewString()
	dir = filepath.Join(base, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating run directory %s: %w", dir, err)
	}
	return dir, runID, nil
}

// WriteManifest serializes the manifest into dir under filename.
func WriteManifest(dir, filename string, m Manifest) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing manifest: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return path, nil
}
