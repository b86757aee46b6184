// Package receipt records what an update installed, with atomic writes so a
// crash never leaves a half-written receipt behind.
package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ZebulonRouseFrantzich/maaup/internal/version"
)

// State represents the outcome recorded by a receipt.
type State string

const (
	// StateCompleted means files and hooks finished.
	StateCompleted State = "completed"
	// StatePartial means files are in place but the post-install hook failed.
	StatePartial State = "partial"
)

// Component names the installed product.
type Component string

const (
	ComponentCLI  Component = "cli"
	ComponentCore Component = "core"
)

// schemaVersion is bumped on incompatible receipt changes.
const schemaVersion = 1

// ErrNotFound means no receipt exists for the component.
var ErrNotFound = errors.New("receipt not found")

// Receipt describes one installation.
type Receipt struct {
	Schema    int       `json:"schema"`
	ID        string    `json:"id"` // run ID of the update that wrote it
	Component Component `json:"component"`
	Version   string    `json:"version"`
	Channel   string    `json:"channel,omitempty"`
	Asset     string    `json:"asset"`
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Files     []string  `json:"files"`
	LastError string    `json:"last_error,omitempty"`
}

// New creates a completed receipt. An empty runID gets a fresh UUID.
func New(component Component, runID string, v version.Version, asset string, files []string) *Receipt {
	if runID == "" {
		runID = uuid.New().String()
	}
	if files == nil {
		files = []string{}
	}
	return &Receipt{
		Schema:    schemaVersion,
		ID:        runID,
		Component: component,
		Version:   v.String(),
		Asset:     asset,
		State:     StateCompleted,
		Timestamp: time.Now().UTC(),
		Files:     files,
	}
}

// MarkPartial records a post-install failure.
func (r *Receipt) MarkPartial(err error) {
	r.State = StatePartial
	if err != nil {
		r.LastError = err.Error()
	}
}

// InstalledVersion parses the recorded version.
func (r *Receipt) InstalledVersion() (version.Version, error) {
	return version.Parse(r.Version)
}

// Path returns the receipt file path for component in dir.
func Path(dir string, component Component) string {
	return filepath.Join(dir, fmt.Sprintf("receipt-%s.json", component))
}

// Save writes the receipt to dir atomically.
// Uses write-then-rename, then syncs the directory.
func (r *Receipt) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create receipt directory: %w", err)
	}

	finalPath := Path(dir, r.Component)
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temporary receipt file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename receipt file: %w", err)
	}

	// Directory sync is not supported everywhere; best effort.
	if df, err := os.Open(dir); err == nil {
		df.Sync()
		df.Close()
	}

	return nil
}

// Load reads the receipt for component from dir.
func Load(dir string, component Component) (*Receipt, error) {
	data, err := os.ReadFile(Path(dir, component))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}
	if r.Schema > schemaVersion {
		return nil, fmt.Errorf("receipt schema %d is newer than supported %d", r.Schema, schemaVersion)
	}
	return &r, nil
}
