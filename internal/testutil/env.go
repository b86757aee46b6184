// Package testutil provides utilities for testing maaup in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Dirs are the isolated base directories of a test.
type Dirs struct {
	Config string
	Data   string
	Cache  string
}

// SetupTestEnv points every maaup directory at a fresh temp directory so
// tests never touch a real installation. The XDG variables are pointed there
// too, so a test that clears a MAA_*_DIR variable stays isolated.
//
// Cleanup is handled by t.TempDir.
func SetupTestEnv(t *testing.T) Dirs {
	t.Helper()

	tmpDir := t.TempDir()
	d := Dirs{
		Config: filepath.Join(tmpDir, "config"),
		Data:   filepath.Join(tmpDir, "data"),
		Cache:  filepath.Join(tmpDir, "cache"),
	}

	t.Setenv("MAA_CONFIG_DIR", d.Config)
	t.Setenv("MAA_DATA_DIR", d.Data)
	t.Setenv("MAA_CACHE_DIR", d.Cache)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg-config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "xdg-data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmpDir, "xdg-cache"))

	for _, dir := range []string{d.Config, d.Data, d.Cache} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return d
}
