// Package dirs resolves the directories maaup reads and writes.
//
// Each base directory is chosen in this order: the MAA_*_DIR variable, the
// matching XDG_*_HOME variable joined with "maa", then the platform default.
package dirs

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under every base directory.
const AppName = "maa"

// Environment variables that override the base directories.
const (
	EnvConfigDir = "MAA_CONFIG_DIR"
	EnvDataDir   = "MAA_DATA_DIR"
	EnvCacheDir  = "MAA_CACHE_DIR"
)

// Dirs holds the resolved base directories.
type Dirs struct {
	Config string
	Data   string
	Cache  string
}

// Resolve reads the environment and returns the directories.
func Resolve() (*Dirs, error) {
	config, err := resolve(EnvConfigDir, "XDG_CONFIG_HOME", defaultConfigBase)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	data, err := resolve(EnvDataDir, "XDG_DATA_HOME", defaultDataBase)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	cache, err := resolve(EnvCacheDir, "XDG_CACHE_HOME", defaultCacheBase)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	return &Dirs{Config: config, Data: data, Cache: cache}, nil
}

// Library is where MaaCore shared libraries are installed.
func (d *Dirs) Library() string { return filepath.Join(d.Data, "lib") }

// Resource is where MaaCore resources are installed.
func (d *Dirs) Resource() string { return filepath.Join(d.Data, "resource") }

// ResourceRepo is the local clone of the resource repository.
func (d *Dirs) ResourceRepo() string { return filepath.Join(d.Data, "MaaResource") }

// HotUpdate is where hot-update resource files are cached.
func (d *Dirs) HotUpdate() string { return filepath.Join(d.Cache, "hot-update") }

// State holds install receipts and update locks.
func (d *Dirs) State() string { return filepath.Join(d.Data, "state") }

// Lookup returns a directory by name: config, data, cache, library,
// resource, resource-repo, hot-update or state.
func (d *Dirs) Lookup(name string) (string, bool) {
	switch name {
	case "config":
		return d.Config, true
	case "data":
		return d.Data, true
	case "cache":
		return d.Cache, true
	case "library", "lib":
		return d.Library(), true
	case "resource":
		return d.Resource(), true
	case "resource-repo":
		return d.ResourceRepo(), true
	case "hot-update":
		return d.HotUpdate(), true
	case "state":
		return d.State(), true
	}
	return "", false
}

// Ensure creates dir if it does not exist and returns it.
func Ensure(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return dir, nil
}

func resolve(override, xdg string, fallback func() (string, error)) (string, error) {
	if dir := os.Getenv(override); dir != "" {
		return absolute(dir)
	}
	if dir := os.Getenv(xdg); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, AppName), nil
	}
	base, err := fallback()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

func absolute(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	return filepath.Abs(dir)
}

// homeDir joins elem onto the user's home directory.
func homeDir(elem ...string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}

// The fallbacks below never go through os.UserConfigDir or os.UserCacheDir
// on Unix: those fail on the relative XDG values resolve has just skipped.

func defaultConfigBase() (string, error) {
	if runtime.GOOS == "windows" {
		return os.UserConfigDir()
	}
	// On macOS configs follow XDG as well; Application Support is for data.
	return homeDir(".config")
}

func defaultCacheBase() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return os.UserCacheDir()
	case "darwin":
		return homeDir("Library", "Caches")
	default:
		return homeDir(".cache")
	}
}

func defaultDataBase() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		return os.UserConfigDir()
	case "darwin":
		return homeDir("Library", "Application Support")
	default:
		return homeDir(".local", "share")
	}
}
