package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/inconshreveable/go-update"
)

// Package level seams for tests.
var (
	osExecutable = os.Executable
	evalSymlinks = filepath.EvalSymlinks
)

// ReplaceExecutable moves the file at src over target, which may be the
// running program. An empty target means the current executable.
//
// The new file is staged next to target and renamed into place, keeping
// target's mode. On Windows the running binary cannot be removed; it is
// renamed aside and hidden until the next start.
func ReplaceExecutable(src, target string) error {
	if target == "" {
		exe, err := osExecutable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		target = exe
	}
	target, err := evalSymlinks(target)
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	mode := os.FileMode(0755)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open new executable: %w", err)
	}
	defer f.Close()

	err = update.Apply(f, update.Options{
		TargetPath: target,
		TargetMode: mode,
	})
	if err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("replace executable: %w (rollback failed: %v)", err, rerr)
		}
		return fmt.Errorf("replace executable: %w", err)
	}
	return nil
}
