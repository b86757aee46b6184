package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// StaleLockThreshold is the age after which a lock file is assumed to be
// left over from a crashed run and is taken over.
const StaleLockThreshold = 10 * time.Minute

// ErrLockExists means another update of the same component is running.
var ErrLockExists = errors.New("update lock exists: another update may be in progress")

// Lock serializes updates of one component across processes. It is a file
// created exclusively in the state directory and removed on release.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the lock name in dir without waiting.
func AcquireLock(ctx context.Context, dir, name string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, ioError("create lock directory", err)
	}
	path := filepath.Join(dir, name+".lock")

	tookOver := false
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			l := &Lock{path: path, file: f}
			if err := l.stamp(); err != nil {
				l.Release()
				return nil, err
			}
			return l, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, ioError("create lock file", err)
		}
		if tookOver || !lockExpired(path) {
			return nil, fmt.Errorf("%w (%s)", ErrLockExists, path)
		}
		os.Remove(path)
		tookOver = true
	}
}

// stamp records the owner so a stuck lock can be traced to its process.
func (l *Lock) stamp() error {
	owner := "pid " + strconv.Itoa(os.Getpid()) + "\nstarted " + time.Now().UTC().Format(time.RFC3339) + "\n"
	if _, err := l.file.WriteString(owner); err != nil {
		return ioError("write lock file", err)
	}
	return nil
}

// Release removes the lock. Calling it again is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	l.file.Close()
	l.file = nil
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError("remove lock file", err)
	}
	return nil
}

func lockExpired(path string) bool {
	info, err := os.Stat(path)
	return err == nil && time.Since(info.ModTime()) > StaleLockThreshold
}
