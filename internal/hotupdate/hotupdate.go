// Package hotupdate refreshes the resource files MaaCore reads between
// releases and keeps the resource repository in sync.
package hotupdate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
)

// Files lists the hot-update files, relative to the API root and to the
// hot-update directory.
var Files = []string{
	"gui/StageActivityV2.json",
	"resource/tasks.json",
	"resource/platform_diff/iOS/resource/tasks.json",
	"resource/global/YoStarEN/resource/tasks.json",
	"resource/global/YoStarJP/resource/tasks.json",
	"resource/global/YoStarKR/resource/tasks.json",
	"resource/global/txwy/resource/tasks.json",
}

// DefaultConcurrency is the number of files fetched at once.
const DefaultConcurrency = 4

// Updater downloads the hot-update files with ETag caching.
type Updater struct {
	downloader  *installer.Downloader
	baseURL     string
	dir         string
	interval    time.Duration
	concurrency int
	files       []string
	logger      installer.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithConcurrency bounds parallel downloads. Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(u *Updater) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithFiles replaces the default file list.
func WithFiles(files []string) Option {
	return func(u *Updater) { u.files = files }
}

// WithLogger sets the logger.
func WithLogger(l installer.Logger) Option {
	return func(u *Updater) { u.logger = l }
}

// New creates an Updater that mirrors baseURL into dir. Files younger than
// interval are not checked again.
func New(d *installer.Downloader, baseURL, dir string, interval time.Duration, opts ...Option) *Updater {
	u := &Updater{
		downloader:  d,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		dir:         dir,
		interval:    interval,
		concurrency: DefaultConcurrency,
		files:       Files,
		logger:      installer.NopLogger(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Path returns where file is stored locally.
func (u *Updater) Path(file string) string {
	return filepath.Join(u.dir, filepath.FromSlash(file))
}

// URL returns where file is fetched from.
func (u *Updater) URL(file string) string {
	return u.baseURL + "/" + strings.TrimPrefix(file, "/")
}

// Update fetches every file. The first failure cancels the rest and is
// returned; files already written stay in place.
func (u *Updater) Update(ctx context.Context) error {
	u.logger.Info("updating hot-update files", "count", len(u.files), "dir", u.dir)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, file := range u.files {
		g.Go(func() error {
			data, err := installer.FetchCached(gctx, u.downloader, u.URL(file), u.Path(file), u.interval)
			if err != nil {
				return fmt.Errorf("hot update %s: %w", file, err)
			}
			u.logger.Debug("hot-update file ready", "file", file, "bytes", len(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	u.logger.Info("hot update completed")
	return nil
}
