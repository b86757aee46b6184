package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/maaup/internal/config"
	"github.com/ZebulonRouseFrantzich/maaup/internal/dirs"
	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
	"github.com/ZebulonRouseFrantzich/maaup/internal/platform"
)

// app carries the global flags and everything commands share once the
// configuration is loaded.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	detector platform.Detector

	configPath string
	verbose    bool
	quiet      bool

	cfg    *config.Config
	dirs   *dirs.Dirs
	info   *platform.Info
	logger installer.Logger
}

func newApp(stdout, stderr io.Writer, detector platform.Detector) *app {
	return &app{stdout: stdout, stderr: stderr, detector: detector, logger: installer.NopLogger()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "maaup",
		Short: "Install and update maa-cli, MaaCore and its resources",
		Long: `maaup keeps a MAA installation current.

It updates the maa-cli executable itself, installs and updates MaaCore
libraries and resources from mirrored release archives, refreshes hot-update
resource files and syncs the resource repository.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is <config dir>/maaup.{lua,toml,yaml})")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "only print errors")

	root.AddCommand(newSelfCmd(a))
	root.AddCommand(newCoreCmd(a))
	root.AddCommand(newResourceCmd(a))
	root.AddCommand(newHotUpdateCmd(a))
	root.AddCommand(newDirCmd(a))
	root.AddCommand(newVersionCmd(a))
	return root
}

// setup resolves directories, detects the platform and loads the
// configuration. Commands call it before doing any work.
func (a *app) setup(ctx context.Context) error {
	a.logger = logAdapter{l: newLogger(a.stderr, a.verbose, a.quiet)}

	d, err := dirs.Resolve()
	if err != nil {
		return err
	}
	a.dirs = d

	info, err := a.detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect platform: %w", err)
	}
	a.info = info

	cfg, file, err := config.Load(ctx, config.LoadOptions{
		Path:      a.configPath,
		ConfigDir: d.Config,
		Detector:  a.detector,
	})
	if err != nil {
		return errors.New(config.FormatError(err, a.verbose))
	}
	if file != "" {
		a.logger.Debug("loaded config", "file", file)
	}
	a.cfg = cfg
	return nil
}

// downloader builds a downloader from the network settings.
func (a *app) downloader() *installer.Downloader {
	n := a.cfg.Network
	return installer.NewDownloader(
		installer.WithUserAgent("maaup/"+Version),
		installer.WithConnectTimeout(config.Seconds(n.ConnectTimeout)),
		installer.WithTransferTimeout(config.Seconds(n.TransferTimeout)),
		installer.WithRateLimit(n.RateLimit),
		installer.WithDownloadLogger(a.logger),
	)
}

// lock takes the update lock for name and returns its release function.
func (a *app) lock(ctx context.Context, name string) (func(), error) {
	l, err := installer.AcquireLock(ctx, a.dirs.State(), name)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := l.Release(); err != nil {
			a.logger.Warn("release lock", "name", name, "error", err)
		}
	}, nil
}

// triple returns the detected platform's target triple.
func (a *app) triple() (string, error) {
	t, err := a.info.Triple()
	if err != nil {
		return "", fmt.Errorf("unsupported platform: %w", err)
	}
	return t, nil
}
