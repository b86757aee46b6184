package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/maaup/internal/config"
	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
	"github.com/ZebulonRouseFrantzich/maaup/internal/receipt"
	"github.com/ZebulonRouseFrantzich/maaup/internal/release"
	"github.com/ZebulonRouseFrantzich/maaup/internal/version"
)

// ErrNotInstalled means MaaCore has no install receipt, so maaup did not
// install it and will not update it.
var ErrNotInstalled = errors.New("MaaCore is not installed by maaup, run 'maaup core install' first")

type coreOptions struct {
	force      bool
	channel    string
	apiURL     string
	testTime   int
	noResource bool
	noLibrary  bool
}

func newCoreCmd(a *app) *cobra.Command {
	core := &cobra.Command{
		Use:   "core",
		Short: "Install and update MaaCore",
	}

	var installOpts, updateOpts coreOptions
	install := &cobra.Command{
		Use:   "install",
		Short: "Install MaaCore and its resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCore(cmd, installOpts, true)
		},
	}
	addCoreFlags(install, &installOpts)
	install.Flags().BoolVar(&installOpts.force, "force", false, "reinstall even when MaaCore is already present")

	update := &cobra.Command{
		Use:   "update",
		Short: "Update MaaCore and its resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCore(cmd, updateOpts, false)
		},
	}
	addCoreFlags(update, &updateOpts)

	core.AddCommand(install, update)
	return core
}

func addCoreFlags(cmd *cobra.Command, opts *coreOptions) {
	cmd.Flags().StringVar(&opts.channel, "channel", "", "release channel: stable, beta or alpha")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "base URL of the version manifests")
	cmd.Flags().IntVar(&opts.testTime, "test-time", 0, "seconds to speed test each mirror, 0 disables mirrors")
	cmd.Flags().BoolVar(&opts.noResource, "no-resource", false, "do not install resources")
	cmd.Flags().BoolVar(&opts.noLibrary, "no-library", false, "do not install shared libraries")
}

func (a *app) runCore(cmd *cobra.Command, opts coreOptions, install bool) error {
	ctx := cmd.Context()
	if err := a.setup(ctx); err != nil {
		return err
	}

	c := &a.cfg.Core
	if opts.channel != "" {
		c.Channel = opts.channel
	}
	if opts.apiURL != "" {
		c.APIURL = opts.apiURL
	}
	if cmd.Flags().Changed("test-time") {
		c.TestTime = opts.testTime
	}
	if opts.noResource {
		c.Components.Resource = false
	}
	if opts.noLibrary {
		c.Components.Library = false
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	comps := release.CoreComponents{Library: c.Components.Library, Resource: c.Components.Resource}
	if !comps.Library && !comps.Resource {
		return errors.New("no MaaCore component selected")
	}

	triple, err := a.triple()
	if err != nil {
		return err
	}

	unlock, err := a.lock(ctx, string(receipt.ComponentCore))
	if err != nil {
		return err
	}
	defer unlock()

	current, err := a.installedCore(install, opts.force)
	if err != nil {
		return err
	}

	inst, err := installer.New(installer.Config{
		ManifestURL:  a.cfg.CoreManifestURL(),
		Decode:       release.DecodeCoreManifest,
		Platform:     triple,
		Mapper:       release.CoreMapper(a.info, a.dirs.Library(), a.dirs.Resource(), comps),
		CacheDir:     a.dirs.Cache,
		ManifestName: a.cfg.CoreManifestCache(),
	},
		installer.WithCurrentVersion(current),
		installer.WithCheckInterval(config.Seconds(c.CheckInterval)),
		installer.WithTestDuration(config.Seconds(c.TestTime)),
		installer.WithDownloader(a.downloader()),
		installer.WithLogger(a.logger),
		installer.WithPreInstallHook(func(ctx context.Context, res *installer.Result) error {
			return a.cleanCore(comps)
		}),
		installer.WithPostInstallHook(func(ctx context.Context, res *installer.Result) error {
			_, err := a.resourceSync().Run(ctx, true)
			return err
		}),
	)
	if err != nil {
		return err
	}

	res, err := inst.Run(ctx)
	if res != nil {
		a.saveReceipt(receipt.ComponentCore, c.Channel, res, res.Files, err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "MaaCore %s\n", res)
	return nil
}

// installedCore returns the version to compare against. Update needs a
// receipt. Install refuses to replace an existing installation unless
// forced, and then installs unconditionally.
func (a *app) installedCore(install, force bool) (version.Version, error) {
	prev, err := receipt.Load(a.dirs.State(), receipt.ComponentCore)
	switch {
	case errors.Is(err, receipt.ErrNotFound):
		if !install {
			return version.Version{}, ErrNotInstalled
		}
		if !force && dirHasEntries(a.dirs.Library()) {
			return version.Version{}, fmt.Errorf("found a MaaCore library in %s that maaup did not install, use --force to replace it", a.dirs.Library())
		}
		return version.Version{}, nil
	case err != nil:
		return version.Version{}, err
	case install && !force:
		return version.Version{}, fmt.Errorf("MaaCore %s is already installed, run 'maaup core update' or use --force", prev.Version)
	case install:
		return version.Version{}, nil
	}

	v, err := prev.InstalledVersion()
	if err != nil {
		return version.Version{}, fmt.Errorf("read installed MaaCore version: %w", err)
	}
	return v, nil
}

// cleanCore removes the previous installation of the selected components
// so files dropped from a release do not linger.
func (a *app) cleanCore(comps release.CoreComponents) error {
	if comps.Library {
		if err := os.RemoveAll(a.dirs.Library()); err != nil {
			return fmt.Errorf("remove old libraries: %w", err)
		}
	}
	if comps.Resource {
		if err := os.RemoveAll(a.dirs.Resource()); err != nil {
			return fmt.Errorf("remove old resources: %w", err)
		}
	}
	return nil
}

func dirHasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
