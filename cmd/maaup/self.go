package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/maaup/internal/config"
	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
	"github.com/ZebulonRouseFrantzich/maaup/internal/receipt"
	"github.com/ZebulonRouseFrantzich/maaup/internal/release"
	"github.com/ZebulonRouseFrantzich/maaup/internal/version"
)

// executablePath is the file self update replaces. Empty means the running
// executable.
var executablePath = ""

type selfUpdateOptions struct {
	channel     string
	apiURL      string
	downloadURL string
}

func newSelfCmd(a *app) *cobra.Command {
	self := &cobra.Command{
		Use:   "self",
		Short: "Manage the maa-cli executable",
	}

	var opts selfUpdateOptions
	update := &cobra.Command{
		Use:   "update",
		Short: "Update the maa-cli executable to the latest release",
		Long: `Download the latest maa-cli release for this platform, verify its size,
SHA-256 digest and, when a keyring is configured, its OpenPGP signature,
then replace the running executable.

Examples:
  maaup self update
  maaup self update --channel beta`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSelfUpdate(cmd.Context(), opts)
		},
	}
	update.Flags().StringVar(&opts.channel, "channel", "", "release channel: stable, beta or alpha")
	update.Flags().StringVar(&opts.apiURL, "api-url", "", "base URL of the version manifests")
	update.Flags().StringVar(&opts.downloadURL, "download-url", "", "base URL of the release downloads")

	self.AddCommand(update)
	return self
}

func (a *app) runSelfUpdate(ctx context.Context, opts selfUpdateOptions) error {
	if err := a.setup(ctx); err != nil {
		return err
	}

	c := &a.cfg.CLI
	if opts.channel != "" {
		c.Channel = opts.channel
	}
	if opts.apiURL != "" {
		c.APIURL = opts.apiURL
	}
	if opts.downloadURL != "" {
		c.DownloadURL = opts.downloadURL
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if !c.Components.Binary {
		a.logger.Info("binary component is disabled, nothing to update")
		return nil
	}

	current, err := version.Parse(Version)
	if err != nil {
		a.logger.Warn("running an unreleased build, installing the latest release", "version", Version)
	}

	triple, err := a.triple()
	if err != nil {
		return err
	}

	downloader := a.downloader()
	var keyring openpgp.KeyRing
	if c.Keyring != "" {
		entities, err := a.loadKeyring(ctx, downloader, c.Keyring)
		if err != nil {
			return err
		}
		keyring = entities
	}

	unlock, err := a.lock(ctx, string(receipt.ComponentCLI))
	if err != nil {
		return err
	}
	defer unlock()

	exe := a.info.ExecutableName("maa")
	staged := filepath.Join(a.dirs.Cache, "maa-cli", exe)
	target := executablePath

	inst, err := installer.New(installer.Config{
		ManifestURL:  a.cfg.CLIManifestURL(),
		Decode:       release.DecodeCLIManifest(c.DownloadURL, keyring),
		Platform:     triple,
		Mapper:       release.ExecutableMapper(exe, staged),
		CacheDir:     a.dirs.Cache,
		ManifestName: a.cfg.CLIManifestCache(),
	},
		installer.WithCurrentVersion(current),
		installer.WithCheckInterval(config.Seconds(c.CheckInterval)),
		installer.WithDownloader(downloader),
		installer.WithLogger(a.logger),
		installer.WithPreInstallHook(func(ctx context.Context, res *installer.Result) error {
			if len(res.Staged) == 0 {
				return fmt.Errorf("%s contains no %s executable", res.Asset, exe)
			}
			return nil
		}),
		installer.WithPostInstallHook(func(ctx context.Context, res *installer.Result) error {
			defer os.Remove(staged)
			return installer.ReplaceExecutable(staged, target)
		}),
	)
	if err != nil {
		return err
	}

	res, err := inst.Run(ctx)
	installed := target
	if installed == "" {
		installed, _ = os.Executable()
	}
	a.saveReceipt(receipt.ComponentCLI, c.Channel, res, []string{installed}, err)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "maa-cli %s\n", res)
	return nil
}

// loadKeyring reads the configured keyring from a file or an http(s) URL.
func (a *app) loadKeyring(ctx context.Context, d *installer.Downloader, ref string) (openpgp.EntityList, error) {
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		a.logger.Debug("fetching keyring", "url", ref)
		return installer.FetchKeyring(ctx, d, ref)
	}
	return installer.LoadKeyring(ref)
}
