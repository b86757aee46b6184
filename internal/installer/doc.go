// Package installer downloads, verifies and installs release archives of
// maa-cli and MaaCore.
//
// # Security Model
//
// Archives are never extracted before verification. Every asset carries:
//   - its exact size
//   - a SHA-256 digest (tag-addressed releases)
//   - optionally an OpenPGP detached signature checked against a local keyring
//
// A download that fails verification is kept next to the cache as
// <name>.rejected and the run stops.
//
// # Usage
//
//	inst, err := installer.New(installer.Config{
//	    ManifestURL:  "https://example.com/stable.json",
//	    Decode:       release.DecodeCLIManifest(downloadURL, keyring),
//	    Platform:     "x86_64-unknown-linux-gnu",
//	    Mapper:       release.ExecutableMapper("maa", stagedExe),
//	    CacheDir:     cacheDir,
//	    ManifestName: "cli-manifest-stable.json",
//	}, installer.WithCurrentVersion(current))
//	if err != nil {
//	    return err
//	}
//	res, err := inst.Run(ctx)
//
// # Architecture
//
// The package is organized into several components:
//   - Verifier: size, digest, signature and composite checks
//   - Manifest and Asset: what to fetch, implemented by release adapters
//   - Downloader: HTTP transfers, manifest cache and mirror selection
//   - Mapper: where each archive entry goes
//   - Installer: the update protocol tying them together
package installer
