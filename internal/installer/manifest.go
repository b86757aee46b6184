package installer

import "github.com/ZebulonRouseFrantzich/maaup/internal/version"

// Manifest describes one release.
type Manifest interface {
	// Version returns the release version.
	Version() version.Version

	// Asset returns the downloadable asset for a platform identifier such as
	// "x86_64-unknown-linux-gnu". It performs no I/O. A missing asset is a
	// normal outcome.
	Asset(platform string) (Asset, bool)
}

// Asset is one downloadable archive of a release.
type Asset interface {
	// Name is the archive file name. It is stable for the whole run.
	Name() string

	// URL is the fully resolved download URL.
	URL() string

	// Verifier returns a fresh verifier bound to the asset's expected size,
	// digest or signature. Malformed metadata is a KindVerifier error.
	Verifier() (Verifier, error)
}

// MirrorOptions lists alternative download locations for an asset.
type MirrorOptions struct {
	URLs []string
	// MaxBytes bounds the bytes read from each mirror during a speed test.
	MaxBytes int64
}

// Mirrored is implemented by assets that can be fetched from mirrors.
type Mirrored interface {
	Mirrors() MirrorOptions
}

// AssetNamer is implemented by manifests that synthesize the expected asset
// name from the platform. The name is reported when no asset matches.
type AssetNamer interface {
	AssetName(platform string) (string, error)
}

// DecodeFunc turns raw manifest bytes into a Manifest.
type DecodeFunc func(data []byte) (Manifest, error)
