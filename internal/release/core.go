package release

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
	"github.com/ZebulonRouseFrantzich/maaup/internal/platform"
	"github.com/ZebulonRouseFrantzich/maaup/internal/version"
)

// CoreAssetInfo is one entry of a mirror-addressed manifest.
type CoreAssetInfo struct {
	Name        string   `json:"name"`
	Size        uint64   `json:"size"`
	DownloadURL string   `json:"browser_download_url"`
	Mirrors     []string `json:"mirrors"`
}

// CoreDetails is the payload of the MaaCore manifest.
type CoreDetails struct {
	Assets []CoreAssetInfo `json:"assets"`
}

// CoreManifest is a mirror-addressed manifest. Assets carry no platform key;
// the expected file name is synthesized and searched for.
type CoreManifest struct {
	*version.Manifest[CoreDetails]
}

// ParseCoreManifest decodes a MaaCore manifest.
func ParseCoreManifest(data []byte) (*CoreManifest, error) {
	m, err := version.ParseManifest[CoreDetails](data)
	if err != nil {
		return nil, err
	}
	return &CoreManifest{Manifest: m}, nil
}

// DecodeCoreManifest is an installer.DecodeFunc for ParseCoreManifest.
func DecodeCoreManifest(data []byte) (installer.Manifest, error) {
	return ParseCoreManifest(data)
}

// CoreAssetName returns the MaaCore archive name for a platform triple.
func CoreAssetName(platform string, v version.Version) (string, error) {
	arch, _, _ := strings.Cut(platform, "-")
	switch {
	case strings.HasSuffix(platform, "-apple-darwin"):
		return fmt.Sprintf("MAA-v%s-macos-runtime-universal.zip", v), nil
	case strings.Contains(platform, "-linux-"):
		switch arch {
		case "x86_64", "aarch64":
			return fmt.Sprintf("MAA-v%s-linux-%s.tar.gz", v, arch), nil
		}
	case strings.Contains(platform, "-windows-"):
		switch arch {
		case "x86_64":
			return fmt.Sprintf("MAA-v%s-win-x64.zip", v), nil
		case "aarch64":
			return fmt.Sprintf("MAA-v%s-win-arm64.zip", v), nil
		}
	}
	return "", fmt.Errorf("no MaaCore build for platform %s", platform)
}

// AssetName implements installer.AssetNamer.
func (m *CoreManifest) AssetName(platform string) (string, error) {
	return CoreAssetName(platform, m.Version())
}

// Asset implements installer.Manifest with a linear search for the
// synthesized name.
func (m *CoreManifest) Asset(platform string) (installer.Asset, bool) {
	name, err := m.AssetName(platform)
	if err != nil {
		return nil, false
	}
	for _, info := range m.Details().Assets {
		if info.Name == name {
			return &coreAsset{info: info}, true
		}
	}
	return nil, false
}

type coreAsset struct {
	info CoreAssetInfo
}

func (a *coreAsset) Name() string { return a.info.Name }
func (a *coreAsset) URL() string  { return a.info.DownloadURL }

// Verifier checks the size only; the core manifest publishes no digest.
func (a *coreAsset) Verifier() (installer.Verifier, error) {
	return installer.NewSizeVerifier(a.info.Size), nil
}

// Mirrors implements installer.Mirrored.
func (a *coreAsset) Mirrors() installer.MirrorOptions {
	return installer.MirrorOptions{
		URLs:     a.info.Mirrors,
		MaxBytes: int64(a.info.Size),
	}
}

// CoreComponents selects which parts of a MaaCore archive are installed.
type CoreComponents struct {
	Library  bool
	Resource bool
}

// CoreMapper routes a MaaCore archive: shared libraries into libraryDir and
// everything under a "resource" directory into resourceDir.
func CoreMapper(info *platform.Info, libraryDir, resourceDir string, c CoreComponents) installer.Mapper {
	return installer.LibraryMapper{
		LibraryDir:     libraryDir,
		ResourceDir:    resourceDir,
		ResourceMarker: "resource",
		Library:        c.Library,
		Resource:       c.Resource,
		LibraryPrefix:  info.LibraryPrefix(),
		LibrarySuffix:  info.LibrarySuffix(),
	}.Map
}
