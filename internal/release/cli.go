// Package release adapts the maa-cli and MaaCore release manifests to the
// installer's Manifest and Asset interfaces.
package release

import (
	"path"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
	"github.com/ZebulonRouseFrantzich/maaup/internal/version"
)

// universalDarwin is the fallback key for macOS builds.
const universalDarwin = "universal-apple-darwin"

// CLIAssetInfo is one entry of a tag-addressed manifest.
type CLIAssetInfo struct {
	Name      string `json:"name"`
	Size      uint64 `json:"size"`
	SHA256Sum string `json:"sha256sum"`
	// Signature is an optional armored OpenPGP detached signature.
	Signature string `json:"signature,omitempty"`
}

// CLIDetails is the payload of the maa-cli manifest.
type CLIDetails struct {
	Tag    string                  `json:"tag"`
	Commit string                  `json:"commit"`
	Assets map[string]CLIAssetInfo `json:"assets"`
}

// CLIManifest is a tag-addressed manifest: assets are looked up by platform
// and downloaded from {base}/{tag}/{name}.
type CLIManifest struct {
	*version.Manifest[CLIDetails]
	baseURL string
	keyring openpgp.KeyRing
}

// ParseCLIManifest decodes a maa-cli manifest. When keyring is not nil every
// asset must carry a signature made by one of its keys. An empty
// EntityList counts as no keyring.
func ParseCLIManifest(data []byte, baseURL string, keyring openpgp.KeyRing) (*CLIManifest, error) {
	m, err := version.ParseManifest[CLIDetails](data)
	if err != nil {
		return nil, err
	}
	if list, ok := keyring.(openpgp.EntityList); ok && len(list) == 0 {
		keyring = nil
	}
	return &CLIManifest{Manifest: m, baseURL: baseURL, keyring: keyring}, nil
}

// DecodeCLIManifest returns an installer.DecodeFunc for ParseCLIManifest.
func DecodeCLIManifest(baseURL string, keyring openpgp.KeyRing) installer.DecodeFunc {
	return func(data []byte) (installer.Manifest, error) {
		return ParseCLIManifest(data, baseURL, keyring)
	}
}

// Asset implements installer.Manifest. macOS platforms fall back to the
// universal build.
func (m *CLIManifest) Asset(platform string) (installer.Asset, bool) {
	details := m.Details()
	info, ok := details.Assets[platform]
	if !ok && strings.HasSuffix(platform, "-apple-darwin") {
		info, ok = details.Assets[universalDarwin]
	}
	if !ok {
		return nil, false
	}
	return &cliAsset{
		info:    info,
		url:     joinURL(m.baseURL, details.Tag, info.Name),
		keyring: m.keyring,
	}, true
}

type cliAsset struct {
	info    CLIAssetInfo
	url     string
	keyring openpgp.KeyRing
}

func (a *cliAsset) Name() string { return a.info.Name }
func (a *cliAsset) URL() string  { return a.url }

// Verifier checks size and SHA-256, and the signature when a keyring is set.
func (a *cliAsset) Verifier() (installer.Verifier, error) {
	digest, err := installer.NewSHA256Verifier(a.info.SHA256Sum)
	if err != nil {
		return nil, err
	}
	verifiers := []installer.Verifier{installer.NewSizeVerifier(a.info.Size), digest}

	if a.keyring != nil {
		if a.info.Signature == "" {
			return nil, &installer.Error{Kind: installer.KindVerifier, Desc: "asset " + a.info.Name + " has no signature"}
		}
		sig, err := installer.NewSignatureVerifier(a.keyring, []byte(a.info.Signature))
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, sig)
	}

	return installer.All(verifiers...), nil
}

// joinURL joins parts with exactly one slash between them.
func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		out += "/" + strings.Trim(p, "/")
	}
	return out
}

// ExecutableMapper maps the archive entry whose base name is name to dest
// and skips everything else.
func ExecutableMapper(name, dest string) installer.Mapper {
	return func(entry string) (string, bool) {
		if path.Base(entry) != name {
			return "", false
		}
		return dest, true
	}
}
