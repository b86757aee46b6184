package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ZebulonRouseFrantzich/maaup/internal/version"
)

// Outcome is the result of a successful run.
type Outcome int

const (
	// OutcomeUpToDate means the current version is at least the manifest's.
	OutcomeUpToDate Outcome = iota
	// OutcomeInstalled means a new version was installed.
	OutcomeInstalled
)

func (o Outcome) String() string {
	if o == OutcomeInstalled {
		return "installed"
	}
	return "up-to-date"
}

// Hook runs during installation. Hooks receive the run result built so far.
type Hook func(ctx context.Context, res *Result) error

// Config holds the inputs every run needs.
type Config struct {
	ManifestURL  string     // where the manifest is fetched from
	Decode       DecodeFunc // turns manifest bytes into a Manifest
	Platform     string     // platform identifier, e.g. "x86_64-unknown-linux-gnu"
	Mapper       Mapper     // routes archive entries to destinations
	CacheDir     string     // downloads and the manifest cache live here
	ManifestName string     // manifest cache file name inside CacheDir
}

func (c Config) validate() error {
	switch {
	case c.ManifestURL == "":
		return errors.New("ManifestURL is required")
	case c.Decode == nil:
		return errors.New("Decode is required")
	case c.Platform == "":
		return errors.New("Platform is required")
	case c.Mapper == nil:
		return errors.New("Mapper is required")
	case c.CacheDir == "":
		return errors.New("CacheDir is required")
	case c.ManifestName == "":
		return errors.New("ManifestName is required")
	}
	return nil
}

// Result describes a run.
type Result struct {
	RunID    string
	Outcome  Outcome
	Current  version.Version // zero when nothing was installed before
	Version  version.Version // manifest version
	Asset    string          // asset name, empty when up to date
	Archive  string          // verified archive in the cache directory
	Staged   []string        // destinations extracted and about to be installed
	Files    []string        // installed destinations
	Manifest Manifest
}

// Installer drives one component through fetch, compare, resolve,
// download, verify, extract and hooks.
type Installer struct {
	cfg           Config
	current       version.Version
	preInstall    Hook
	postInstall   Hook
	checkInterval time.Duration
	testDuration  time.Duration
	downloader    *Downloader
	logger        Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithCurrentVersion sets the installed version. Runs stop early when it is
// at least the manifest version.
func WithCurrentVersion(v version.Version) Option {
	return func(i *Installer) { i.current = v }
}

// WithPreInstallHook runs h after extraction and before anything is
// written to the destinations. Result.Staged lists what would be written;
// an error aborts the run at the extract step.
func WithPreInstallHook(h Hook) Option {
	return func(i *Installer) { i.preInstall = h }
}

// WithPostInstallHook runs h after the files are in place. Its failure is
// a partial success.
func WithPostInstallHook(h Hook) Option {
	return func(i *Installer) { i.postInstall = h }
}

// WithCheckInterval sets how long a cached manifest stays fresh.
func WithCheckInterval(d time.Duration) Option {
	return func(i *Installer) { i.checkInterval = d }
}

// WithTestDuration sets the per-mirror speed test duration. Zero skips
// mirror selection.
func WithTestDuration(d time.Duration) Option {
	return func(i *Installer) { i.testDuration = d }
}

// WithDownloader sets the downloader.
func WithDownloader(d *Downloader) Option {
	return func(i *Installer) { i.downloader = d }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// New creates an installer.
func New(cfg Config, opts ...Option) (*Installer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	i := &Installer{cfg: cfg, logger: NopLogger()}
	for _, opt := range opts {
		opt(i)
	}
	if i.downloader == nil {
		i.downloader = NewDownloader(WithDownloadLogger(i.logger))
	}
	return i, nil
}

// Run performs one update. It blocks until finished and retries nothing.
//
// On a post-install hook failure both the result and an *Error whose
// Partial method reports true are returned.
func (i *Installer) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.New().String(), Current: i.current}
	log := i.logger

	// Fetch
	manifestPath := filepath.Join(i.cfg.CacheDir, i.cfg.ManifestName)
	data, err := FetchCached(ctx, i.downloader, i.cfg.ManifestURL, manifestPath, i.checkInterval)
	if err != nil {
		return nil, atStep(StepFetch, KindNetwork, err)
	}
	manifest, err := i.cfg.Decode(data)
	if err != nil {
		return nil, &Error{Kind: KindOther, Step: StepFetch, Desc: "decode manifest", Err: err}
	}
	res.Manifest = manifest
	res.Version = manifest.Version()

	// Compare
	if !i.current.IsZero() && i.current.Compare(res.Version) >= 0 {
		log.Info("already up to date", "current", i.current, "latest", res.Version)
		res.Outcome = OutcomeUpToDate
		return res, nil
	}
	log.Info("update available", "current", i.current, "latest", res.Version)

	// Resolve
	asset, ok := manifest.Asset(i.cfg.Platform)
	if !ok {
		desc := i.cfg.Platform
		if n, ok := manifest.(AssetNamer); ok {
			if name, err := n.AssetName(i.cfg.Platform); err == nil {
				desc = fmt.Sprintf("%s (expected %s)", desc, name)
			}
		}
		return nil, &Error{Kind: KindOther, Step: StepResolve, Desc: desc, Err: ErrNoAsset}
	}
	verifier, err := asset.Verifier()
	if err != nil {
		return nil, atStep(StepResolve, KindVerifier, err)
	}
	res.Asset = asset.Name()

	workDir := filepath.Join(i.cfg.CacheDir, ".run-"+res.RunID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, &Error{Kind: KindIO, Step: StepDownload, Desc: "create run directory", Err: err}
	}
	defer os.RemoveAll(workDir)

	// Download and verify
	archive, err := i.fetchAsset(ctx, asset, verifier, workDir)
	if err != nil {
		return nil, err
	}
	res.Archive = archive

	// Extract
	staged, err := extractArchive(archive, filepath.Join(workDir, "stage"), i.cfg.Mapper)
	if err != nil {
		return nil, atStep(StepExtract, KindExtract, err)
	}
	log.Debug("archive extracted", "entries", len(staged))
	for _, f := range staged {
		res.Staged = append(res.Staged, f.dest)
	}

	if i.preInstall != nil {
		if err := i.preInstall(ctx, res); err != nil {
			return nil, &Error{Kind: KindOther, Step: StepExtract, Desc: "pre-install hook", Err: err}
		}
	}

	res.Files, err = commitStaged(staged)
	if err != nil {
		return nil, atStep(StepExtract, KindIO, err)
	}
	res.Outcome = OutcomeInstalled
	log.Info("installed", "version", res.Version, "asset", res.Asset, "files", len(res.Files))

	// Post-install hook
	if i.postInstall != nil {
		if err := i.postInstall(ctx, res); err != nil {
			return res, &Error{Kind: KindOf(err), Step: StepHook, Desc: "post-install hook failed, files are already installed", Err: err}
		}
	}

	return res, nil
}

// fetchAsset returns the path of a verified archive in the cache directory,
// downloading it through workDir when no valid copy is cached.
func (i *Installer) fetchAsset(ctx context.Context, asset Asset, verifier Verifier, workDir string) (string, error) {
	log := i.logger
	cached := filepath.Join(i.cfg.CacheDir, asset.Name())

	if fileExists(cached) {
		err := VerifyFile(verifier, cached)
		if err == nil {
			log.Info("using cached archive", "path", cached)
			return cached, nil
		}
		if KindOf(err) != KindVerify {
			return "", atStep(StepVerify, KindIO, err)
		}
		log.Warn("cached archive is invalid, downloading again", "path", cached, "error", err)
	}

	url := asset.URL()
	if m, ok := asset.(Mirrored); ok && i.testDuration > 0 {
		url = i.downloader.FastestMirror(ctx, url, m.Mirrors(), i.testDuration)
	}

	log.Info("downloading", "asset", asset.Name(), "url", url)
	downloaded := filepath.Join(workDir, asset.Name())
	if err := i.downloader.DownloadToFile(ctx, url, downloaded); err != nil {
		return "", atStep(StepDownload, KindNetwork, err)
	}

	if err := VerifyFile(verifier, downloaded); err != nil {
		if KindOf(err) == KindVerify {
			rejected := cached + ".rejected"
			if rerr := os.Rename(downloaded, rejected); rerr == nil {
				log.Warn("downloaded archive failed verification", "kept", rejected)
			}
		}
		return "", atStep(StepVerify, KindIO, err)
	}

	if err := os.Rename(downloaded, cached); err != nil {
		return "", &Error{Kind: KindIO, Step: StepVerify, Desc: "promote verified archive", Err: err}
	}
	return cached, nil
}

// String renders the result for humans.
func (r *Result) String() string {
	if r.Outcome == OutcomeUpToDate {
		return fmt.Sprintf("up to date (%s)", r.Version)
	}
	return fmt.Sprintf("installed %s from %s", r.Version, r.Asset)
}
