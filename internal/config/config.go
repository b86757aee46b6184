package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Channel selects a release track.
type Channel string

const (
	ChannelStable Channel = "stable"
	ChannelBeta   Channel = "beta"
	ChannelAlpha  Channel = "alpha"
)

// ErrInvalidChannel is returned for a channel other than stable, beta or alpha.
var ErrInvalidChannel = errors.New("invalid channel")

// ParseChannel validates s as a channel name.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelStable, ChannelBeta, ChannelAlpha:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q (want stable, beta or alpha)", ErrInvalidChannel, s)
}

// ManifestURL returns the manifest address for channel under apiURL.
func ManifestURL(apiURL string, channel Channel) string {
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return apiURL + string(channel) + ".json"
}

// Config is the merged maaup configuration.
type Config struct {
	CLI       CLIConfig       `mapstructure:"cli"`
	Core      CoreConfig      `mapstructure:"core"`
	Resource  ResourceConfig  `mapstructure:"resource"`
	HotUpdate HotUpdateConfig `mapstructure:"hot_update"`
	Network   NetworkConfig   `mapstructure:"network"`
}

// CLIConfig controls self update.
type CLIConfig struct {
	Channel       string        `mapstructure:"channel"`
	APIURL        string        `mapstructure:"api_url"`
	DownloadURL   string        `mapstructure:"download_url"`
	Components    CLIComponents `mapstructure:"components"`
	CheckInterval int           `mapstructure:"check_interval"` // seconds
	Keyring       string        `mapstructure:"keyring"`        // OpenPGP public keyring file or http(s) URL
}

// CLIComponents selects the parts of a CLI release that are installed.
type CLIComponents struct {
	Binary bool `mapstructure:"binary"`
}

// CoreConfig controls MaaCore install and update.
type CoreConfig struct {
	Channel       string         `mapstructure:"channel"`
	TestTime      int            `mapstructure:"test_time"` // seconds, 0 disables mirror tests
	APIURL        string         `mapstructure:"api_url"`
	Components    CoreComponents `mapstructure:"components"`
	CheckInterval int            `mapstructure:"check_interval"`
}

// CoreComponents selects the parts of a MaaCore archive that are installed.
type CoreComponents struct {
	Library  bool `mapstructure:"library"`
	Resource bool `mapstructure:"resource"`
}

// ResourceConfig controls the resource repository.
type ResourceConfig struct {
	AutoUpdate          bool         `mapstructure:"auto_update"`
	WarnOnUpdateFailure bool         `mapstructure:"warn_on_update_failure"`
	Remote              RemoteConfig `mapstructure:"remote"`
}

// RemoteConfig locates the resource repository.
type RemoteConfig struct {
	URL    string `mapstructure:"url"`
	Branch string `mapstructure:"branch"`
	SSHKey string `mapstructure:"ssh_key"`
}

// HotUpdateConfig controls the hot-update resource files.
type HotUpdateConfig struct {
	APIURL        string `mapstructure:"api_url"`
	CheckInterval int    `mapstructure:"check_interval"`
}

// NetworkConfig tunes the downloader.
type NetworkConfig struct {
	ConnectTimeout  int `mapstructure:"connect_timeout"`  // seconds
	TransferTimeout int `mapstructure:"transfer_timeout"` // seconds
	RateLimit       int `mapstructure:"rate_limit"`       // bytes per second, 0 is unlimited
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CLI: CLIConfig{
			Channel:     string(ChannelStable),
			APIURL:      "https://github.com/MaaAssistantArknights/maa-cli/raw/version/",
			DownloadURL: "https://github.com/MaaAssistantArknights/maa-cli/releases/download/",
			Components:  CLIComponents{Binary: true},
		},
		Core: CoreConfig{
			Channel:    string(ChannelStable),
			TestTime:   3,
			APIURL:     "https://ota.maa.plus/MaaAssistantArknights/api/version/",
			Components: CoreComponents{Library: true, Resource: true},
		},
		Resource: ResourceConfig{
			Remote: RemoteConfig{
				URL: "https://github.com/MaaAssistantArknights/MaaResource.git",
			},
		},
		HotUpdate: HotUpdateConfig{
			APIURL:        "https://api.maa.plus/MaaAssistantArknights/api",
			CheckInterval: 600,
		},
		Network: NetworkConfig{
			ConnectTimeout:  10,
			TransferTimeout: 1800,
		},
	}
}

// Validate checks channels, URLs and numeric ranges. Channel names are
// normalized in place.
func (c *Config) Validate() error {
	cli, err := ParseChannel(c.CLI.Channel)
	if err != nil {
		return fmt.Errorf("cli.channel: %w", err)
	}
	c.CLI.Channel = string(cli)

	core, err := ParseChannel(c.Core.Channel)
	if err != nil {
		return fmt.Errorf("core.channel: %w", err)
	}
	c.Core.Channel = string(core)

	urls := []struct {
		key, value string
	}{
		{"cli.api_url", c.CLI.APIURL},
		{"cli.download_url", c.CLI.DownloadURL},
		{"core.api_url", c.Core.APIURL},
		{"hot_update.api_url", c.HotUpdate.APIURL},
	}
	for _, u := range urls {
		if err := validateURL(u.value); err != nil {
			return fmt.Errorf("%s: %w", u.key, err)
		}
	}

	ints := []struct {
		key   string
		value int
	}{
		{"cli.check_interval", c.CLI.CheckInterval},
		{"core.check_interval", c.Core.CheckInterval},
		{"core.test_time", c.Core.TestTime},
		{"hot_update.check_interval", c.HotUpdate.CheckInterval},
		{"network.connect_timeout", c.Network.ConnectTimeout},
		{"network.transfer_timeout", c.Network.TransferTimeout},
		{"network.rate_limit", c.Network.RateLimit},
	}
	for _, n := range ints {
		if n.value < 0 {
			return fmt.Errorf("%s: must not be negative, got %d", n.key, n.value)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// CLIManifestURL returns the self-update manifest address.
func (c *Config) CLIManifestURL() string {
	return ManifestURL(c.CLI.APIURL, Channel(c.CLI.Channel))
}

// CoreManifestURL returns the MaaCore manifest address.
func (c *Config) CoreManifestURL() string {
	return ManifestURL(c.Core.APIURL, Channel(c.Core.Channel))
}

// CLIManifestCache is the cache file name of the maa-cli manifest.
func (c *Config) CLIManifestCache() string {
	return "cli-manifest-" + c.CLI.Channel + ".json"
}

// CoreManifestCache is the cache file name of the MaaCore manifest.
func (c *Config) CoreManifestCache() string {
	return "core-manifest-" + c.Core.Channel + ".json"
}

// Seconds converts a seconds count from the config to a Duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
