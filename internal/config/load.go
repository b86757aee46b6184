package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/maaup/internal/platform"
)

const (
	// FileName is the config file base name, without extension.
	FileName = "maaup"
	// EnvPrefix prefixes environment overrides: cli.channel is MAA_CLI_CHANNEL.
	EnvPrefix = "MAA"
	// MaxFileSize bounds config files.
	MaxFileSize = 10 * 1024 * 1024
)

// extensions lists the supported config formats in lookup order.
var extensions = []string{".lua", ".toml", ".yaml", ".yml"}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path is an explicit config file. It must exist.
	Path string
	// ConfigDir is searched for maaup.{lua,toml,yaml,yml} when Path is empty.
	ConfigDir string
	// Detector provides the platform table for Lua configs. Nil leaves the
	// table out.
	Detector platform.Detector
}

// Load merges defaults, the config file and MAA_ environment variables, in
// increasing precedence. It returns the config and the file used, which is
// empty when only defaults and the environment applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.Path
	if path != "" {
		if !fileExists(path) {
			return nil, "", fmt.Errorf("config file not found: %s", path)
		}
	} else if opts.ConfigDir != "" {
		path = findConfigFile(opts.ConfigDir)
	}

	if path != "" {
		values, err := readFile(ctx, path, opts.Detector)
		if err != nil {
			return nil, "", fmt.Errorf("load %s: %w", path, err)
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, "", fmt.Errorf("merge %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, path, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("cli.channel", d.CLI.Channel)
	v.SetDefault("cli.api_url", d.CLI.APIURL)
	v.SetDefault("cli.download_url", d.CLI.DownloadURL)
	v.SetDefault("cli.components.binary", d.CLI.Components.Binary)
	v.SetDefault("cli.check_interval", d.CLI.CheckInterval)
	v.SetDefault("cli.keyring", d.CLI.Keyring)

	v.SetDefault("core.channel", d.Core.Channel)
	v.SetDefault("core.test_time", d.Core.TestTime)
	v.SetDefault("core.api_url", d.Core.APIURL)
	v.SetDefault("core.components.library", d.Core.Components.Library)
	v.SetDefault("core.components.resource", d.Core.Components.Resource)
	v.SetDefault("core.check_interval", d.Core.CheckInterval)

	v.SetDefault("resource.auto_update", d.Resource.AutoUpdate)
	v.SetDefault("resource.warn_on_update_failure", d.Resource.WarnOnUpdateFailure)
	v.SetDefault("resource.remote.url", d.Resource.Remote.URL)
	v.SetDefault("resource.remote.branch", d.Resource.Remote.Branch)
	v.SetDefault("resource.remote.ssh_key", d.Resource.Remote.SSHKey)

	v.SetDefault("hot_update.api_url", d.HotUpdate.APIURL)
	v.SetDefault("hot_update.check_interval", d.HotUpdate.CheckInterval)

	v.SetDefault("network.connect_timeout", d.Network.ConnectTimeout)
	v.SetDefault("network.transfer_timeout", d.Network.TransferTimeout)
	v.SetDefault("network.rate_limit", d.Network.RateLimit)
}

// findConfigFile returns the first maaup.* file in dir, or "".
func findConfigFile(dir string) string {
	for _, ext := range extensions {
		p := filepath.Join(dir, FileName+ext)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// readFile decodes a config file into a map according to its extension.
func readFile(ctx context.Context, path string, detector platform.Detector) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("config file is %d bytes, limit is %d", info.Size(), MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".lua":
		return parseLua(ctx, string(data), detector)
	case ".toml":
		values := make(map[string]any)
		if err := toml.Unmarshal(data, &values); err != nil {
			return nil, &ParseError{Message: "TOML syntax error", Detail: err.Error()}
		}
		return values, nil
	case ".yaml", ".yml":
		values := make(map[string]any)
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, &ParseError{Message: "YAML syntax error", Detail: err.Error()}
		}
		return values, nil
	default:
		return nil, errors.New("unsupported config format " + ext)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
