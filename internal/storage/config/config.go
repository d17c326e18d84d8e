package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultMaxParallelDownloads bounds concurrent fetches when unset
const DefaultMaxParallelDownloads = 4

// Config holds global application settings
type Config struct {
	DownloadsPath        string `yaml:"downloads_path,omitempty" mapstructure:"downloads_path"`
	MaxParallelDownloads int    `yaml:"max_parallel_downloads" mapstructure:"max_parallel_downloads"`
	DataDir              string `yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	DefaultLoadout       string `yaml:"default_loadout,omitempty" mapstructure:"default_loadout"`

	// Read from the environment only (LMM_NEXUS_API_KEY or a .env file)
	NexusAPIKey string `yaml:"-" mapstructure:"nexus_api_key"`
}

// Load reads config.yaml from the given directory. Environment variables
// prefixed with LMM_ override file values; a missing file yields defaults.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(configDir, "config.yaml"))

	v.SetEnvPrefix("LMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("downloads_path", "")
	v.SetDefault("max_parallel_downloads", DefaultMaxParallelDownloads)
	v.SetDefault("data_dir", "")
	v.SetDefault("default_loadout", "")
	v.SetDefault("nexus_api_key", "")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DownloadsPath == "" {
		dir, err := DefaultDownloadsDir()
		if err != nil {
			return nil, err
		}
		cfg.DownloadsPath = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings for values the engine cannot work with
func (c *Config) Validate() error {
	if c.MaxParallelDownloads < 1 {
		return fmt.Errorf("max_parallel_downloads must be at least 1, got %d: %w", c.MaxParallelDownloads, domain.ErrInvalidConfig)
	}
	if c.DownloadsPath != "" && !filepath.IsAbs(c.DownloadsPath) {
		return fmt.Errorf("downloads_path must be absolute: %w", domain.ErrInvalidConfig)
	}
	return nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
