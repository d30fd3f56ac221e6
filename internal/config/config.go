package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = ".yehdekho"
	ConfigFileName = "config.yaml"
	CacheFileName  = "matrices.db"

	// EnvPrefix prefixes environment overrides, e.g. YEHDEKHO_ENGINE_TOP_K
	EnvPrefix = "YEHDEKHO_"

	// LegacyAPIKeyEnv is honoured when no poster key is configured
	LegacyAPIKeyEnv = "OMDB_API_KEY"
)

// CacheMode selects where similarity matrices are cached
type CacheMode string

const (
	CacheSQLite CacheMode = "sqlite"
	CacheMemory CacheMode = "memory"
	CacheNone   CacheMode = "none"
)

// Config represents the application configuration
type Config struct {
	Catalog CatalogConfig `koanf:"catalog" yaml:"catalog"`
	Engine  EngineConfig  `koanf:"engine" yaml:"engine"`
	Poster  PosterConfig  `koanf:"poster" yaml:"poster"`
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
}

// CatalogConfig points at the movie catalog file
type CatalogConfig struct {
	Path string `koanf:"path" yaml:"path" validate:"required"`
}

// EngineConfig tunes the similarity engine
type EngineConfig struct {
	MaxTerms  int       `koanf:"max_terms" yaml:"max_terms" validate:"min=1,max=100000"`
	TopK      int       `koanf:"top_k" yaml:"top_k" validate:"min=1,max=50"`
	Cache     CacheMode `koanf:"cache" yaml:"cache" validate:"oneof=sqlite memory none"`
	CachePath string    `koanf:"cache_path" yaml:"cache_path,omitempty"`
}

// PosterConfig configures OMDb poster lookups
type PosterConfig struct {
	Enabled          bool          `koanf:"enabled" yaml:"enabled"`
	APIKey           string        `koanf:"api_key" yaml:"api_key,omitempty"`
	BaseURL          string        `koanf:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Timeout          time.Duration `koanf:"timeout" yaml:"timeout" validate:"min=0"`
	RatePerSecond    float64       `koanf:"rate_per_second" yaml:"rate_per_second" validate:"min=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" yaml:"failure_threshold" validate:"min=1"`
}

// ServerConfig configures `yehdekho serve`
type ServerConfig struct {
	Addr              string `koanf:"addr" yaml:"addr" validate:"required"`
	RequestsPerMinute int    `koanf:"requests_per_minute" yaml:"requests_per_minute" validate:"min=0"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=console json"`
}

// Default returns the configuration used before any file or env override
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxTerms: 5000,
			TopK:     5,
			Cache:    CacheSQLite,
		},
		Poster: PosterConfig{
			Enabled:          true,
			BaseURL:          "https://www.omdbapi.com/",
			Timeout:          10 * time.Second,
			RatePerSecond:    5,
			FailureThreshold: 3,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerMinute: 120,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// Load reads the configuration from the default path.
// It returns nil (not an error) when no config file exists.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}

	return LoadFile(configPath)
}

// LoadOrDefault reads the configuration, falling back to defaults plus
// environment overrides when no config file exists
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	return LoadFile("")
}

// LoadFile layers defaults, the YAML file at path (skipped when empty) and
// YEHDEKHO_* environment variables
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Poster.APIKey == "" {
		cfg.Poster.APIKey = os.Getenv(LegacyAPIKeyEnv)
	}

	return &cfg, nil
}

// envKey maps YEHDEKHO_ENGINE_TOP_K to engine.top_k. The first underscore
// after the prefix separates the section from the field.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ResolveCachePath returns the SQLite cache path, defaulting to the config dir
func (c *Config) ResolveCachePath() (string, error) {
	if c.Engine.CachePath != "" {
		return c.Engine.CachePath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CacheFileName), nil
}

// Save writes the configuration to the default path
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(cfg, configPath)
}

// SaveFile writes the configuration as YAML. The file may hold an API key,
// so it is only readable by the owner.
func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if a configuration file exists
func Exists() (bool, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
