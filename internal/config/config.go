// Package config loads layered configuration: built-in defaults, then an
// optional YAML file, then LIBRARY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"library.yaml",
	"library.yml",
	"/etc/library/library.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "LIBRARY_CONFIG"

const envPrefix = "LIBRARY_"

// Config is the complete runtime configuration.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	Circulation CirculationConfig `koanf:"circulation"`
	Recommend   RecommendConfig   `koanf:"recommend"`
	Log         LogConfig         `koanf:"log"`
}

type DatabaseConfig struct {
	// Path is the SQLite file. ":memory:" selects the in-process store.
	Path string `koanf:"path"`
}

type CirculationConfig struct {
	LoanPeriod time.Duration `koanf:"loan_period"`
}

type RecommendConfig struct {
	DefaultCount     int     `koanf:"default_count"`
	SimilarCount     int     `koanf:"similar_count"`
	TopRatedMinScore float64 `koanf:"top_rated_min_rating"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Database:    DatabaseConfig{Path: "library.db"},
		Circulation: CirculationConfig{LoanPeriod: 14 * 24 * time.Hour},
		Recommend: RecommendConfig{
			DefaultCount:     10,
			SimilarCount:     5,
			TopRatedMinScore: 4,
		},
		Log: LogConfig{Level: "info", Format: "auto"},
	}
}

// Default returns the built-in configuration.
func Default() *Config { return defaultConfig() }

// Load builds the configuration. An explicit path must exist; otherwise the
// LIBRARY_CONFIG variable and DefaultConfigPaths are tried and a missing file
// is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	configPath, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return resolvePath(p)
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// envMappings maps LIBRARY_* variables (prefix stripped, lower-cased) to keys.
var envMappings = map[string]string{
	"database_path":                  "database.path",
	"db_path":                        "database.path",
	"loan_period":                    "circulation.loan_period",
	"circulation_loan_period":        "circulation.loan_period",
	"recommend_default_count":        "recommend.default_count",
	"recommend_similar_count":        "recommend.similar_count",
	"recommend_top_rated_min_rating": "recommend.top_rated_min_rating",
	"log_level":                      "log.level",
	"log_format":                     "log.format",
}

func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return envMappings[key]
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Circulation.LoanPeriod <= 0 {
		errs = append(errs, fmt.Errorf("circulation.loan_period must be positive, got %s", c.Circulation.LoanPeriod))
	}
	if c.Recommend.DefaultCount <= 0 {
		errs = append(errs, fmt.Errorf("recommend.default_count must be positive, got %d", c.Recommend.DefaultCount))
	}
	if c.Recommend.SimilarCount <= 0 {
		errs = append(errs, fmt.Errorf("recommend.similar_count must be positive, got %d", c.Recommend.SimilarCount))
	}
	if c.Recommend.TopRatedMinScore < 0 || c.Recommend.TopRatedMinScore > 5 {
		errs = append(errs, fmt.Errorf("recommend.top_rated_min_rating must be within 0..5, got %g", c.Recommend.TopRatedMinScore))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "auto", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be auto, json or console, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
