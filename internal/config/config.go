// Package config loads and persists linelog configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// StateDirName is the per-repository state directory.
const StateDirName = ".linelog"

// Config represents the complete linelog configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Trace   TraceConfig   `json:"trace" mapstructure:"trace"`
	Report  ReportConfig  `json:"report" mapstructure:"report"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// TraceConfig controls the lineage walk
type TraceConfig struct {
	StepBudget     int    `json:"stepBudget" mapstructure:"stepBudget"`
	QueryTimeoutMs int    `json:"queryTimeoutMs" mapstructure:"queryTimeoutMs"`
	Concurrency    int    `json:"concurrency" mapstructure:"concurrency"`
	FilePattern    string `json:"filePattern" mapstructure:"filePattern"`
}

// ReportConfig controls trace file and summary output
type ReportConfig struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
	Compress  bool   `json:"compress" mapstructure:"compress"`
}

// CacheConfig controls the SQLite trace cache
type CacheConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file,omitempty" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Trace: TraceConfig{
			StepBudget:     10,
			QueryTimeoutMs: 10000,
			// git serializes repository access; traces run one at a
			// time unless the user opts in to more.
			Concurrency: 1,
			FilePattern: "*",
		},
		Report: ReportConfig{
			OutputDir: filepath.Join(StateDirName, "reports"),
			Compress:  false,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(StateDirName, "cache.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from .linelog/config.json.
// A missing config file yields the defaults.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")
	v.SetDefault("trace.stepBudget", 10)
	v.SetDefault("trace.queryTimeoutMs", 10000)
	v.SetDefault("trace.concurrency", 1)
	v.SetDefault("trace.filePattern", "*")
	v.SetDefault("report.outputDir", filepath.Join(StateDirName, "reports"))
	v.SetDefault("report.compress", false)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", filepath.Join(StateDirName, "cache.db"))
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, StateDirName))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .linelog/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, StateDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Trace.StepBudget < 0 {
		return &ConfigError{Field: "trace.stepBudget", Message: "must be >= 0"}
	}
	if c.Trace.Concurrency < 1 {
		return &ConfigError{Field: "trace.concurrency", Message: "must be >= 1"}
	}
	if c.Trace.QueryTimeoutMs <= 0 {
		return &ConfigError{Field: "trace.queryTimeoutMs", Message: "must be > 0"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
