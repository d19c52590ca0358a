// Package config loads the esmirror daemon configuration from YAML files
// named after the environment (local, dev, prod), with ${VAR} expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the esmirror daemon configuration.
type Config struct {
	HTTP        HTTPConfig              `yaml:"http"`
	Search      SearchConfig            `yaml:"search"`
	Retry       RetryConfig             `yaml:"retry"`
	Sync        SyncConfig              `yaml:"sync"`
	Source      SourceConfig            `yaml:"source"`
	Embedding   EmbeddingConfig         `yaml:"embedding"`
	Collections map[string]SchemaConfig `yaml:"collections"`
	Logging     LoggingConfig           `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds admin API server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds the process-wide default connection options toward
// the search engine.
type SearchConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Index  string `yaml:"index"`
	Type   string `yaml:"type"`
	Prefix string `yaml:"prefix"`
}

// RetryConfig holds the request backoff schedule.
type RetryConfig struct {
	BaseDelayMS int `yaml:"base_delay_ms"`
	MaxDelaySec int `yaml:"max_delay_sec"`
	MaxAttempts int `yaml:"max_attempts"` // 0 = unbounded
}

// SyncConfig holds resynchronization settings.
type SyncConfig struct {
	InFlight int `yaml:"in_flight"`
}

// SourceConfig holds primary-store connection settings.
type SourceConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds optional document-enrichment settings. Enrichment
// is off unless an API key is configured.
type EmbeddingConfig struct {
	APIKey     string   `yaml:"api_key"`
	BaseURL    string   `yaml:"base_url"`
	Model      string   `yaml:"model"`
	Dimensions int      `yaml:"dimensions"`
	Fields     []string `yaml:"fields"`
}

// SchemaConfig describes the indexable shape of one collection.
type SchemaConfig struct {
	Fields []FieldConfig `yaml:"fields"`
	Index  string        `yaml:"index"`
	Type   string        `yaml:"type"`
}

// FieldConfig describes one schema field. Nested fields mark an object.
type FieldConfig struct {
	Name    string        `yaml:"name"`
	NoIndex bool          `yaml:"no_index"`
	Fields  []FieldConfig `yaml:"fields"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Search.Host == "" {
		c.Search.Host = "localhost"
	}
	if c.Search.Port <= 0 {
		c.Search.Port = 9200
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = 250
	}
	if c.Retry.MaxDelaySec <= 0 {
		c.Retry.MaxDelaySec = 30
	}
	if c.Sync.InFlight <= 0 {
		c.Sync.InFlight = 10
	}
	if c.Source.KeyPrefix == "" {
		c.Source.KeyPrefix = "esmirror:"
	}
	if c.Source.ReadinessTimeout <= 0 {
		c.Source.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.Port <= 0 || c.Search.Port > 65535 {
		return fmt.Errorf("search.port must be between 1 and 65535, got %d", c.Search.Port)
	}
	if len(c.Source.Addrs) == 0 {
		return fmt.Errorf("source.addrs is required")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative, got %d", c.Retry.MaxAttempts)
	}
	for name, sc := range c.Collections {
		if len(sc.Fields) == 0 {
			return fmt.Errorf("collections.%s.fields is required", name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
