package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the shopspec configuration
type Config struct {
	DefaultEnvironment string                    `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty"`
	BaseURL            string                    `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Timeout            int                       `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects    *bool                     `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects       int                       `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL        *bool                     `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy              string                    `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	RateLimit          float64                   `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second
	Headers            map[string]string         `json:"headers,omitempty" yaml:"headers,omitempty"`
	Variables          map[string]any            `json:"variables,omitempty" yaml:"variables,omitempty"`
	Environments       map[string]map[string]any `json:"environments,omitempty" yaml:"environments,omitempty"`
	EnvFile            string                    `json:"envFile,omitempty" yaml:"envFile,omitempty"`
	Reporters          []string                  `json:"reporters,omitempty" yaml:"reporters,omitempty"`
	OutputDir          string                    `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	History            string                    `json:"history,omitempty" yaml:"history,omitempty"`         // sqlite run log path
	MetricsFile        string                    `json:"metricsFile,omitempty" yaml:"metricsFile,omitempty"` // Prometheus textfile
	Pushgateway        string                    `json:"pushgateway,omitempty" yaml:"pushgateway,omitempty"`
	Verbose            *bool                     `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor            *bool                     `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration converts Timeout to a duration, falling back to
// DefaultTimeout when the file sets none.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout * time.Millisecond
	}
	return time.Duration(c.Timeout) * time.Millisecond
}

// HasTimeout reports whether the config file sets a timeout. Only an
// explicit timeout overrides the ones written in suites.
func (c *Config) HasTimeout() bool {
	return c.Timeout > 0
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".shopspec.json",
	"shopspec.json",
	".shopspec.yaml",
	".shopspec.yml",
	"shopspec.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.MetricsFile != "" {
		result.MetricsFile = other.MetricsFile
	}
	if other.Pushgateway != "" {
		result.Pushgateway = other.Pushgateway
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	result.Headers = mergeMap(c.Headers, other.Headers)
	result.Variables = mergeMap(c.Variables, other.Variables)

	if len(other.Environments) > 0 {
		result.Environments = make(map[string]map[string]any, len(c.Environments)+len(other.Environments))
		for name, vars := range c.Environments {
			result.Environments[name] = vars
		}
		for name, vars := range other.Environments {
			result.Environments[name] = mergeMap(result.Environments[name], vars)
		}
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// mergeMap copies base and overlays other; it never mutates either.
func mergeMap[V any](base, other map[string]V) map[string]V {
	if len(other) == 0 {
		return base
	}
	out := make(map[string]V, len(base)+len(other))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// SaveConfig saves the configuration to a file, as YAML when path ends in
// .yaml or .yml and as JSON otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
