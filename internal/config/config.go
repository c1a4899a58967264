// Package config loads hdllint's project configuration: which
// .hdldesign sources to analyze, per-diagnostic-code severity
// overrides, and the analysis knobs the driver tracker consults
// (diag.Manager's flags, plus the modport-propagation bound this port
// adds around the upstream unbounded loop).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level configuration for hdllint.
type Config struct {
	// Sources is an explicit list of .hdldesign files/glob patterns to
	// analyze. Empty means "every *.hdldesign file under the project
	// root".
	Sources []string `json:"sources,omitempty"`

	// Lint contains per-diagnostic-code severity configuration.
	Lint LintConfig `json:"lint,omitempty"`

	// Analysis contains driver-tracker analysis options.
	Analysis AnalysisConfig `json:"analysis,omitempty"`
}

// LintConfig controls diagnostic reporting.
type LintConfig struct {
	// Rules maps a diagnostic code name (e.g. "MultipleContAssigns") to
	// a severity override: "off", "warning", "error".
	Rules map[string]string `json:"rules,omitempty"`

	// IgnorePatterns is a list of file glob patterns to skip entirely.
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`
}

// CacheConfig controls incremental-run result caching.
type CacheConfig struct {
	// Enabled turns on incremental cache usage.
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute).
	Dir string `json:"dir,omitempty"`
}

// AnalysisConfig contains analysis options, mapping directly onto
// diag.Manager's flags plus the concurrency/caching knobs the ambient
// stack adds around it.
type AnalysisConfig struct {
	// MaxParallelFiles limits concurrent .hdldesign processing (0 = auto).
	MaxParallelFiles int `json:"maxParallelFiles,omitempty"`

	// AllowDupInitialDrivers maps to diag.Manager.AllowDupInitialDrivers.
	AllowDupInitialDrivers bool `json:"allowDupInitialDrivers,omitempty"`

	// MaxModportIterations maps to diag.Manager.MaxModportIterations
	// (0 = compute a default from the observed modport port count).
	MaxModportIterations int `json:"maxModportIterations,omitempty"`

	// Cache controls incremental-run result caching.
	Cache CacheConfig `json:"cache,omitempty"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Analysis: AnalysisConfig{
			MaxParallelFiles: 0, // auto
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     ".hdllint_cache",
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file.
// Search order:
//  1. ./hdllint.json (current working directory)
//  2. ./.hdllint.json (current working directory)
//  3. <rootPath>/hdllint.json (if rootPath is a directory other than cwd)
//  4. <rootPath>/.hdllint.json (same condition)
//  5. ~/.config/hdllint/config.json
//
// Returns DefaultConfig if no config file is found.
func Load(rootPath string) (*Config, error) {
	// Get current working directory
	cwd, _ := os.Getwd()

	searchPaths := []string{
		// First check current working directory
		filepath.Join(cwd, "hdllint.json"),
		filepath.Join(cwd, ".hdllint.json"),
	}

	// If rootPath is a directory and different from cwd, also check there
	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "hdllint.json"),
				filepath.Join(rootPath, ".hdllint.json"),
			)
		}
	}

	// Add user config path
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "hdllint", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	// No config found, return defaults
	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing fields
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults.
func (c *Config) applyDefaults() {
	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}

	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = ".hdllint_cache"
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// Save writes the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetRuleSeverity returns the severity for a diagnostic code, or the
// default if not configured.
func (c *Config) GetRuleSeverity(code string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[code]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the diagnostic code is not set to "off".
func (c *Config) IsRuleEnabled(code string) bool {
	if severity, ok := c.Lint.Rules[code]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a file should be skipped entirely.
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}

// ToManagerFlags derives the diag.Manager fields this config controls.
// Kept here (rather than a diag-side constructor) so internal/diag has
// no dependency on internal/config.
func (c *Config) ToManagerFlags() (allowDupInitialDrivers bool, maxModportIterations int) {
	return c.Analysis.AllowDupInitialDrivers, c.Analysis.MaxModportIterations
}
