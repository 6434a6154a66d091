/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config provides configuration management for RegretDB.

Configuration is resolved from several sources with clear precedence:
 1. Command-line flags (highest priority, applied by the caller)
 2. Environment variables
 3. Configuration file
 4. Default values (lowest priority)

Configuration File Format:
The configuration file uses a small TOML subset (key = value, # comments).

Example configuration file:

	# RegretDB Configuration
	log_level = "info"
	log_json = false
	collation = "unicode"
	locale = "en"
	snapshot_path = "~/.local/share/regretdb/catalog.snap"
	autosave = true
	encryption_enabled = false
	max_display_rows = 200
	query_cache_size = 256

Environment Variables:
  - REGRETDB_LOG_LEVEL: Log level (debug, info, warn, error)
  - REGRETDB_LOG_JSON: Enable JSON logging (true/false)
  - REGRETDB_COLLATION: TEXT collation (default, binary, nocase, unicode)
  - REGRETDB_LOCALE: Locale used by the unicode collation
  - REGRETDB_SNAPSHOT_PATH: Catalog snapshot file
  - REGRETDB_AUTOSAVE: Save the snapshot after every mutation (true/false)
  - REGRETDB_ENCRYPTION_ENABLED: Encrypt the snapshot at rest (true/false)
  - REGRETDB_ENCRYPTION_PASSPHRASE: Passphrase for snapshot encryption (never read from file)
  - REGRETDB_HISTORY_FILE: Shell history file
  - REGRETDB_MAX_DISPLAY_ROWS: Rows printed per result (0 = unlimited)
  - REGRETDB_QUERY_CACHE_SIZE: Cached SELECT results (0 = disabled)
  - REGRETDB_CONFIG_FILE: Path to configuration file
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Environment variable names for configuration.
const (
	EnvLogLevel             = "REGRETDB_LOG_LEVEL"
	EnvLogJSON              = "REGRETDB_LOG_JSON"
	EnvCollation            = "REGRETDB_COLLATION"
	EnvLocale               = "REGRETDB_LOCALE"
	EnvSnapshotPath         = "REGRETDB_SNAPSHOT_PATH"
	EnvAutosave             = "REGRETDB_AUTOSAVE"
	EnvEncryptionEnabled    = "REGRETDB_ENCRYPTION_ENABLED"
	EnvEncryptionPassphrase = "REGRETDB_ENCRYPTION_PASSPHRASE"
	EnvHistoryFile          = "REGRETDB_HISTORY_FILE"
	EnvMaxDisplayRows       = "REGRETDB_MAX_DISPLAY_ROWS"
	EnvQueryCacheSize       = "REGRETDB_QUERY_CACHE_SIZE"
	EnvConfigFile           = "REGRETDB_CONFIG_FILE"
)

// GetDefaultDataDir returns the default directory for snapshots.
// It follows the XDG Base Directory layout and falls back to ./data.
func GetDefaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "regretdb")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "share", "regretdb")
	}
	return "./data"
}

// GetDefaultConfigDir returns the per-user configuration directory, the
// second entry of DefaultConfigPaths.
func GetDefaultConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "regretdb")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "regretdb")
	}
	return "."
}

// Default configuration file paths (searched in order).
var DefaultConfigPaths = []string{
	"/etc/regretdb/regretdb.conf",
	"$HOME/.config/regretdb/regretdb.conf",
	"./regretdb.conf",
}

// Valid collation names.
var validCollations = map[string]bool{
	"default": true,
	"binary":  true,
	"nocase":  true,
	"unicode": true,
}

// Config holds all configuration values for RegretDB.
type Config struct {
	// Logging configuration
	LogLevel string `toml:"log_level" json:"log_level"`
	LogJSON  bool   `toml:"log_json" json:"log_json"`

	// Comparison of TEXT values
	Collation string `toml:"collation" json:"collation"`
	Locale    string `toml:"locale" json:"locale"`

	// Snapshot persistence
	SnapshotPath         string `toml:"snapshot_path" json:"snapshot_path"`
	Autosave             bool   `toml:"autosave" json:"autosave"`
	EncryptionEnabled    bool   `toml:"encryption_enabled" json:"encryption_enabled"`
	EncryptionPassphrase string `toml:"-" json:"-"` // Not persisted to file

	// Shell
	HistoryFile    string `toml:"history_file" json:"history_file"`
	MaxDisplayRows int    `toml:"max_display_rows" json:"max_display_rows"` // 0 = unlimited

	// Engine
	QueryCacheSize int `toml:"query_cache_size" json:"query_cache_size"` // 0 = disabled

	// Metadata
	ConfigFile string `toml:"-" json:"-"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".regretdb_history")
	}
	return &Config{
		LogLevel:          "warn",
		LogJSON:           false,
		Collation:         "default",
		Locale:            "en",
		SnapshotPath:      filepath.Join(GetDefaultDataDir(), "catalog.snap"),
		Autosave:          false,
		EncryptionEnabled: false,
		HistoryFile:       history,
		MaxDisplayRows:    1000,
		QueryCacheSize:    256,
	}
}

// Manager handles configuration loading, validation, and access.
type Manager struct {
	config *Config
	mu     sync.RWMutex

	onReload []func(*Config)
}

// NewManager creates a new configuration manager with default values.
func NewManager() *Manager {
	return &Manager{
		config:   DefaultConfig(),
		onReload: make([]func(*Config), 0),
	}
}

var globalManager = NewManager()

// Global returns the global configuration manager.
func Global() *Manager {
	return globalManager
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// Set updates the configuration.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// OnReload registers a callback to be called when configuration is reloaded.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

func (m *Manager) notifyReload() {
	m.mu.RLock()
	callbacks := make([]func(*Config), len(m.onReload))
	copy(callbacks, m.onReload)
	cfg := *m.config
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn(&cfg)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	if !validCollations[strings.ToLower(c.Collation)] {
		errs = append(errs, fmt.Sprintf("invalid collation: %s (must be default, binary, nocase, or unicode)", c.Collation))
	}
	if strings.ToLower(c.Collation) == "unicode" && c.Locale == "" {
		errs = append(errs, "locale is required for the unicode collation")
	}

	if c.Autosave && c.SnapshotPath == "" {
		errs = append(errs, "snapshot_path is required when autosave is enabled")
	}

	if c.MaxDisplayRows < 0 {
		errs = append(errs, fmt.Sprintf("invalid max_display_rows: %d (must be >= 0)", c.MaxDisplayRows))
	}

	if c.QueryCacheSize < 0 {
		errs = append(errs, fmt.Sprintf("invalid query_cache_size: %d (must be >= 0)", c.QueryCacheSize))
	}

	// The passphrase is checked when a snapshot is actually opened so that a
	// config without one can still be displayed and saved.

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LoadFromFile loads configuration from a TOML file on top of the defaults.
func (m *Manager) LoadFromFile(path string) error {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := parseTOML(string(data), cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ConfigFile = path
	m.Set(cfg)
	return nil
}

// LoadFromEnv merges environment variables into the current configuration.
func (m *Manager) LoadFromEnv() {
	cfg := m.Get()

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		cfg.LogJSON = parseBool(v)
	}
	if v := os.Getenv(EnvCollation); v != "" {
		cfg.Collation = v
	}
	if v := os.Getenv(EnvLocale); v != "" {
		cfg.Locale = v
	}
	if v := os.Getenv(EnvSnapshotPath); v != "" {
		cfg.SnapshotPath = v
	}
	if v := os.Getenv(EnvAutosave); v != "" {
		cfg.Autosave = parseBool(v)
	}
	if v := os.Getenv(EnvEncryptionEnabled); v != "" {
		cfg.EncryptionEnabled = parseBool(v)
	}
	if v := os.Getenv(EnvEncryptionPassphrase); v != "" {
		cfg.EncryptionPassphrase = v
	}
	if v := os.Getenv(EnvHistoryFile); v != "" {
		cfg.HistoryFile = v
	}
	if v := os.Getenv(EnvMaxDisplayRows); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDisplayRows = n
		}
	}
	if v := os.Getenv(EnvQueryCacheSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueryCacheSize = n
		}
	}

	m.Set(cfg)
}

// FindConfigFile searches for a configuration file in default locations.
// Returns the path to the first file found, or empty string if none found.
func FindConfigFile() string {
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(os.ExpandEnv(envPath)); err == nil {
			return os.ExpandEnv(envPath)
		}
	}

	for _, path := range DefaultConfigPaths {
		expandedPath := os.ExpandEnv(path)
		if _, err := os.Stat(expandedPath); err == nil {
			return expandedPath
		}
	}

	return ""
}

// Load loads configuration from all sources with proper precedence.
// Order: defaults -> config file -> environment variables.
// When path is empty the default locations are searched.
func (m *Manager) Load(path string) error {
	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		if err := m.LoadFromFile(path); err != nil {
			return err
		}
	}

	m.LoadFromEnv()
	return m.Get().Validate()
}

// Reload reloads configuration from file and environment and notifies
// registered callbacks.
func (m *Manager) Reload() error {
	configPath := m.Get().ConfigFile

	m.Set(DefaultConfig())
	if err := m.Load(configPath); err != nil {
		return err
	}

	m.notifyReload()
	return nil
}

// parseTOML is a simple TOML parser for our configuration format.
// It handles the flat key = value subset the configuration needs.
func parseTOML(data string, cfg *Config) error {
	lines := strings.Split(data, "\n")

	for lineNum, line := range lines {
		line = stripComment(line)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("line %d: invalid syntax: %s", lineNum+1, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		if err := applyConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("line %d: %w", lineNum+1, err)
		}
	}

	return nil
}

// stripComment removes a trailing # comment that is not inside quotes.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

func applyConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "log_level":
		cfg.LogLevel = value
	case "log_json":
		cfg.LogJSON = parseBool(value)
	case "collation":
		cfg.Collation = value
	case "locale":
		cfg.Locale = value
	case "snapshot_path":
		cfg.SnapshotPath = expandHome(value)
	case "autosave":
		cfg.Autosave = parseBool(value)
	case "encryption_enabled":
		cfg.EncryptionEnabled = parseBool(value)
	case "history_file":
		cfg.HistoryFile = expandHome(value)
	case "max_display_rows":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_display_rows value: %s", value)
		}
		cfg.MaxDisplayRows = n
	case "query_cache_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid query_cache_size value: %s", value)
		}
		cfg.QueryCacheSize = n
	default:
		// Ignore unknown keys for forward compatibility
	}
	return nil
}

func parseBool(v string) bool {
	return strings.ToLower(v) == "true" || v == "1"
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("RegretDB Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Log Level:        %s\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("  Log JSON:         %v\n", c.LogJSON))
	sb.WriteString(fmt.Sprintf("  Collation:        %s\n", c.Collation))
	sb.WriteString(fmt.Sprintf("  Locale:           %s\n", c.Locale))
	sb.WriteString(fmt.Sprintf("  Snapshot Path:    %s\n", c.SnapshotPath))
	sb.WriteString(fmt.Sprintf("  Autosave:         %v\n", c.Autosave))
	sb.WriteString(fmt.Sprintf("  Encryption:       %v\n", c.EncryptionEnabled))
	sb.WriteString(fmt.Sprintf("  Max Display Rows: %d\n", c.MaxDisplayRows))
	sb.WriteString(fmt.Sprintf("  Query Cache Size: %d\n", c.QueryCacheSize))
	if c.ConfigFile != "" {
		sb.WriteString(fmt.Sprintf("  Config File:      %s\n", c.ConfigFile))
	}
	return sb.String()
}

// ToTOML returns the configuration as a TOML string.
func (c *Config) ToTOML() string {
	var sb strings.Builder
	sb.WriteString("# RegretDB Configuration File\n\n")
	sb.WriteString("# Logging\n")
	sb.WriteString(fmt.Sprintf("log_level = \"%s\"\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("log_json = %v\n\n", c.LogJSON))
	sb.WriteString("# TEXT comparison: default, binary, nocase or unicode\n")
	sb.WriteString(fmt.Sprintf("collation = \"%s\"\n", c.Collation))
	sb.WriteString(fmt.Sprintf("locale = \"%s\"\n\n", c.Locale))
	sb.WriteString("# Snapshot persistence\n")
	sb.WriteString(fmt.Sprintf("snapshot_path = \"%s\"\n", c.SnapshotPath))
	sb.WriteString(fmt.Sprintf("autosave = %v\n", c.Autosave))
	sb.WriteString("# When enabled, set REGRETDB_ENCRYPTION_PASSPHRASE in the environment\n")
	sb.WriteString(fmt.Sprintf("encryption_enabled = %v\n\n", c.EncryptionEnabled))
	sb.WriteString("# Shell\n")
	sb.WriteString(fmt.Sprintf("history_file = \"%s\"\n", c.HistoryFile))
	sb.WriteString(fmt.Sprintf("max_display_rows = %d\n\n", c.MaxDisplayRows))
	sb.WriteString("# Engine: cached SELECT results, 0 disables the cache\n")
	sb.WriteString(fmt.Sprintf("query_cache_size = %d\n", c.QueryCacheSize))
	return sb.String()
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	path = os.ExpandEnv(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(c.ToTOML()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
