// Package am holds forge's configuration: the layered forge.toml files and
// FORGE_* environment overrides, merged with viper.
package am

import "os"

const (
	// ConfigFileName is the name searched for in system, user and project locations.
	ConfigFileName = "forge.toml"

	// EnvPrefix prefixes every environment override, e.g. FORGE_LEDGER_PATH.
	EnvPrefix = "FORGE"

	// DefaultDirPermissions for directories forge creates (~/.forge)
	DefaultDirPermissions os.FileMode = 0755

	// DefaultFilePermissions for configuration files forge writes
	DefaultFilePermissions os.FileMode = 0644
)

// Config is the complete forge configuration.
type Config struct {
	Render RenderConfig `mapstructure:"render" toml:"render" yaml:"render" json:"render"`
	Ledger LedgerConfig `mapstructure:"ledger" toml:"ledger" yaml:"ledger" json:"ledger"`
	Design DesignConfig `mapstructure:"design" toml:"design" yaml:"design" json:"design"`
	Watch  WatchConfig  `mapstructure:"watch" toml:"watch" yaml:"watch" json:"watch"`
	Git    GitConfig    `mapstructure:"git" toml:"git" yaml:"git" json:"git"`
	Log    LogConfig    `mapstructure:"log" toml:"log" yaml:"log" json:"log"`
}

// RenderConfig supplies defaults for the render, check and watch commands.
type RenderConfig struct {
	// Out is the destination used when --out is not given
	Out string `mapstructure:"out" toml:"out" yaml:"out" json:"out"`

	// Incremental makes render update an existing project by default
	Incremental bool `mapstructure:"incremental" toml:"incremental" yaml:"incremental" json:"incremental"`
}

// LedgerConfig controls the local record of runs and written-file digests.
type LedgerConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`

	// Path to the sqlite database. Empty means ~/.forge/ledger.db.
	Path string `mapstructure:"path" toml:"path" yaml:"path" json:"path"`
}

// DesignConfig configures the optional design-system enrichment service.
type DesignConfig struct {
	Enabled        bool   `mapstructure:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint       string `mapstructure:"endpoint" toml:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey         string `mapstructure:"api_key" toml:"api_key" yaml:"api_key" json:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	CacheSize      int    `mapstructure:"cache_size" toml:"cache_size" yaml:"cache_size" json:"cache_size"`
}

// WatchConfig tunes `forge watch`.
type WatchConfig struct {
	// DebounceMS collapses bursts of writes to the Specification file
	DebounceMS int `mapstructure:"debounce_ms" toml:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`

	// MaxRendersPerMinute caps re-renders (0 = unlimited)
	MaxRendersPerMinute int `mapstructure:"max_renders_per_minute" toml:"max_renders_per_minute" yaml:"max_renders_per_minute" json:"max_renders_per_minute"`
}

// GitConfig controls repository initialization of new projects.
type GitConfig struct {
	Init bool `mapstructure:"init" toml:"init" yaml:"init" json:"init"`
}

// LogConfig controls log output.
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" yaml:"json" json:"json"`
	Theme string `mapstructure:"theme" toml:"theme" yaml:"theme" json:"theme"`
}
