package am

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("render.out", ".")
	v.SetDefault("render.incremental", false)

	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.path", "")

	v.SetDefault("design.enabled", false)
	v.SetDefault("design.endpoint", "")
	v.SetDefault("design.api_key", "")
	v.SetDefault("design.timeout_seconds", 10)
	v.SetDefault("design.cache_size", 256)

	v.SetDefault("watch.debounce_ms", 300)
	v.SetDefault("watch.max_renders_per_minute", 30)

	v.SetDefault("git.init", true)

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("design.api_key", "FORGE_DESIGN_API_KEY")
	v.BindEnv("design.endpoint", "FORGE_DESIGN_ENDPOINT")
	v.BindEnv("ledger.path", "FORGE_LEDGER_PATH")
}

// UserDir returns ~/.forge, or "" when the home directory is unknown.
func UserDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".forge")
}

// GetLedgerPath returns the configured ledger database path
func (c *Config) GetLedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	if dir := UserDir(); dir != "" {
		return filepath.Join(dir, "ledger.db")
	}
	return "forge-ledger.db"
}

// GetDesignTimeout returns the enrichment request timeout (default: 10s)
func (c *Config) GetDesignTimeout() time.Duration {
	if c.Design.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Design.TimeoutSeconds) * time.Second
}

// GetWatchDebounce returns the watch debounce period (default: 300ms)
func (c *Config) GetWatchDebounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// GetLogTheme returns the console log theme (default: everforest)
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return "everforest"
	}
	return c.Log.Theme
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Render: {Out: %s}, Ledger: {Enabled: %t}, Design: {Enabled: %t}}",
		c.Render.Out, c.Ledger.Enabled, c.Design.Enabled)
}
