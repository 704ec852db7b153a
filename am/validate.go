package am

import (
	"net/url"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Design enrichment: endpoint is only required when enabled
	if c.Design.Enabled {
		if c.Design.Endpoint == "" {
			return errors.WithHint(
				errors.New("design.endpoint cannot be empty when design.enabled is true"),
				"set FORGE_DESIGN_ENDPOINT or disable enrichment with design.enabled = false",
			)
		}
		u, err := url.Parse(c.Design.Endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return errors.Newf("design.endpoint must be an http(s) URL, got %q", c.Design.Endpoint)
		}
	}

	// Timeouts and cache sizes: 0 = use default, negative = invalid
	if c.Design.TimeoutSeconds < 0 {
		return errors.Newf("design.timeout_seconds must be >= 0, got %d", c.Design.TimeoutSeconds)
	}
	if c.Design.CacheSize < 0 {
		return errors.Newf("design.cache_size must be >= 0, got %d", c.Design.CacheSize)
	}

	if c.Watch.DebounceMS < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}
	// 0 = unlimited re-renders
	if c.Watch.MaxRendersPerMinute < 0 {
		return errors.Newf("watch.max_renders_per_minute must be >= 0, got %d", c.Watch.MaxRendersPerMinute)
	}

	if c.Log.Theme != "" && !logger.KnownTheme(c.Log.Theme) {
		return errors.Newf("log.theme %q is not a known theme (everforest, gruvbox)", c.Log.Theme)
	}

	return nil
}
