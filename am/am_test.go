package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// isolated viper instance: no user or system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Render.Out)
	assert.False(t, cfg.Render.Incremental)
	assert.True(t, cfg.Ledger.Enabled)
	assert.False(t, cfg.Design.Enabled)
	assert.Equal(t, 10, cfg.Design.TimeoutSeconds)
	assert.Equal(t, 256, cfg.Design.CacheSize)
	assert.Equal(t, 300, cfg.Watch.DebounceMS)
	assert.Equal(t, 30, cfg.Watch.MaxRendersPerMinute)
	assert.True(t, cfg.Git.Init)
	assert.Equal(t, "everforest", cfg.Log.Theme)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "zero values are valid", config: Config{}},
		{
			name:   "design disabled ignores endpoint",
			config: Config{Design: DesignConfig{Enabled: false, Endpoint: "not a url"}},
		},
		{
			name:    "design enabled requires endpoint",
			config:  Config{Design: DesignConfig{Enabled: true}},
			wantErr: "design.endpoint cannot be empty",
		},
		{
			name:    "design endpoint must be http",
			config:  Config{Design: DesignConfig{Enabled: true, Endpoint: "ftp://design.example.com"}},
			wantErr: "design.endpoint must be an http(s) URL",
		},
		{
			name:   "design endpoint https",
			config: Config{Design: DesignConfig{Enabled: true, Endpoint: "https://design.example.com/v1/enrich"}},
		},
		{
			name:    "negative timeout",
			config:  Config{Design: DesignConfig{TimeoutSeconds: -1}},
			wantErr: "design.timeout_seconds",
		},
		{
			name:    "negative cache size",
			config:  Config{Design: DesignConfig{CacheSize: -5}},
			wantErr: "design.cache_size",
		},
		{
			name:    "negative debounce",
			config:  Config{Watch: WatchConfig{DebounceMS: -1}},
			wantErr: "watch.debounce_ms",
		},
		{
			name:   "zero render cap means unlimited",
			config: Config{Watch: WatchConfig{MaxRendersPerMinute: 0}},
		},
		{
			name:    "negative render cap",
			config:  Config{Watch: WatchConfig{MaxRendersPerMinute: -1}},
			wantErr: "watch.max_renders_per_minute",
		},
		{
			name:    "unknown theme",
			config:  Config{Log: LogConfig{Theme: "solarized"}},
			wantErr: "log.theme",
		},
		{name: "gruvbox theme", config: Config{Log: LogConfig{Theme: "gruvbox"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetters(t *testing.T) {
	var cfg Config
	assert.Equal(t, 10*time.Second, cfg.GetDesignTimeout())
	assert.Equal(t, 300*time.Millisecond, cfg.GetWatchDebounce())
	assert.Equal(t, "everforest", cfg.GetLogTheme())

	cfg.Ledger.Path = "/var/lib/forge/ledger.db"
	cfg.Design.TimeoutSeconds = 3
	cfg.Watch.DebounceMS = 50
	assert.Equal(t, "/var/lib/forge/ledger.db", cfg.GetLedgerPath())
	assert.Equal(t, 3*time.Second, cfg.GetDesignTimeout())
	assert.Equal(t, 50*time.Millisecond, cfg.GetWatchDebounce())
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", t.TempDir())

	t.Run("found from a subdirectory", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "app", "client", "src")
		require.NoError(t, os.MkdirAll(subDir, DefaultDirPermissions))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "app", ConfigFileName), nil, DefaultFilePermissions))
		t.Chdir(subDir)

		result := findProjectConfig()
		require.NotEmpty(t, result)
		assert.True(t, filepath.IsAbs(result))
		assert.Equal(t, ConfigFileName, filepath.Base(result))
	})

	t.Run("no config found", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "empty", "subdir")
		require.NoError(t, os.MkdirAll(subDir, DefaultDirPermissions))
		t.Chdir(subDir)

		assert.Empty(t, findProjectConfig())
	})
}

func TestLoadMergesUserProjectAndEnv(t *testing.T) {
	Reset()
	defer Reset()

	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".forge"), DefaultDirPermissions))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".forge", ConfigFileName), []byte(`
[ledger]
path = "/home/user/ledger.db"

[log]
theme = "gruvbox"
`), DefaultFilePermissions))

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ConfigFileName), []byte(`
[log]
theme = "everforest"

[render]
out = "build/app"
`), DefaultFilePermissions))
	t.Chdir(project)
	t.Setenv("FORGE_WATCH_DEBOUNCE_MS", "75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/home/user/ledger.db", cfg.Ledger.Path, "user file")
	assert.Equal(t, "everforest", cfg.Log.Theme, "project wins over user")
	assert.Equal(t, "build/app", cfg.Render.Out)
	assert.Equal(t, 75, cfg.Watch.DebounceMS, "environment wins over files")
	assert.Equal(t, 30, cfg.Watch.MaxRendersPerMinute, "default")

	assert.Equal(t, SourceUser, ConfigSources["ledger.path"].Source)
	assert.Equal(t, SourceProject, ConfigSources["log.theme"].Source)
	assert.Contains(t, ConfigSources["render.out"].Path, project)

	again, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, again, "cached until Reset")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[git]\ninit = false\n"), DefaultFilePermissions))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Git.Init)
	assert.True(t, cfg.Ledger.Enabled, "defaults fill the rest")

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
