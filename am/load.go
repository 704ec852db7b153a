package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/forge/errors"
)

var (
	globalConfig  *Config
	viperInstance *viper.Viper
	loadMu        sync.Mutex

	// ConfigSources records which file supplied each dotted key during the
	// last load. Keys absent from the map came from defaults or environment.
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the forge configuration using Viper. The result is cached
// until Reset.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViperLocked()
	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	loadMu.Lock()
	defer loadMu.Unlock()
	return initViperLocked()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path, on top of
// defaults and without environment overrides.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViperLocked initializes Viper with configuration sources and defaults.
// Callers hold loadMu.
func initViperLocked() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)

	SetDefaults(v)

	// system -> user -> project; env vars win over all of them via AutomaticEnv
	sources := map[string]SourceInfo{}
	for _, cf := range ConfigPaths() {
		mergeConfigFile(v, cf, sources)
	}
	ConfigSources = sources

	viperInstance = v
	return v
}

// ConfigFile is one candidate location in the merge order.
type ConfigFile struct {
	Path   string
	Source ConfigSource
}

// ConfigPaths lists the candidate config files in precedence order, lowest
// first. The project file is found by walking up from the working directory.
func ConfigPaths() []ConfigFile {
	paths := []ConfigFile{
		{Path: filepath.Join("/etc", "forge", ConfigFileName), Source: SourceSystem},
	}
	if dir := UserDir(); dir != "" {
		paths = append(paths, ConfigFile{Path: filepath.Join(dir, ConfigFileName), Source: SourceUser})
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, ConfigFile{Path: project, Source: SourceProject})
	}
	return paths
}

// findProjectConfig searches for forge.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			// ~/.forge/forge.toml is the user file, not a project file
			if filepath.Dir(candidate) != UserDir() {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFile merges one file into v and records the keys it supplied.
// Missing or unreadable files are skipped.
func mergeConfigFile(v *viper.Viper, cf ConfigFile, sources map[string]SourceInfo) {
	if _, err := os.Stat(cf.Path); err != nil {
		return
	}
	temp := viper.New()
	temp.SetConfigFile(cf.Path)
	temp.SetConfigType("toml")
	if err := temp.ReadInConfig(); err != nil {
		return
	}
	settings := temp.AllSettings()
	if err := v.MergeConfigMap(settings); err != nil {
		return
	}
	markSettingsFromSource(settings, "", cf.Source, cf.Path, sources)
}

// markSettingsFromSource flattens settings into dotted keys and records src for each.
func markSettingsFromSource(settings map[string]interface{}, prefix string, src ConfigSource, path string, sourceMap map[string]SourceInfo) {
	for key, value := range settings {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			markSettingsFromSource(nested, fullKey, src, path, sourceMap)
			continue
		}
		sourceMap[fullKey] = SourceInfo{Source: src, Path: path}
	}
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return GetViper().Get(key)
}
