package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/forge/am"
	"github.com/teranos/forge/display"
	"github.com/teranos/forge/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage forge configuration",
	Long: `am - Manage forge configuration

Display and manage forge configuration settings.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (FORGE_* prefix, e.g. FORGE_LEDGER_PATH)
3. Project config (forge.toml, searched upward from the working directory)
4. User config (~/.forge/forge.toml)
5. System config (/etc/forge/forge.toml)
6. Default values

Examples:
  forge am show                    # Show current configuration
  forge am show --format json      # Show configuration in JSON format
  forge am get ledger.path         # Get specific config value
  forge am set design.enabled true # Write a value to the project forge.toml
  forge am validate                # Validate current configuration
  forge am where                   # Show which source set each value`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current forge configuration merged from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., ledger.path, watch.debounce_ms)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a configuration value",
	Long: `Write a configuration value to forge.toml.

The project forge.toml (searched upward) is updated when one exists, otherwise
./forge.toml is created. Use --user to write ~/.forge/forge.toml instead.
The previous file is kept as forge.toml.back1 (up to three backups).`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current forge configuration is valid",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and the source of every setting.

Lists all configuration sources in order of precedence, grouping settings by
the file or environment variable that supplied them.`,
	RunE: runAmWhere,
}

var (
	configFormat string
	setUser      bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().BoolVar(&setUser, "user", false, "Write ~/.forge/forge.toml instead of the project file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	shown := *cfg
	if shown.Design.APIKey != "" {
		shown.Design.APIKey = "********"
	}

	format := configFormat
	if display.ShouldOutputJSON(cmd) {
		format = "json"
	}

	w := cmd.OutOrStdout()
	switch format {
	case "json":
		data, err := json.MarshalIndent(shown, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(w, string(data))

	case "yaml":
		data, err := yaml.Marshal(shown)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(w, "# forge configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(shown)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(w, "# forge configuration\n%s", string(data))

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	v := am.GetViper()
	if !v.IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := ""
	if setUser {
		dir := am.UserDir()
		if dir == "" {
			return errors.New("could not determine home directory")
		}
		path = filepath.Join(dir, am.ConfigFileName)
	} else {
		for _, cf := range am.ConfigPaths() {
			if cf.Source == am.SourceProject {
				path = cf.Path
			}
		}
		if path == "" {
			path = am.ConfigFileName
		}
	}

	if err := am.SetValue(path, args[0], args[1]); err != nil {
		return err
	}
	am.Reset()
	if _, err := loadConfig(); err != nil {
		return errors.Wrapf(err, "%s was written but the result does not validate", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s (%s)\n", args[0], args[1], path)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), intro)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(w, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintln(w, "  2. [SYSTEM]   /etc/forge/forge.toml")
	fmt.Fprintln(w, "  3. [USER]     ~/.forge/forge.toml")
	fmt.Fprintln(w, "  4. [PROJECT]  ./forge.toml (searches up directories)")
	fmt.Fprintln(w, "  5. [ENV]      FORGE_* environment variables")
	fmt.Fprintln(w)

	type group struct {
		source   am.ConfigSource
		path     string
		settings []am.SettingInfo
	}
	groups := map[string]*group{}
	for _, setting := range intro.Settings {
		key := string(setting.Source) + "|" + setting.SourcePath
		if setting.Source == am.SourceEnvironment {
			key = string(setting.Source)
		}
		g, ok := groups[key]
		if !ok {
			g = &group{source: setting.Source, path: setting.SourcePath}
			groups[key] = g
		}
		g.settings = append(g.settings, setting)
	}

	order := []am.ConfigSource{am.SourceDefault, am.SourceSystem, am.SourceUser, am.SourceProject, am.SourceEnvironment}
	fmt.Fprintln(w, "Active configuration:")
	for _, source := range order {
		var matched []*group
		for _, g := range groups {
			if g.source == source {
				matched = append(matched, g)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].path < matched[j].path })

		for _, g := range matched {
			switch source {
			case am.SourceDefault:
				fmt.Fprintf(w, "\n%s: %d settings\n", source, len(g.settings))
			case am.SourceEnvironment:
				fmt.Fprintf(w, "\n%s: %d settings from environment variables\n", source, len(g.settings))
			default:
				fmt.Fprintf(w, "\n%s: %d settings from %s\n", source, len(g.settings), g.path)
			}
			for _, setting := range g.settings {
				valueStr := fmt.Sprintf("%v", setting.Value)
				if len(valueStr) > 50 {
					valueStr = valueStr[:47] + "..."
				}
				if source == am.SourceEnvironment {
					fmt.Fprintf(w, "  %s = %s (%s)\n", setting.Key, valueStr, setting.SourcePath)
					continue
				}
				fmt.Fprintf(w, "  %s = %s\n", setting.Key, valueStr)
			}
		}
	}
	return nil
}
