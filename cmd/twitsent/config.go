package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"twitsent/pkg/config"
	"twitsent/pkg/sentiment"
	"twitsent/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage twitsent configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TWITSENT_*)
  - .env files in the working directory or config directory
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file holding every option at its default value.

The file is written to $XDG_CONFIG_HOME/twitsent/config.yaml unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. The bearer token is masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the merged configuration and check that its paths are usable.

This command checks:
  - YAML syntax
  - Value ranges
  - Storage and log directories
  - The lexicon file, when one is configured`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Fprintln(ui.Output, "\nTo overwrite, first remove the existing file:")
		fmt.Fprintf(ui.Output, "  rm %s\n", configPath)
		return fmt.Errorf("%s already exists", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Store a bearer token with 'twitsent auth login'")
	fmt.Fprintln(ui.Output, "2. Set keywords and interval settings in the file")
	fmt.Fprintln(ui.Output, "3. Run 'twitsent config validate' to check the configuration")
	fmt.Fprintln(ui.Output, "4. Estimate a run with 'twitsent plan', then 'twitsent collect'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Twitter.BearerToken != "" {
		display.Twitter.BearerToken = maskSecret(display.Twitter.BearerToken)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("formatting configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	fmt.Fprintln(ui.Output, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Output, "1. Command line flags")
	fmt.Fprintln(ui.Output, "2. Environment variables (TWITSENT_*)")
	if configFile != "" {
		fmt.Fprintf(ui.Output, "3. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintf(ui.Output, "3. Configuration file: first of .twitsent.yaml, %s\n", config.DefaultConfigPath())
	}
	fmt.Fprintln(ui.Output, "4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(ui.Output, "  - %s\n", line)
		}
		return err
	}

	var warnings, problems []string

	if cfg.Twitter.BearerToken == "" && cfg.Twitter.Account == "" {
		warnings = append(warnings, "no bearer token configured; collect will use the default stored account")
	}
	if len(cfg.Collection.Keywords) == 0 {
		warnings = append(warnings, "no keywords configured; the built-in keyword rule is used")
	}
	if err := os.MkdirAll(cfg.Storage.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create storage directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if cfg.Scoring.Lexicon != "" {
		if _, err := sentiment.LoadLexiconFile(cfg.Scoring.Lexicon); err != nil {
			problems = append(problems, fmt.Sprintf("cannot load lexicon: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors")
		for _, p := range problems {
			fmt.Fprintf(ui.Output, "  - %s\n", p)
		}
		return fmt.Errorf("configuration has %d errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings")
		for _, w := range warnings {
			fmt.Fprintf(ui.Output, "  - %s\n", w)
		}
		fmt.Fprintln(ui.Output)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Storage directory: %s\n", cfg.Storage.Directory)
	fmt.Fprintf(ui.Output, "  Tier: %s\n", tierName(cfg.Twitter.Elevated))
	fmt.Fprintf(ui.Output, "  Max items per interval: %d\n", cfg.Collection.MaxItemsPerInterval)
	fmt.Fprintf(ui.Output, "  Interval: %d minutes\n", cfg.Collection.IntervalMinutes)
	fmt.Fprintf(ui.Output, "  Cooldown: %s\n", cfg.Throttle.Cooldown)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
