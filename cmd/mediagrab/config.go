package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mediagrab/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage mediagrab configuration.

Configuration is loaded in order of precedence:
  - Command line flags (highest priority)
  - MEDIAGRAB_* environment variables
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd writes an example configuration file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create a configuration file with all defaults filled in. The file is
written to '.mediagrab.yaml' in the current directory unless --config names
another path.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd prints the merged configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources. Site secret values
are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configValidateCmd checks the configuration for errors
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".mediagrab.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// mask secrets before printing
	display := *cfg
	display.Auth = make(map[string]map[string]string, len(cfg.Auth))
	for site, values := range cfg.Auth {
		display.Auth[site] = make(map[string]string, len(values))
		for key := range values {
			display.Auth[site][key] = "********"
		}
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Println("Configuration is valid.")
	return nil
}
