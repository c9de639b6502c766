// Package cmd provides the command-line interface for blockwright.
//
// Configuration System:
//
//	Values are read with the following precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. BLOCKWRIGHT_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (BLOCKWRIGHT_SERVER_PORT, etc.)
//	4. Configuration files (.blockwright.yml) - lowest priority
//
// Relative paths inside a configuration file are resolved against the
// directory holding that file.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blockwright",
	Short: "Compose page sections from registry components and export them",
	Long: `Blockwright builds component trees from a registry of building blocks and
exports them as reusable Astro components with CloudCannon editing config.

Quick Start:
  blockwright list                          List registry components
  blockwright serve                         Start the builder server
  blockwright validate tree.yml             Check a saved tree for name collisions
  blockwright export tree.yml --name hero   Generate component files

Command Aliases:
  serve (s), list (l), export (e)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .blockwright.yml, can also use BLOCKWRIGHT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the configuration file and enables
// BLOCKWRIGHT_ prefixed environment overrides such as
// BLOCKWRIGHT_SERVER_PORT=9000.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("BLOCKWRIGHT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".blockwright")
	}

	viper.SetEnvPrefix("BLOCKWRIGHT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing or unreadable file falls back to defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
