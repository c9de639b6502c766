// Package config provides configuration management for blockwright using
// Viper for loading from files, environment variables, and command-line
// flags.
//
// Values come from .blockwright.yml (or the file named by --config or
// BLOCKWRIGHT_CONFIG_FILE) and can be overridden with BLOCKWRIGHT_ prefixed
// environment variables. The configuration covers the HTTP server, the
// registry payload, the builder's default exposure table, export aliases
// and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultRootComponent is the registry path every session tree is rooted at.
const DefaultRootComponent = "page-sections/builders/custom-section"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Builder  BuilderConfig  `mapstructure:"builder" yaml:"builder"`
	Export   ExportConfig   `mapstructure:"export" yaml:"export"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type RegistryConfig struct {
	Payload       string `mapstructure:"payload" yaml:"payload"`
	RootComponent string `mapstructure:"root_component" yaml:"root_component"`
	Watch         bool   `mapstructure:"watch" yaml:"watch"`
}

type BuilderConfig struct {
	// DefaultExposed maps a component name to the props that start exposed
	// on newly created nodes.
	DefaultExposed map[string][]string `mapstructure:"default_exposed" yaml:"default_exposed"`
}

type ExportConfig struct {
	OutputDir    string        `mapstructure:"output_dir" yaml:"output_dir"`
	DefaultAlias string        `mapstructure:"default_alias" yaml:"default_alias"`
	Aliases      []AliasConfig `mapstructure:"aliases" yaml:"aliases"`
}

// AliasConfig maps a registry path prefix to an import alias.
type AliasConfig struct {
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	Alias  string `mapstructure:"alias" yaml:"alias"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultExposed returns the built-in table of props exposed on creation.
func DefaultExposed() map[string][]string {
	return map[string][]string{
		"button":      {"text"},
		"counter":     {"number"},
		"embed":       {"html"},
		"heading":     {"text"},
		"icon":        {"name"},
		"image":       {"source"},
		"simple-text": {"text"},
		"testimonial": {"text", "authorName", "authorDescription"},
		"text":        {"text"},
		"video":       {"source"},
	}
}

// DefaultAliases returns the built-in import alias table.
func DefaultAliases() []AliasConfig {
	return []AliasConfig{
		{Prefix: "building-blocks/core-elements/", Alias: "@core-elements"},
		{Prefix: "building-blocks/forms/", Alias: "@forms"},
		{Prefix: "building-blocks/wrappers/", Alias: "@wrappers"},
		{Prefix: "building-blocks/", Alias: "@building-blocks"},
		{Prefix: "page-sections/builders/", Alias: "@builders"},
		{Prefix: "page-sections/", Alias: "@page-sections"},
	}
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Apply default values for ServerConfig if not set
	if !viper.IsSet("server.port") {
		config.Server.Port = 8090
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}

	// Handle allowed origins set via viper (workaround for viper slice handling)
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}

	// Apply default values for RegistryConfig if not set
	if config.Registry.RootComponent == "" {
		config.Registry.RootComponent = DefaultRootComponent
	}
	if viper.IsSet("registry.watch") {
		config.Registry.Watch = viper.GetBool("registry.watch")
	}

	// Apply default values for BuilderConfig if not set
	if len(config.Builder.DefaultExposed) == 0 {
		config.Builder.DefaultExposed = DefaultExposed()
	}

	// Apply default values for ExportConfig if not set
	if config.Export.OutputDir == "" {
		config.Export.OutputDir = "."
	}
	if config.Export.DefaultAlias == "" {
		config.Export.DefaultAlias = "@components"
	}
	if !viper.IsSet("export.aliases") && len(config.Export.Aliases) == 0 {
		config.Export.Aliases = DefaultAliases()
	}

	// Apply default values for LoggingConfig if not set
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateRegistryConfig(&config.Registry); err != nil {
		return fmt.Errorf("registry config: %w", err)
	}

	if err := validateExportConfig(&config.Export); err != nil {
		return fmt.Errorf("export config: %w", err)
	}

	if err := validateLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	return nil
}

func validateRegistryConfig(config *RegistryConfig) error {
	if strings.TrimSpace(config.RootComponent) == "" {
		return fmt.Errorf("root_component must not be empty")
	}
	if config.Payload != "" {
		if err := validatePath(config.Payload); err != nil {
			return fmt.Errorf("invalid payload path '%s': %w", config.Payload, err)
		}
	}
	if config.Watch && config.Payload == "" {
		return fmt.Errorf("watch requires a payload path")
	}

	return nil
}

func validateExportConfig(config *ExportConfig) error {
	for i, alias := range config.Aliases {
		if alias.Prefix == "" {
			return fmt.Errorf("alias %d has an empty prefix", i)
		}
		if alias.Alias == "" {
			return fmt.Errorf("alias for prefix %q is empty", alias.Prefix)
		}
	}

	return validatePath(config.OutputDir)
}

func validateLoggingConfig(config *LoggingConfig) error {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", config.Level)
	}

	switch config.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
