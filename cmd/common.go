package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/conneroisu/blockwright/internal/config"
	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/export"
	"github.com/conneroisu/blockwright/internal/logging"
	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/session"
	"github.com/conneroisu/blockwright/internal/tree"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// loadConfig loads the configuration and resolves its relative paths
// against the directory of the file it came from.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.Registry.Payload = resolvePath(cfg.Registry.Payload)
	cfg.Export.OutputDir = resolvePath(cfg.Export.OutputDir)

	return cfg, nil
}

func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	used := viper.ConfigFileUsed()
	if used == "" {
		return path
	}

	return filepath.Join(filepath.Dir(used), path)
}

func newLogger(cfg *config.Config) logging.Logger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}

func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.Registry.Payload == "" {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"no registry payload configured (set registry.payload or BLOCKWRIGHT_REGISTRY_PAYLOAD)")
	}

	payload, err := registry.LoadPayloadFile(cfg.Registry.Payload)
	if err != nil {
		return nil, err
	}

	return registry.New(payload, registry.WithRootPath(cfg.Registry.RootComponent))
}

func aliasTable(cfg *config.Config) *export.AliasTable {
	aliases := make([]export.Alias, 0, len(cfg.Export.Aliases))
	for _, a := range cfg.Export.Aliases {
		aliases = append(aliases, export.Alias{Prefix: a.Prefix, Alias: a.Alias})
	}

	return export.NewAliasTable(aliases, cfg.Export.DefaultAlias)
}

// openDocument decodes a saved tree document into a session.
func openDocument(cfg *config.Config, logger logging.Logger, path string) (*session.Session, error) {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "failed to read tree document", err).
			WithContext("path", path)
	}

	t, err := tree.DecodeDocument(reg, data, tree.WithDefaultExposed(cfg.Builder.DefaultExposed))
	if err != nil {
		return nil, err
	}

	return session.Open(t,
		session.WithLogger(logger),
		session.WithDefaultExposed(cfg.Builder.DefaultExposed),
		session.WithGenerator(export.NewGenerator(aliasTable(cfg), logger)),
	), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(v)
}
