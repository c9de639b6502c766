package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			setup: func() {
				viper.Reset()
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8090, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Server.Host)
				assert.Equal(t, DefaultRootComponent, cfg.Registry.RootComponent)
				assert.Equal(t, DefaultExposed(), cfg.Builder.DefaultExposed)
				assert.Equal(t, DefaultAliases(), cfg.Export.Aliases)
				assert.Equal(t, "@components", cfg.Export.DefaultAlias)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "explicit values",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 3000)
				viper.Set("server.host", "0.0.0.0")
				viper.Set("server.allowed_origins", []string{"http://localhost:4321"})
				viper.Set("registry.payload", "payload.yml")
				viper.Set("registry.watch", true)
				viper.Set("logging.format", "json")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3000, cfg.Server.Port)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, []string{"http://localhost:4321"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, "payload.yml", cfg.Registry.Payload)
				assert.True(t, cfg.Registry.Watch)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "port out of range",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "unparsable port",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "watch without payload",
			setup: func() {
				viper.Reset()
				viper.Set("registry.watch", true)
			},
			expectError: true,
		},
		{
			name: "unknown log level",
			setup: func() {
				viper.Reset()
				viper.Set("logging.level", "verbose")
			},
			expectError: true,
		},
		{
			name: "payload traversal",
			setup: func() {
				viper.Reset()
				viper.Set("registry.payload", "../../etc/passwd")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			cfg, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".blockwright.yml")
	content := `
server:
  port: 9001
registry:
  root_component: page-sections/builders/hero
builder:
  default_exposed:
    button: [text, link]
export:
  default_alias: "@ui"
  aliases:
    - prefix: building-blocks/
      alias: "@blocks"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	viper.Reset()
	defer viper.Reset()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "page-sections/builders/hero", cfg.Registry.RootComponent)
	assert.Equal(t, map[string][]string{"button": {"text", "link"}}, cfg.Builder.DefaultExposed)
	assert.Equal(t, "@ui", cfg.Export.DefaultAlias)
	assert.Equal(t, []AliasConfig{{Prefix: "building-blocks/", Alias: "@blocks"}}, cfg.Export.Aliases)
}

func TestValidateExportConfig(t *testing.T) {
	err := validateExportConfig(&ExportConfig{
		OutputDir: ".",
		Aliases:   []AliasConfig{{Prefix: "", Alias: "@x"}},
	})
	assert.Error(t, err)

	err = validateExportConfig(&ExportConfig{
		OutputDir: "dist",
		Aliases:   DefaultAliases(),
	})
	assert.NoError(t, err)
}
