package cmd

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/testutils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const duplicateTree = `
componentTree:
  - _component: page-sections/builders/custom-section
    _isRootComponent: true
    contentSections:
      - _component: building-blocks/core-elements/button
        text: Go
        _hardcoded_text: false
      - _component: building-blocks/core-elements/heading
        text: Welcome
        _hardcoded_text: false
`

const validTree = `
componentTree:
  - _component: page-sections/builders/custom-section
    _isRootComponent: true
    contentSections:
      - _component: building-blocks/core-elements/button
        text: Go
        _hardcoded_text: false
      - _component: building-blocks/core-elements/heading
        text: Welcome
        _hardcoded_text: false
        _renamed_text: headline
`

// resetFlags restores every flag to its default so global command state
// does not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	cfgFile = ""
	resetFlags(rootCmd)
	t.Cleanup(viper.Reset)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return buf.String(), err
}

func writeTree(t *testing.T, dir, doc string) string {
	t.Helper()

	path := filepath.Join(dir, "tree.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	return path
}

func TestListCommand(t *testing.T) {
	dir := testutils.CreateTempProject(t)
	config := filepath.Join(dir, ".blockwright.yml")

	out, err := execute(t, "list", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, testutils.ButtonPath)
	assert.NotContains(t, out, testutils.AccordionItemPath, "virtual components are hidden by default")

	out, err = execute(t, "list", "--config", config, "-o", "json", "--virtual")
	require.NoError(t, err)
	var components []componentSummary
	require.NoError(t, json.Unmarshal([]byte(out), &components))
	paths := make([]string, 0, len(components))
	for _, c := range components {
		paths = append(paths, c.Path)
	}
	assert.Contains(t, paths, testutils.AccordionItemPath)

	out, err = execute(t, "list", "--config", config, "-o", "yaml", "--category", "wrappers")
	require.NoError(t, err)
	var wrappers []componentSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &wrappers))
	require.NotEmpty(t, wrappers)
	for _, c := range wrappers {
		assert.Equal(t, "wrappers", c.Category)
	}
}

func TestListCommandRejectsFormat(t *testing.T) {
	dir := testutils.CreateTempProject(t)

	_, err := execute(t, "list", "--config", filepath.Join(dir, ".blockwright.yml"), "-o", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestListCommandWithoutPayload(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, ".blockwright.yml")
	require.NoError(t, os.WriteFile(config, []byte("server:\n  port: 9000\n"), 0o644))

	_, err := execute(t, "list", "--config", config)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
}

func TestValidateCommand(t *testing.T) {
	dir := testutils.CreateTempProject(t)
	config := filepath.Join(dir, ".blockwright.yml")

	out, err := execute(t, "validate", writeTree(t, dir, duplicateTree), "--config", config)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
	assert.Contains(t, out, "text")
	assert.Contains(t, out, "LOCATION")

	out, err = execute(t, "validate", writeTree(t, dir, validTree), "--config", config, "-o", "json")
	require.NoError(t, err)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, true, result["isValid"])

	_, err = execute(t, "validate", filepath.Join(dir, "missing.yml"), "--config", config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestExportCommand(t *testing.T) {
	dir := testutils.CreateTempProject(t)
	config := filepath.Join(dir, ".blockwright.yml")
	doc := writeTree(t, dir, validTree)

	out, err := execute(t, "export", doc, "--config", config, "--category", "buttons", "--name", "CallToAction")
	require.NoError(t, err)

	base := filepath.Join(dir, "dist", "building-blocks", "buttons", "call-to-action")
	assert.FileExists(t, filepath.Join(base, "call-to-action.astro"))
	assert.FileExists(t, filepath.Join(base, "call-to-action.cloudcannon.inputs.yml"))
	assert.FileExists(t, filepath.Join(base, "call-to-action.cloudcannon.structure-value.yml"))
	assert.Equal(t, 3, strings.Count(out, base))

	template, err := os.ReadFile(filepath.Join(base, "call-to-action.astro"))
	require.NoError(t, err)
	assert.Contains(t, string(template), "text={headline}")
}

func TestExportCommandZip(t *testing.T) {
	dir := testutils.CreateTempProject(t)
	out := t.TempDir()

	_, err := execute(t, "export", writeTree(t, dir, validTree),
		"--config", filepath.Join(dir, ".blockwright.yml"),
		"--kind", "page-sections", "--category", "heroes", "--name", "hero",
		"--out", out, "--zip")
	require.NoError(t, err)

	zr, err := zip.OpenReader(filepath.Join(out, "hero.zip"))
	require.NoError(t, err)
	defer zr.Close()
	assert.Len(t, zr.File, 3)
	assert.Equal(t, "hero.astro", zr.File[0].Name)
}

func TestExportCommandRejectsDuplicates(t *testing.T) {
	dir := testutils.CreateTempProject(t)

	_, err := execute(t, "export", writeTree(t, dir, duplicateTree),
		"--config", filepath.Join(dir, ".blockwright.yml"),
		"--category", "buttons", "--name", "cta")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
	assert.NoDirExists(t, filepath.Join(dir, "dist", "building-blocks", "buttons"))
}

func TestExportCommandRejectsKind(t *testing.T) {
	dir := testutils.CreateTempProject(t)

	_, err := execute(t, "export", writeTree(t, dir, validTree),
		"--config", filepath.Join(dir, ".blockwright.yml"),
		"--kind", "widget", "--category", "buttons", "--name", "cta")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown component kind")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "blockwright "))

	_, err = execute(t, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestStandardFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   StandardFlags
		wantErr string
	}{
		{name: "defaults", flags: StandardFlags{Port: 8090, Host: "localhost", OutputFormat: "table"}},
		{name: "bad port", flags: StandardFlags{Port: 70000, Host: "localhost", OutputFormat: "table"}, wantErr: "port"},
		{name: "empty host", flags: StandardFlags{Port: 80, OutputFormat: "table"}, wantErr: "host"},
		{name: "bad format", flags: StandardFlags{Port: 80, Host: "h", OutputFormat: "xml"}, wantErr: "output format"},
		{name: "quiet and verbose", flags: StandardFlags{Port: 80, Host: "h", OutputFormat: "json", Quiet: true, Verbose: true}, wantErr: "--quiet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			AddStandardFlags(cmd, "server", "output")

			err := tt.flags.ValidateFlags(cmd)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlagValidators(t *testing.T) {
	assert.NoError(t, ValidatePort("8090"))
	assert.Error(t, ValidatePort("eighty"))
	assert.Error(t, ValidatePort("-1"))

	assert.NoError(t, ValidateFileExists(""))
	assert.Error(t, ValidateFileExists(filepath.Join(t.TempDir(), "nope")))

	assert.NoError(t, ValidateFormat("JSON", outputFormats))
	assert.Error(t, ValidateFormat("csv", outputFormats))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("kind", "a", "")
	AddFlagValidation(cmd, "kind", func(v string) error {
		if v == "bad" {
			return assert.AnError
		}
		return nil
	})
	assert.Error(t, cmd.Flags().Set("kind", "bad"))
	require.NoError(t, cmd.Flags().Set("kind", "good"))
	got, err := cmd.Flags().GetString("kind")
	require.NoError(t, err)
	assert.Equal(t, "good", got)
}
