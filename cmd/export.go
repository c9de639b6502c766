package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/blockwright/internal/export"
	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:     "export <tree-file>",
	Aliases: []string{"e"},
	Short:   "Generate component files from a saved tree",
	Long: `Generate the Astro template, CloudCannon inputs and structure value for a
saved component tree. Files are written under
<output>/<kind>s/<category>/<name>/ unless --zip is given, in which case a
single <name>.zip archive is written to the output directory.

Examples:
  blockwright export tree.yml --kind page-section --category heroes --name split-hero
  blockwright export tree.yml --name cta --category buttons --zip
  blockwright export tree.yml --name cta --category buttons --out ./src/components`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportKind     string
	exportCategory string
	exportName     string
	exportOut      string
	exportZip      bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportKind, "kind", "k", string(export.KindBuildingBlock), "Component kind (building-block, page-section)")
	exportCmd.Flags().StringVarP(&exportCategory, "category", "c", "", "Category directory of the component")
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "", "Component name")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output directory (default export.output_dir)")
	exportCmd.Flags().BoolVar(&exportZip, "zip", false, "Write a zip archive instead of files")

	_ = exportCmd.MarkFlagRequired("name")
	_ = exportCmd.MarkFlagRequired("category")

	AddFlagValidation(exportCmd, "kind", func(kind string) error {
		_, err := export.ParseKind(kind)
		return err
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := ValidateFileExists(args[0]); err != nil {
		return err
	}
	kind, err := export.ParseKind(exportKind)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	sess, err := openDocument(cfg, logger, args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	bundle, err := sess.Export(ctx, export.Target{
		Kind:     kind,
		Category: exportCategory,
		Name:     registry.Kebab(exportName),
	})
	if err != nil {
		return err
	}

	outDir := exportOut
	if outDir == "" {
		outDir = cfg.Export.OutputDir
	}
	out := cmd.OutOrStdout()

	if exportZip {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		path := filepath.Join(outDir, bundle.ArchiveName())
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}
		if err := bundle.WriteArchive(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing archive: %w", err)
		}
		fmt.Fprintln(out, path)

		return nil
	}

	written, err := bundle.WriteDir(outDir)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintln(out, path)
	}

	return nil
}
