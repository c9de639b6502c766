package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/validation"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate <tree-file>",
	Short: "Check a saved component tree for exposed prop name collisions",
	Long: `Decode a saved component tree (YAML or JSON), apply forced exposure and
report every exposed prop name claimed more than once. Duplicates inside a
list item are reported with the list they belong to.

The command exits with an error when the tree would be rejected by export.

Examples:
  blockwright validate tree.yml
  blockwright validate tree.json -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateFlags *StandardFlags

func init() {
	rootCmd.AddCommand(validateCmd)

	validateFlags = AddStandardFlags(validateCmd, "output")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := validateFlags.ValidateFlags(cmd); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := ValidateFileExists(args[0]); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := openDocument(cfg, newLogger(cfg), args[0])
	if err != nil {
		return err
	}

	result := sess.Validation()
	out := cmd.OutOrStdout()

	if !validateFlags.Quiet {
		switch strings.ToLower(validateFlags.OutputFormat) {
		case "json":
			err = writeJSON(out, result)
		case "yaml":
			err = writeYAML(out, result)
		default:
			err = outputValidation(out, result)
		}
		if err != nil {
			return err
		}
	}

	if !result.Valid {
		return errors.NewValidationError(errors.ErrCodeDuplicateExposed,
			fmt.Sprintf("%d duplicate exposed prop names", len(result.Duplicates))).
			WithContext("duplicates", result.Names())
	}

	return nil
}

func outputValidation(w io.Writer, result validation.Result) error {
	if result.Valid {
		_, err := fmt.Fprintln(w, "Tree is valid: no duplicate exposed prop names.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCOPE\tNODE\tPROP\tLOCATION")
	for _, d := range result.Duplicates {
		scope := d.Scope
		if scope == "" {
			scope = "-"
		}
		for _, loc := range d.Locations {
			node := string(loc.NodeID)
			if node == "" {
				node = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				d.ExposedName, scope, node, loc.OriginalPropName, loc.NodePath)
		}
	}

	return tw.Flush()
}
