package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List registry components",
	Long: `List the components of the configured registry payload with their
category, slots and editable inputs.

Examples:
  blockwright list                        # Table of every component
  blockwright list -o json                # Output as JSON
  blockwright list --category wrappers    # Only one category
  blockwright list --virtual -o yaml      # Include list item wrappers`,
	RunE: runList,
}

var (
	listFlags    *StandardFlags
	listCategory string
	listVirtual  bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddStandardFlags(listCmd, "output")

	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "Only list components of this category")
	listCmd.Flags().BoolVar(&listVirtual, "virtual", false, "Include virtual wrapper components")

	AddFlagValidation(listCmd, "output", func(format string) error {
		return ValidateFormat(format, outputFormats)
	})
}

// componentSummary is the listed form of a descriptor.
type componentSummary struct {
	Path        string   `json:"path" yaml:"path"`
	DisplayName string   `json:"displayName" yaml:"displayName"`
	Category    string   `json:"category" yaml:"category"`
	Slots       []string `json:"slots,omitempty" yaml:"slots,omitempty"`
	Inputs      []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Virtual     bool     `json:"virtual,omitempty" yaml:"virtual,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	if err := listFlags.ValidateFlags(cmd); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	components := summarize(reg, listCategory, listVirtual)
	out := cmd.OutOrStdout()

	if len(components) == 0 && !listFlags.Quiet {
		fmt.Fprintln(out, "No components found.")
		return nil
	}

	switch strings.ToLower(listFlags.OutputFormat) {
	case "json":
		return writeJSON(out, components)
	case "yaml":
		return writeYAML(out, components)
	default:
		return outputTable(out, components, listFlags.Verbose)
	}
}

func summarize(reg *registry.Registry, category string, virtual bool) []componentSummary {
	out := make([]componentSummary, 0)
	for _, d := range reg.All() {
		if d.IsVirtual && !virtual {
			continue
		}
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}

		slots := make([]string, 0, len(d.Slots))
		for _, s := range d.Slots {
			slots = append(slots, s.PropName)
		}
		out = append(out, componentSummary{
			Path:        d.Path,
			DisplayName: reg.DisplayName(d.Path),
			Category:    d.Category,
			Slots:       slots,
			Inputs:      d.Inputs.Names(),
			Virtual:     d.IsVirtual,
		})
	}

	return out
}

func outputTable(w io.Writer, components []componentSummary, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if verbose {
		fmt.Fprintln(tw, "NAME\tCATEGORY\tSLOTS\tINPUTS\tPATH")
	} else {
		fmt.Fprintln(tw, "NAME\tCATEGORY\tSLOTS\tPATH")
	}
	for _, c := range components {
		slots := strings.Join(c.Slots, ",")
		if slots == "" {
			slots = "-"
		}
		if verbose {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.DisplayName, c.Category, slots, strings.Join(c.Inputs, ","), c.Path)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.DisplayName, c.Category, slots, c.Path)
	}

	return tw.Flush()
}
