// Package export turns a component tree into a reusable component: an
// Astro template, a CloudCannon inputs document and a CloudCannon
// structure-value document.
//
// All three documents read the same exposed decisions, computed once per
// export, so a prop listed as an input is always referenced by the template
// and never rendered as a literal.
package export

import (
	"context"
	"time"

	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/logging"
	"github.com/conneroisu/blockwright/internal/tree"
)

// Generator produces export bundles.
type Generator struct {
	aliases *AliasTable
	logger  logging.Logger
	now     func() time.Time
}

// NewGenerator creates a generator. A nil alias table means the built-in
// one and a nil logger discards output.
func NewGenerator(aliases *AliasTable, logger logging.Logger) *Generator {
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Generator{
		aliases: aliases,
		logger:  logger.WithComponent("export"),
		now:     time.Now,
	}
}

// Generate renders the three documents for t. It reads the tree and never
// modifies it. Callers are expected to have validated the tree.
func (g *Generator) Generate(ctx context.Context, t *tree.Tree, target Target) (*Bundle, error) {
	resolved, err := target.Resolve()
	if err != nil {
		return nil, err
	}
	if len(t.Roots()) == 0 {
		return nil, errors.NewExportError(errors.ErrCodeExportFailed, "tree is empty", nil)
	}

	perf := logging.StartOperation(g.logger, "export")
	p := newPlan(t)

	template, err := renderAstro(p, g.aliases, resolved.Name)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, errors.NewExportError(errors.ErrCodeExportFailed, "failed to render template", err)
	}
	if err := CheckMarkup(template); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	inputs, err := renderInputs(p)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, errors.NewExportError(errors.ErrCodeExportFailed, "failed to render inputs", err)
	}

	structure, err := renderStructureValue(p, resolved)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, errors.NewExportError(errors.ErrCodeExportFailed, "failed to render structure value", err)
	}

	perf.End(ctx)
	g.logger.Info(ctx, "Export generated",
		"path", resolved.Path,
		"inputs", len(p.fields))

	return &Bundle{
		Target:         resolved,
		Template:       template,
		Inputs:         inputs,
		StructureValue: structure,
		modified:       g.now(),
	}, nil
}

// Generate renders a bundle with the built-in alias table.
func Generate(t *tree.Tree, target Target) (*Bundle, error) {
	return NewGenerator(nil, nil).Generate(context.Background(), t, target)
}
