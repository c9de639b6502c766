package export

import (
	"strings"

	"github.com/conneroisu/blockwright/internal/registry"
)

// DefaultAlias prefixes import paths no alias entry matches.
const DefaultAlias = "@components"

// Alias maps a registry path prefix to an import alias.
type Alias struct {
	Prefix string
	Alias  string
}

// AliasTable resolves registry paths to aliased import paths. The longest
// matching prefix wins.
type AliasTable struct {
	entries  []Alias
	fallback string
}

// NewAliasTable creates a table. An empty fallback means DefaultAlias.
func NewAliasTable(entries []Alias, fallback string) *AliasTable {
	if fallback == "" {
		fallback = DefaultAlias
	}

	return &AliasTable{
		entries:  append([]Alias(nil), entries...),
		fallback: fallback,
	}
}

// DefaultAliasTable returns the built-in alias table.
func DefaultAliasTable() *AliasTable {
	return NewAliasTable([]Alias{
		{Prefix: "building-blocks/core-elements/", Alias: "@core-elements"},
		{Prefix: "building-blocks/forms/", Alias: "@forms"},
		{Prefix: "building-blocks/wrappers/", Alias: "@wrappers"},
		{Prefix: "building-blocks/", Alias: "@building-blocks"},
		{Prefix: "page-sections/builders/", Alias: "@builders"},
		{Prefix: "page-sections/", Alias: "@page-sections"},
	}, DefaultAlias)
}

// Dir returns the aliased form of a registry directory.
func (a *AliasTable) Dir(dir string) string {
	best := -1
	for i, e := range a.entries {
		if !strings.HasPrefix(dir, e.Prefix) {
			continue
		}
		if best < 0 || len(e.Prefix) > len(a.entries[best].Prefix) {
			best = i
		}
	}
	if best < 0 {
		return a.fallback + "/" + dir
	}
	e := a.entries[best]

	return strings.TrimSuffix(e.Alias, "/") + "/" + strings.TrimPrefix(dir, e.Prefix)
}

// ImportName returns the identifier a component is imported under.
func ImportName(reg *registry.Registry, path string) string {
	name := path[strings.LastIndex(path, "/")+1:]
	if d, ok := reg.Get(path); ok && d.Name != "" {
		name = d.Name
	}

	return registry.Pascal(name)
}

// ImportPath returns the aliased module path of a component's template.
// Virtual components live in their owner's directory.
func (a *AliasTable) ImportPath(reg *registry.Registry, path string) string {
	dir := path
	file := ImportName(reg, path) + ".astro"
	if d, ok := reg.Get(path); ok {
		if d.FileName != "" {
			file = d.FileName
		}
		if d.IsVirtual {
			if i := strings.LastIndex(path, "/"); i >= 0 {
				dir = path[:i]
			}
		}
	}

	return a.Dir(dir) + "/" + file
}
