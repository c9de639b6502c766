// Package registry holds the read-only model of every component a builder
// session can insert: descriptors, declared inputs and slots, and the extra
// metadata that drives list-wrapper behaviour.
package registry

import (
	"sort"
	"strings"

	"github.com/conneroisu/blockwright/internal/errors"
)

// DefaultRootPath is the component every builder tree is rooted at.
const DefaultRootPath = "page-sections/builders/custom-section"

// DefaultSlotName is the slot assumed when a component names none.
const DefaultSlotName = "contentSections"

// categoryOrder is the display order of well-known categories.
var categoryOrder = []string{"builders", "wrappers", "core-elements", "forms"}

// Registry is an immutable index over a payload. It is safe for concurrent
// use; a reload builds a new Registry.
type Registry struct {
	components            []*Descriptor
	byPath                map[string]*Descriptor
	metadata              map[string]Metadata
	nestedBlockProperties []string
	pageSectionCategories []string
	nestingRules          map[string][]string
	rootPath              string
}

// Option configures a Registry.
type Option func(*Registry)

// WithRootPath overrides the path of the root component.
func WithRootPath(path string) Option {
	return func(r *Registry) {
		if path != "" {
			r.rootPath = path
		}
	}
}

// New indexes a payload. Descriptors must carry a unique, non-empty path.
func New(p *Payload, opts ...Option) (*Registry, error) {
	if p == nil {
		return nil, errors.NewInputError(errors.ErrCodeMalformedDocument, "payload is nil", nil)
	}

	r := &Registry{
		components:            make([]*Descriptor, 0, len(p.Components)),
		byPath:                make(map[string]*Descriptor, len(p.Components)),
		metadata:              make(map[string]Metadata, len(p.MetadataMap)),
		nestedBlockProperties: append([]string(nil), p.NestedBlockProperties...),
		pageSectionCategories: append([]string(nil), p.PageSectionCategories...),
		nestingRules:          make(map[string][]string, len(p.NestingRules)),
		rootPath:              DefaultRootPath,
	}
	for _, opt := range opts {
		opt(r)
	}

	for i, d := range p.Components {
		if d == nil || strings.TrimSpace(d.Path) == "" {
			return nil, errors.NewInputError(errors.ErrCodeMalformedDocument, "component has no path", nil).
				WithContext("index", i)
		}
		if _, dup := r.byPath[d.Path]; dup {
			return nil, errors.NewInputError(errors.ErrCodeMalformedDocument, "duplicate component path", nil).
				WithComponent(d.Path)
		}
		r.components = append(r.components, d)
		r.byPath[d.Path] = d
	}

	for path, meta := range p.MetadataMap {
		r.metadata[path] = meta
	}
	for name, allowed := range p.NestingRules {
		r.nestingRules[name] = append([]string(nil), allowed...)
	}

	return r, nil
}

// Get returns the descriptor registered under path.
func (r *Registry) Get(path string) (*Descriptor, bool) {
	d, ok := r.byPath[path]
	return d, ok
}

// Metadata returns the extra metadata recorded for path.
func (r *Registry) Metadata(path string) (Metadata, bool) {
	m, ok := r.metadata[path]
	return m, ok
}

// All returns every descriptor in payload order.
func (r *Registry) All() []*Descriptor {
	return append([]*Descriptor(nil), r.components...)
}

// Paths returns every registered path in payload order.
func (r *Registry) Paths() []string {
	paths := make([]string, len(r.components))
	for i, d := range r.components {
		paths[i] = d.Path
	}

	return paths
}

// ByCategory groups descriptors by category, keeping payload order inside
// each group.
func (r *Registry) ByCategory() map[string][]*Descriptor {
	groups := make(map[string][]*Descriptor)
	for _, d := range r.components {
		groups[d.Category] = append(groups[d.Category], d)
	}

	return groups
}

// Categories returns the categories present, well-known ones first and the
// rest alphabetically.
func (r *Registry) Categories() []string {
	present := make(map[string]bool)
	for _, d := range r.components {
		present[d.Category] = true
	}

	out := make([]string, 0, len(present))
	for _, c := range categoryOrder {
		if present[c] {
			out = append(out, c)
			delete(present, c)
		}
	}

	rest := make([]string, 0, len(present))
	for c := range present {
		rest = append(rest, c)
	}
	sort.Strings(rest)

	return append(out, rest...)
}

// NestedBlockProperties lists prop names that may hold nested block arrays.
func (r *Registry) NestedBlockProperties() []string {
	return append([]string(nil), r.nestedBlockProperties...)
}

// PageSectionCategories lists the categories offered for page-section exports.
func (r *Registry) PageSectionCategories() []string {
	return append([]string(nil), r.pageSectionCategories...)
}

// NestingRules returns the allowed component paths for a structure name.
func (r *Registry) NestingRules(structureName string) []string {
	return append([]string(nil), r.nestingRules[structureName]...)
}

// RootPath returns the path of the root component.
func (r *Registry) RootPath() string {
	return r.rootPath
}

// Root returns the root descriptor or the fatal initialization error
// raised when it is missing.
func (r *Registry) Root() (*Descriptor, error) {
	d, ok := r.byPath[r.rootPath]
	if !ok {
		return nil, errors.ErrRootNotFound(r.rootPath, r.Paths())
	}

	return d, nil
}

// DisplayName returns the human readable name of a component, or the path
// itself when the component is unknown.
func (r *Registry) DisplayName(path string) string {
	if d, ok := r.byPath[path]; ok && d.DisplayName != "" {
		return d.DisplayName
	}

	return path
}

// LegacySlot returns the fallbackFor slot of a component, or "" if none
// is declared. Metadata wins over the descriptor.
func (r *Registry) LegacySlot(path string) string {
	if m, ok := r.metadata[path]; ok && m.FallbackFor != "" {
		return m.FallbackFor
	}
	if d, ok := r.byPath[path]; ok {
		return d.FallbackFor
	}

	return ""
}

// FallbackSlot returns the default slot of a component, which is its
// legacy slot or contentSections.
func (r *Registry) FallbackSlot(path string) string {
	if s := r.LegacySlot(path); s != "" {
		return s
	}

	return DefaultSlotName
}

// SupportsSlots reports whether a component can hold children.
func (r *Registry) SupportsSlots(path string) bool {
	if m, ok := r.metadata[path]; ok && m.SupportsSlots {
		return true
	}
	d, ok := r.byPath[path]

	return ok && (d.SupportsSlots || d.HasSlots())
}

// ChildComponent returns the list-wrapper declared for a component.
func (r *Registry) ChildComponent(path string) (*ChildComponent, bool) {
	m, ok := r.metadata[path]
	if !ok || m.ChildComponent == nil {
		return nil, false
	}

	return m.ChildComponent, true
}

// ChildComponentPath returns the registry path of the list-wrapper declared
// for parentPath, e.g. "x/accordion" and "AccordionItem" give
// "x/accordion/accordion-item".
func (r *Registry) ChildComponentPath(parentPath string) (string, bool) {
	cc, ok := r.ChildComponent(parentPath)
	if !ok || cc.Name == "" {
		return "", false
	}

	return parentPath + "/" + Kebab(cc.Name), true
}

// ChildProps splits the wrapper prop list of a component into slot props
// (declared with a "/slot" suffix) and regular props.
func (r *Registry) ChildProps(path string) (slotProps, regularProps []string) {
	cc, ok := r.ChildComponent(path)
	if !ok {
		return nil, nil
	}
	for _, p := range cc.Props {
		if name, isSlot := strings.CutSuffix(p, "/slot"); isSlot {
			slotProps = append(slotProps, name)
		} else {
			regularProps = append(regularProps, p)
		}
	}

	return slotProps, regularProps
}

// ChildWrapperInput resolves the input config of a wrapper prop from the
// inline structure the parent's slot input references.
func (r *Registry) ChildWrapperInput(parentPath, slotName, prop string) (InputConfig, bool) {
	d, ok := r.byPath[parentPath]
	if !ok || d.StructureValue == nil {
		return InputConfig{}, false
	}
	slotInput, ok := d.Inputs.Get(slotName)
	if !ok {
		return InputConfig{}, false
	}
	ref := slotInput.StructuresRef()
	if ref == "" {
		return InputConfig{}, false
	}

	return d.StructureValue.StructureInputs(strings.TrimPrefix(ref, "_structures.")).Get(prop)
}
