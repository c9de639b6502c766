package export

import (
	"regexp"

	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/tree"
	"gopkg.in/yaml.v3"
)

var structureRef = regexp.MustCompile(`_structures\.(\w+)`)

// stripIDs removes node ids from a cleaned value, recursively.
func stripIDs(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if k == tree.KeyID {
				continue
			}
			out[k] = stripIDs(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = stripIDs(item)
		}
		return out
	default:
		return v
	}
}

// findValue searches a cleaned node and its descendants depth first for
// the first value stored under prop.
func findValue(doc map[string]any, prop string) (any, bool) {
	if v, ok := doc[prop]; ok && v != nil {
		return v, true
	}
	for _, v := range doc {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			if child, ok := item.(map[string]any); ok {
				if found, ok := findValue(child, prop); ok {
					return found, true
				}
			}
		}
	}

	return nil, false
}

// fieldValue returns the example value of a field taken from the tree.
// A list field yields a one-item sequence whose keys follow the item
// schema order.
func (p *plan) fieldValue(f field) (any, error) {
	switch f.kind {
	case fieldList:
		if f.list.template == "" {
			return []any{}, nil
		}
		item := newMapping()
		for _, sub := range f.list.fields {
			if item.has(sub.name) {
				continue
			}
			v, err := p.fieldValue(sub)
			if err != nil {
				return nil, err
			}
			if err := item.setValue(sub.name, v); err != nil {
				return nil, err
			}
		}
		return &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{item.node}}, nil
	}

	return p.scalarValue(f), nil
}

// scalarValue returns the example value of a field that is not a list.
func (p *plan) scalarValue(f field) any {
	t := p.tree

	switch f.kind {
	case fieldFreeform:
		if v, ok := t.Value(f.node, f.prop); ok {
			return stripIDs(v)
		}
		return []any{}
	}

	if v, ok := t.Value(f.node, f.prop); ok {
		return stripIDs(v)
	}
	if f.kind == fieldWrapper {
		if clean, ok := t.CleanNode(f.node); ok {
			if v, ok := findValue(clean, f.prop); ok {
				return stripIDs(v)
			}
		}
	}
	if t.HasSlot(f.node, f.prop) {
		return []any{}
	}
	n, _ := t.Node(f.node)
	if d, ok := p.reg.Get(n.Component); ok {
		if cfg, ok := d.Inputs.Get(f.prop); ok && cfg.Default != nil {
			return cfg.Default
		}
	}

	return ""
}

// structures returns the inline structure definitions referenced by the
// prop-mode slots of the export, keyed by name in first-seen order.
func (p *plan) structures() (names []string, defs map[string]*yaml.Node) {
	defs = make(map[string]*yaml.Node)
	for _, f := range p.allFields() {
		if f.kind != fieldFreeform {
			continue
		}
		n, _ := p.tree.Node(f.node)
		d, ok := p.reg.Get(n.Component)
		if !ok {
			continue
		}
		cfg, ok := d.Inputs.Get(f.prop)
		if !ok {
			continue
		}
		m := structureRef.FindStringSubmatch(cfg.StructuresRef())
		if m == nil {
			continue
		}
		def, ok := d.StructureValue.Structure(m[1])
		if !ok {
			continue
		}
		if _, dup := defs[m[1]]; !dup {
			names = append(names, m[1])
			defs[m[1]] = def
		}
	}

	return names, defs
}

// renderStructureValue produces the example-value document of the export.
func renderStructureValue(p *plan, target Resolved) (string, error) {
	display := registry.TitleWords(target.Name)

	value := newMapping()
	value.set(tree.KeyComponent, str(target.Path))
	value.set("label", str(""))
	for _, f := range p.fields {
		if value.has(f.name) {
			continue
		}
		v, err := p.fieldValue(f)
		if err != nil {
			return "", err
		}
		if err := value.setValue(f.name, v); err != nil {
			return "", err
		}
	}

	preview := newMapping()
	preview.set("text", &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{str(display)}})

	doc := newMapping()
	doc.set("label", str(display))
	doc.set("description", str(display+" description"))
	doc.set("value", value.node)
	doc.set("preview", preview.node)

	if names, defs := p.structures(); len(names) > 0 {
		s := newMapping()
		for _, name := range names {
			s.set(name, defs[name])
		}
		doc.set("_structures", s.node)
	}

	return encodeYAML(doc.node)
}
