package export

import (
	"bytes"

	"github.com/conneroisu/blockwright/internal/registry"
	"gopkg.in/yaml.v3"
)

// mapping is an insertion-ordered YAML mapping under construction.
type mapping struct {
	node *yaml.Node
}

func newMapping() *mapping {
	return &mapping{node: &yaml.Node{Kind: yaml.MappingNode}}
}

func (m *mapping) has(key string) bool {
	for i := 0; i < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == key {
			return true
		}
	}

	return false
}

func (m *mapping) set(key string, value *yaml.Node) {
	m.node.Content = append(m.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

// setValue encodes an arbitrary Go value under key. A *yaml.Node is
// stored as is.
func (m *mapping) setValue(key string, v any) error {
	if node, ok := v.(*yaml.Node); ok {
		m.set(key, node)
		return nil
	}

	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return err
	}
	m.set(key, &n)

	return nil
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func textInput(comment string) *yaml.Node {
	m := newMapping()
	m.set("type", str("text"))
	m.set("comment", str(comment))

	return m.node
}

func encodeYAML(n *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// inputConfig returns the editor configuration of a field.
func (p *plan) inputConfig(f field) (*yaml.Node, error) {
	n, _ := p.tree.Node(f.node)
	d, _ := p.reg.Get(n.Component)

	switch f.kind {
	case fieldList:
		return p.listInput(f.list)
	case fieldWrapper:
		parent, _ := p.tree.Location(f.node)
		pn, _ := p.tree.Node(parent.Parent)
		if pn != nil {
			if cfg, ok := p.reg.ChildWrapperInput(pn.Component, parent.Slot, f.prop); ok {
				return cfg.Node()
			}
		}
		return textInput(f.prop + " value"), nil
	}

	if d != nil {
		if cfg, ok := d.Inputs.Get(f.prop); ok {
			return cfg.Node()
		}
		if slot, ok := d.Slot(f.prop); ok && f.kind == fieldFreeform {
			return slotPropInput(slot)
		}
	}

	return textInput(f.prop + " value"), nil
}

// undeclaredSlot reports whether f is a slot still holding components that
// was exposed without an input declared for it. It keeps its children in
// the template and gets no editor input.
func (p *plan) undeclaredSlot(f field) bool {
	if f.kind != fieldProp || !p.tree.HasSlot(f.node, f.prop) {
		return false
	}
	n, _ := p.tree.Node(f.node)
	if d, ok := p.reg.Get(n.Component); ok {
		if _, ok := d.Inputs.Get(f.prop); ok {
			return false
		}
	}

	return true
}

// slotPropInput builds the input of a prop-mode slot from its slot
// declaration.
func slotPropInput(slot *registry.Slot) (*yaml.Node, error) {
	m := newMapping()
	typ := slot.PropType
	if typ == "" {
		typ = "array"
	}
	m.set("type", str(typ))
	if slot.PropLabel != "" {
		m.set("label", str(slot.PropLabel))
	}
	if len(slot.PropConfig) > 0 {
		if err := m.setValue("options", slot.PropConfig); err != nil {
			return nil, err
		}
	}

	return m.node, nil
}

// listInput renders a list slot as an array of objects with one example
// structure whose value lists the item fields.
func (p *plan) listInput(scope *listScope) (*yaml.Node, error) {
	fields := newMapping()
	for _, f := range scope.fields {
		if fields.has(f.name) || p.undeclaredSlot(f) {
			continue
		}
		cfg, err := p.inputConfig(f)
		if err != nil {
			return nil, err
		}
		fields.set(f.name, cfg)
	}

	item := newMapping()
	item.set("label", str("Item"))
	item.set("value", fields.node)

	structures := newMapping()
	structures.set("values", &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{item.node}})
	options := newMapping()
	options.set("structures", structures.node)

	m := newMapping()
	m.set("type", str("array"))
	m.set("label", str(registry.UpperFirst(scope.name)))
	m.set("options", options.node)

	return m.node, nil
}

// renderInputs produces the inputs document: the label input followed by
// one input per top scope field.
func renderInputs(p *plan) (string, error) {
	doc := newMapping()
	doc.set("label", textInput("Label for the component"))

	for _, f := range p.fields {
		if doc.has(f.name) || p.undeclaredSlot(f) {
			continue
		}
		cfg, err := p.inputConfig(f)
		if err != nil {
			return "", err
		}
		doc.set(f.name, cfg)
	}

	return encodeYAML(doc.node)
}
