package export

import (
	"strings"

	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/tree"
)

type fieldKind int

const (
	// fieldProp is a plain prop flagged exposed.
	fieldProp fieldKind = iota
	// fieldFreeform is a slot switched to prop mode.
	fieldFreeform
	// fieldList is a slot exported with the list pattern.
	fieldList
	// fieldWrapper is a regular prop of a list item wrapper.
	fieldWrapper
)

// field is one input of the exported component or of a list item schema.
type field struct {
	name string
	node tree.NodeID
	prop string
	kind fieldKind
	list *listScope
}

// listScope is the item schema opened by a list-pattern slot.
type listScope struct {
	parent   tree.NodeID
	slot     string
	name     string
	singular string
	template tree.NodeID
	fields   []field
}

// plan holds the exposed decisions every generated document reads from,
// so the template, the inputs and the structure value always agree.
type plan struct {
	tree   *tree.Tree
	reg    *registry.Registry
	fields []field
	lists  map[listKey]*listScope
}

type listKey struct {
	node tree.NodeID
	slot string
}

func newPlan(t *tree.Tree) *plan {
	p := &plan{
		tree:  t,
		reg:   t.Registry(),
		lists: make(map[listKey]*listScope),
	}

	seen := make(map[string]bool)
	for _, root := range t.Roots() {
		p.fields = p.collect(root, p.fields, seen)
	}

	return p
}

// exposed reports whether a prop renders as a reference rather than a
// literal.
func (p *plan) exposed(id tree.NodeID, prop string) bool {
	return p.tree.IsExposed(id, prop) || p.tree.Mode(id, prop) == tree.ModeProp
}

func (p *plan) list(id tree.NodeID, slot string) *listScope {
	return p.lists[listKey{id, slot}]
}

func appendField(fields []field, seen map[string]bool, f field) []field {
	if seen[f.name] {
		return fields
	}
	seen[f.name] = true

	return append(fields, f)
}

// ownFields returns the exposed props and prop-mode slots of one node,
// leaving out list-pattern slots.
func (p *plan) ownFields(id tree.NodeID, skip map[string]bool) []field {
	t := p.tree

	var out []field
	own := make(map[string]bool)
	for _, prop := range t.ExposedProps(id) {
		if skip[prop] {
			continue
		}
		kind := fieldProp
		if t.Mode(id, prop) == tree.ModeProp {
			kind = fieldFreeform
		}
		own[prop] = true
		out = append(out, field{name: t.ExposedName(id, prop), node: id, prop: prop, kind: kind})
	}
	for _, slot := range t.PropModeSlots(id) {
		if own[slot] {
			continue
		}
		out = append(out, field{name: t.ExposedName(id, slot), node: id, prop: slot, kind: fieldFreeform})
	}

	return out
}

func (p *plan) collect(id tree.NodeID, fields []field, seen map[string]bool) []field {
	t := p.tree

	listSlots := make(map[string]bool)
	for _, slot := range t.SlotNames(id) {
		if t.UsesListPattern(id, slot) {
			listSlots[slot] = true
		}
	}

	for _, f := range p.ownFields(id, listSlots) {
		fields = appendField(fields, seen, f)
	}

	for _, slot := range t.SlotNames(id) {
		if t.Mode(id, slot) == tree.ModeProp {
			continue
		}
		if !listSlots[slot] {
			for _, child := range t.Children(id, slot) {
				fields = p.collect(child, fields, seen)
			}
			continue
		}

		scope := p.openList(id, slot)
		fields = appendField(fields, seen, field{
			name: scope.name,
			node: id,
			prop: slot,
			kind: fieldList,
			list: scope,
		})
	}

	return fields
}

func (p *plan) openList(id tree.NodeID, slot string) *listScope {
	t := p.tree

	name := t.ExposedName(id, slot)
	scope := &listScope{
		parent:   id,
		slot:     slot,
		name:     name,
		singular: singular(name),
	}
	p.lists[listKey{id, slot}] = scope

	children := t.Children(id, slot)
	if len(children) == 0 {
		return scope
	}
	scope.template = children[0]

	seen := make(map[string]bool)
	scope.fields = p.collectItem(scope.template, scope.fields, seen)

	n, _ := t.Node(id)
	_, regular := p.reg.ChildProps(n.Component)
	for _, prop := range regular {
		scope.fields = appendField(scope.fields, seen, field{
			name: t.ExposedName(scope.template, prop),
			node: scope.template,
			prop: prop,
			kind: fieldWrapper,
		})
	}

	return scope
}

// collectItem gathers the fields of a list item: every exposed prop of the
// template node and of its descendants.
func (p *plan) collectItem(id tree.NodeID, fields []field, seen map[string]bool) []field {
	t := p.tree

	for _, f := range p.ownFields(id, nil) {
		fields = appendField(fields, seen, f)
	}
	for _, slot := range t.SlotNames(id) {
		if t.Mode(id, slot) == tree.ModeProp {
			continue
		}
		for _, child := range t.Children(id, slot) {
			fields = p.collectItem(child, fields, seen)
		}
	}

	return fields
}

// names returns the top scope field names in order.
func (p *plan) names() []string {
	out := make([]string, 0, len(p.fields))
	for _, f := range p.fields {
		out = append(out, f.name)
	}

	return out
}

// allFields returns the top scope fields followed by every list item field.
func (p *plan) allFields() []field {
	var out []field
	var walk func([]field)
	walk = func(fields []field) {
		for _, f := range fields {
			out = append(out, f)
			if f.list != nil {
				walk(f.list.fields)
			}
		}
	}
	walk(p.fields)

	return out
}

func singular(name string) string {
	if s, ok := strings.CutSuffix(name, "s"); ok && s != "" {
		return s
	}

	return "item"
}
