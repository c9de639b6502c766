// Package validation detects exposed prop names that would collide in an
// exported component.
//
// Exposed props are collected per export scope. The root scope holds every
// exposed prop reachable through plain slots. A slot exported with the list
// pattern contributes one name to its enclosing scope and opens a nested
// scope made of its template item's fields; names inside that scope are only
// compared with each other.
package validation

import (
	"fmt"

	"github.com/conneroisu/blockwright/internal/tree"
)

// PropLocation identifies one exposed prop in the tree.
type PropLocation struct {
	NodeID           tree.NodeID `json:"nodeId"`
	NodePath         string      `json:"nodePath"`
	OriginalPropName string      `json:"originalPropName"`
	ExposedPropName  string      `json:"exposedPropName"`
}

// Duplicate is one exposed name claimed by more than one prop.
type Duplicate struct {
	ExposedName string         `json:"exposedName"`
	Locations   []PropLocation `json:"locations"`
	// Scope is the exposed name of the list slot owning a scoped duplicate.
	Scope string `json:"scope,omitempty"`
}

// Result is the outcome of one validation pass.
type Result struct {
	Valid      bool        `json:"isValid"`
	Duplicates []Duplicate `json:"duplicateProps"`
}

// Names returns the exposed names of every duplicate in report order.
func (r Result) Names() []string {
	names := make([]string, 0, len(r.Duplicates))
	for _, d := range r.Duplicates {
		names = append(names, d.ExposedName)
	}

	return names
}

// BuiltinPath is the node path reported for a field every exported
// component declares.
const BuiltinPath = "Component fields"

// builtinFields maps each name taken by the exported component's own props
// to the field declaring it.
var builtinFields = map[string]string{
	"label":           "label",
	"class":           "class",
	"className":       "class",
	tree.KeyComponent: tree.KeyComponent,
	"htmlAttributes":  "htmlAttributes",
}

// Validate walks t and reports exposed-name collisions. Top-level duplicates
// come first in the order their names were first seen, followed by scoped
// duplicates. A top-level name equal to one of the component's built-in
// fields is a duplicate whose first location carries no node id. Validate
// never mutates t.
func Validate(t *tree.Tree) Result {
	v := &validator{
		tree:   t,
		byName: make(map[string][]PropLocation),
	}

	for i, root := range t.Roots() {
		v.collect(root, v.label(root, i), "")
	}

	dups := make([]Duplicate, 0)
	for _, name := range v.order {
		locs := v.byName[name]
		if field, ok := builtinFields[name]; ok {
			builtin := PropLocation{NodePath: BuiltinPath, OriginalPropName: field, ExposedPropName: name}
			locs = append([]PropLocation{builtin}, locs...)
		}
		if distinctNodes(locs) > 1 {
			dups = append(dups, Duplicate{ExposedName: name, Locations: locs})
		}
	}
	dups = append(dups, v.scoped...)

	return Result{
		Valid:      len(dups) == 0,
		Duplicates: dups,
	}
}

type validator struct {
	tree   *tree.Tree
	byName map[string][]PropLocation
	order  []string
	scoped []Duplicate
}

func (v *validator) add(loc PropLocation) {
	if _, seen := v.byName[loc.ExposedPropName]; !seen {
		v.order = append(v.order, loc.ExposedPropName)
	}
	v.byName[loc.ExposedPropName] = append(v.byName[loc.ExposedPropName], loc)
}

// label renders the "<Display name> #<n>" segment of a node path.
func (v *validator) label(id tree.NodeID, index int) string {
	n, ok := v.tree.Node(id)
	if !ok {
		return fmt.Sprintf("#%d", index+1)
	}

	return fmt.Sprintf("%s #%d", v.tree.Registry().DisplayName(n.Component), index+1)
}

func (v *validator) location(id tree.NodeID, path, prop string) PropLocation {
	return PropLocation{
		NodeID:           id,
		NodePath:         path,
		OriginalPropName: prop,
		ExposedPropName:  v.tree.ExposedName(id, prop),
	}
}

func (v *validator) collect(id tree.NodeID, nodePath, parentPath string) {
	t := v.tree

	path := nodePath
	if parentPath != "" {
		path = parentPath + " > " + nodePath
	}

	slots := t.SlotNames(id)
	listSlots := make(map[string]bool)
	for _, slot := range slots {
		if t.UsesListPattern(id, slot) {
			listSlots[slot] = true
		}
	}

	for _, prop := range t.ExposedProps(id) {
		if listSlots[prop] {
			continue
		}
		v.add(v.location(id, path, prop))
	}
	for _, slot := range t.PropModeSlots(id) {
		v.add(v.location(id, path, slot))
	}

	for _, slot := range slots {
		if t.Mode(id, slot) == tree.ModeProp {
			continue
		}
		children := t.Children(id, slot)

		if !listSlots[slot] {
			for i, child := range children {
				v.collect(child, v.label(child, i), path)
			}
			continue
		}

		loc := v.location(id, path, slot)
		v.add(loc)
		if len(children) > 0 {
			v.checkItemScope(loc.ExposedPropName, children[0], path+" > "+v.label(children[0], 0))
		}
	}
}

// checkItemScope reports names claimed twice among the fields of a list
// slot's template item. The same prop reached through two flags counts once.
func (v *validator) checkItemScope(scope string, template tree.NodeID, path string) {
	locs := v.collectScoped(template, path, nil)

	var order []string
	byName := make(map[string][]PropLocation)
	for _, loc := range locs {
		if _, seen := byName[loc.ExposedPropName]; !seen {
			order = append(order, loc.ExposedPropName)
		}
		byName[loc.ExposedPropName] = append(byName[loc.ExposedPropName], loc)
	}

	for _, name := range order {
		group := byName[name]
		if distinctProps(group) > 1 {
			v.scoped = append(v.scoped, Duplicate{
				ExposedName: fmt.Sprintf("%s (within %s item schema)", name, scope),
				Locations:   group,
				Scope:       scope,
			})
		}
	}
}

func (v *validator) collectScoped(id tree.NodeID, path string, out []PropLocation) []PropLocation {
	t := v.tree

	for _, prop := range t.ExposedProps(id) {
		out = append(out, v.location(id, path, prop))
	}
	for _, slot := range t.PropModeSlots(id) {
		out = append(out, v.location(id, path, slot))
	}

	for _, slot := range t.SlotNames(id) {
		if t.Mode(id, slot) == tree.ModeProp {
			continue
		}
		for i, child := range t.Children(id, slot) {
			out = v.collectScoped(child, path+" > "+v.label(child, i), out)
		}
	}

	return out
}

func distinctNodes(locs []PropLocation) int {
	seen := make(map[tree.NodeID]struct{}, len(locs))
	for _, l := range locs {
		seen[l.NodeID] = struct{}{}
	}

	return len(seen)
}

func distinctProps(locs []PropLocation) int {
	type key struct {
		node tree.NodeID
		prop string
	}
	seen := make(map[key]struct{}, len(locs))
	for _, l := range locs {
		seen[key{l.NodeID, l.OriginalPropName}] = struct{}{}
	}

	return len(seen)
}
