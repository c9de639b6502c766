// Package tree implements the component tree as an arena of nodes addressed
// by stable ids. Every node records its parent and the slot it sits in, so
// location lookups and ancestor checks walk up the tree instead of
// searching it.
//
// Per-prop exposure flags, renames and slot modes live in typed tables next
// to each node. Encode and Decode translate to and from the open-ended
// document shape used on the wire, where the same information is carried
// by _hardcoded_<prop>, _renamed_<prop> and _<slot>_mode keys.
package tree

import (
	"fmt"

	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/registry"
)

// NodeID identifies a node for the lifetime of a tree.
type NodeID string

// Node is one component instance. Fields other than the exported ones are
// reached through Tree methods.
type Node struct {
	ID        NodeID
	Component string
	Root      bool

	parent     NodeID
	parentSlot string
	attached   bool

	values     map[string]any
	valueOrder []string

	slots     map[string][]NodeID
	slotOrder []string

	flags     map[string]*PropFlags
	flagOrder []string

	modes     map[string]SlotMode
	modeOrder []string
}

func newNode(id NodeID, component string) *Node {
	return &Node{
		ID:        id,
		Component: component,
		values:    make(map[string]any),
		slots:     make(map[string][]NodeID),
		flags:     make(map[string]*PropFlags),
		modes:     make(map[string]SlotMode),
	}
}

func (n *Node) ensureSlot(name string) {
	if _, ok := n.slots[name]; ok {
		return
	}
	n.slots[name] = []NodeID{}
	n.slotOrder = append(n.slotOrder, name)
}

// Location describes where a node is attached. An empty Parent means the
// node sits in the root-level array.
type Location struct {
	Parent NodeID `json:"parentId"`
	Slot   string `json:"slotName"`
	Index  int    `json:"index"`
}

// RootLevel reports whether the location is the root-level array.
func (l Location) RootLevel() bool {
	return l.Parent == ""
}

// Tree is the arena holding every node of one builder composition. It is
// not safe for concurrent use.
type Tree struct {
	reg            *registry.Registry
	nodes          map[NodeID]*Node
	roots          []NodeID
	next           int
	defaultExposed map[string][]string
}

// Option configures a Tree.
type Option func(*Tree)

// WithDefaultExposed sets the component name to prop list table used to
// expose props on newly created nodes.
func WithDefaultExposed(table map[string][]string) Option {
	return func(t *Tree) {
		t.defaultExposed = table
	}
}

// New creates an empty tree resolving components against reg.
func New(reg *registry.Registry, opts ...Option) *Tree {
	t := &Tree{
		reg:   reg,
		nodes: make(map[NodeID]*Node),
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Registry returns the registry the tree resolves components against.
func (t *Tree) Registry() *registry.Registry {
	return t.reg
}

// Len returns the number of nodes in the arena, attached or not.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// InitRoot creates the root node and places it at the root level. A
// registry without the root component is a fatal error.
func (t *Tree) InitRoot() (NodeID, error) {
	d, err := t.reg.Root()
	if err != nil {
		return "", err
	}

	n := t.CreateNode(d)
	n.Root = true
	n.attached = true
	t.roots = append(t.roots, n.ID)

	return n.ID, nil
}

// CreateNode adds a detached node built from d. Non-array default values
// are copied from the descriptor's structure value, declared slots start
// empty, and every declared input is flagged hardcoded unless the default
// exposure table lists it for the component.
func (t *Tree) CreateNode(d *registry.Descriptor) *Node {
	id := NodeID(fmt.Sprintf("component-%d", t.next))
	t.next++

	n := newNode(id, d.Path)
	if d.StructureValue != nil {
		for _, f := range d.StructureValue.Value {
			if f.Key == "_component" {
				continue
			}
			if _, isArray := f.Value.([]any); isArray {
				continue
			}
			n.setValue(f.Key, copyValue(f.Value))
		}
	}

	for _, s := range d.Slots {
		n.ensureSlot(s.PropName)
	}

	exposed := t.defaultExposed[d.Name]
	for _, in := range d.Inputs {
		e := ExposureHardcoded
		if contains(exposed, in.Name) {
			e = ExposureExposed
		}
		n.flag(in.Name).Exposure = e
	}

	t.nodes[id] = n

	return n
}

// Node returns the node with the given id. The returned node must be
// treated as read-only.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree) mustNode(id NodeID) (*Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, errors.ErrNodeNotFound(string(id))
	}

	return n, nil
}

// Roots returns the ids of the root-level array.
func (t *Tree) Roots() []NodeID {
	return append([]NodeID(nil), t.roots...)
}

// Children returns the ids held in a slot. A missing slot reads as empty.
func (t *Tree) Children(id NodeID, slot string) []NodeID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}

	return append([]NodeID(nil), n.slots[slot]...)
}

// HasSlot reports whether the node holds an array under slot.
func (t *Tree) HasSlot(id NodeID, slot string) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	_, has := n.slots[slot]

	return has
}

// SlotNames returns the slots of a node: the declared slots in descriptor
// order, then any other slot array the node holds, such as the legacy
// fallbackFor slot, in creation order.
func (t *Tree) SlotNames(id NodeID) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	if d, ok := t.reg.Get(n.Component); ok {
		for _, s := range d.Slots {
			if !seen[s.PropName] {
				names = append(names, s.PropName)
				seen[s.PropName] = true
			}
		}
	}
	for _, s := range n.slotOrder {
		if !seen[s] {
			names = append(names, s)
			seen[s] = true
		}
	}

	return names
}

// EnsureSlot creates an empty slot array if the node has none.
func (t *Tree) EnsureSlot(id NodeID, slot string) error {
	n, err := t.mustNode(id)
	if err != nil {
		return err
	}
	n.ensureSlot(slot)

	return nil
}

// Location returns where an attached node sits.
func (t *Tree) Location(id NodeID) (Location, bool) {
	n, ok := t.nodes[id]
	if !ok || !n.attached {
		return Location{}, false
	}

	siblings := t.roots
	if n.parent != "" {
		siblings = t.nodes[n.parent].slots[n.parentSlot]
	}
	for i, sib := range siblings {
		if sib == id {
			return Location{Parent: n.parent, Slot: n.parentSlot, Index: i}, true
		}
	}

	return Location{}, false
}

// IsAncestorOf reports whether ancestor is descendant itself or is reached
// by walking up from descendant.
func (t *Tree) IsAncestorOf(ancestor, descendant NodeID) bool {
	if ancestor == descendant {
		return true
	}

	n, ok := t.nodes[descendant]
	for ok && n.parent != "" {
		if n.parent == ancestor {
			return true
		}
		n, ok = t.nodes[n.parent]
	}

	return false
}

// Attach inserts a detached node at index in parent's slot, or into the
// root-level array when parent is empty. The index is clamped to the
// array bounds. Attaching a node below itself is rejected.
func (t *Tree) Attach(id, parent NodeID, slot string, index int) error {
	n, err := t.mustNode(id)
	if err != nil {
		return err
	}
	if n.attached {
		return errors.NewStructuralError(errors.ErrCodeInternalError, "node is already attached").
			WithNode(string(id))
	}

	if parent == "" {
		t.roots = insertAt(t.roots, index, id)
		n.parent, n.parentSlot, n.attached = "", "", true

		return nil
	}

	p, ok := t.nodes[parent]
	if !ok {
		return errors.ErrParentNotFound(string(parent))
	}
	if slot == "" {
		return errors.NewInputError(errors.ErrCodeMalformedInput, "slot name is required", nil).
			WithNode(string(parent))
	}
	if t.IsAncestorOf(id, parent) {
		return errors.ErrCycle(string(id), string(parent))
	}
	if _, isSlot := p.slots[slot]; !isSlot {
		if _, isValue := p.values[slot]; isValue && !t.declaresSlot(p.Component, slot) {
			return errors.NewStructuralError(errors.ErrCodeDropNotAllowed, "property is not a slot").
				WithNode(string(parent)).WithContext("slot", slot)
		}
	}

	p.ensureSlot(slot)
	p.slots[slot] = insertAt(p.slots[slot], index, id)
	n.parent, n.parentSlot, n.attached = parent, slot, true

	return nil
}

// Detach removes a node from its array, keeping it and its subtree in the
// arena, and returns where it was.
func (t *Tree) Detach(id NodeID) (Location, error) {
	n, err := t.mustNode(id)
	if err != nil {
		return Location{}, err
	}
	loc, ok := t.Location(id)
	if !ok {
		return Location{}, errors.NewStructuralError(errors.ErrCodeInternalError, "node is not attached").
			WithNode(string(id))
	}

	if loc.RootLevel() {
		t.roots = removeAt(t.roots, loc.Index)
	} else {
		p := t.nodes[loc.Parent]
		p.slots[loc.Slot] = removeAt(p.slots[loc.Slot], loc.Index)
	}
	n.parent, n.parentSlot, n.attached = "", "", false

	return loc, nil
}

// Remove detaches a node and drops it and its whole subtree from the
// arena. It returns the ids that were dropped.
func (t *Tree) Remove(id NodeID) ([]NodeID, error) {
	if _, err := t.Detach(id); err != nil {
		return nil, err
	}

	var removed []NodeID
	t.walkFrom(id, 0, func(nid NodeID, _ int) bool {
		removed = append(removed, nid)
		return true
	})
	for _, nid := range removed {
		delete(t.nodes, nid)
	}

	return removed, nil
}

// Discard drops a detached node and its subtree from the arena. Attached
// nodes are left alone and reported false.
func (t *Tree) Discard(id NodeID) bool {
	n, ok := t.nodes[id]
	if !ok || n.attached {
		return false
	}

	var dropped []NodeID
	t.walkFrom(id, 0, func(nid NodeID, _ int) bool {
		dropped = append(dropped, nid)
		return true
	})
	for _, nid := range dropped {
		delete(t.nodes, nid)
	}

	return true
}

// Walk visits every attached node depth first, roots in order and slots in
// SlotNames order. Returning false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	for _, r := range t.roots {
		t.walkFrom(r, 0, fn)
	}
}

// WalkFrom visits id and its subtree like Walk.
func (t *Tree) WalkFrom(id NodeID, fn func(id NodeID, depth int) bool) {
	if _, ok := t.nodes[id]; !ok {
		return
	}
	t.walkFrom(id, 0, fn)
}

func (t *Tree) walkFrom(id NodeID, depth int, fn func(NodeID, int) bool) {
	if !fn(id, depth) {
		return
	}
	for _, slot := range t.SlotNames(id) {
		for _, child := range t.nodes[id].slots[slot] {
			t.walkFrom(child, depth+1, fn)
		}
	}
}

func (t *Tree) declaresSlot(component, slot string) bool {
	d, ok := t.reg.Get(component)
	if !ok {
		return false
	}
	_, declared := d.Slot(slot)

	return declared
}

func insertAt(ids []NodeID, index int, id NodeID) []NodeID {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id

	return ids
}

func removeAt(ids []NodeID, index int) []NodeID {
	out := make([]NodeID, 0, len(ids)-1)
	out = append(out, ids[:index]...)

	return append(out, ids[index+1:]...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
