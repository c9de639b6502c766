package tree

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/registry"
	"gopkg.in/yaml.v3"
)

// Encode returns the root-level array in the open-ended document shape,
// flags included.
func (t *Tree) Encode() []map[string]any {
	out := make([]map[string]any, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, t.encodeNode(r, true))
	}

	return out
}

// EncodeNode returns one node and its subtree in document shape.
func (t *Tree) EncodeNode(id NodeID) (map[string]any, bool) {
	if _, ok := t.nodes[id]; !ok {
		return nil, false
	}

	return t.encodeNode(id, true), true
}

// Clean returns the root-level array with every builder flag stripped. Node
// ids are kept so values can be traced back to nodes.
func (t *Tree) Clean() []map[string]any {
	out := make([]map[string]any, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, t.encodeNode(r, false))
	}

	return out
}

// CleanNode returns one node and its subtree with flags stripped.
func (t *Tree) CleanNode(id NodeID) (map[string]any, bool) {
	if _, ok := t.nodes[id]; !ok {
		return nil, false
	}

	return t.encodeNode(id, false), true
}

func (t *Tree) encodeNode(id NodeID, withFlags bool) map[string]any {
	n := t.nodes[id]
	doc := map[string]any{
		KeyID:        string(n.ID),
		KeyComponent: n.Component,
	}
	if withFlags && n.Root {
		doc[KeyRoot] = true
	}

	for _, k := range n.valueOrder {
		doc[k] = copyValue(n.values[k])
	}

	for _, slot := range t.SlotNames(id) {
		if _, hasValue := n.values[slot]; hasValue && n.modes[slot] == ModeProp {
			continue
		}
		children := make([]any, 0, len(n.slots[slot]))
		for _, c := range n.slots[slot] {
			children = append(children, t.encodeNode(c, withFlags))
		}
		doc[slot] = children
	}

	if !withFlags {
		return doc
	}

	for _, p := range n.flagOrder {
		f := n.flags[p]
		if f.Exposure != ExposureUnset {
			doc[HardcodedKey(p)] = f.Exposure == ExposureHardcoded
		}
		if f.RenamedTo != "" {
			doc[RenamedKey(p)] = f.RenamedTo
		}
	}
	for _, s := range n.modeOrder {
		doc[ModeKey(s)] = n.modes[s].String()
	}

	return doc
}

// DecodeDocument parses a YAML or JSON tree document. The document is
// either the root-level array itself or an object holding it under
// "componentTree".
func DecodeDocument(reg *registry.Registry, data []byte, opts ...Option) (*Tree, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewInputError(errors.ErrCodeMalformedDocument, "failed to parse tree document", err)
	}

	if obj, ok := raw.(map[string]any); ok {
		raw = obj["componentTree"]
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.NewInputError(errors.ErrCodeMalformedDocument, "tree document must be a list of nodes", nil)
	}

	docs := make([]map[string]any, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errors.NewInputError(errors.ErrCodeMalformedDocument, "root entry is not an object", nil).
				WithContext("index", i)
		}
		docs = append(docs, m)
	}

	return Decode(reg, docs, opts...)
}

// Decode rebuilds a tree from documents produced by Encode. Array values
// are read as slots when the component declares them or when every element
// is a node object. Ids of the form component-N are kept and the id
// counter resumes after the highest one.
func Decode(reg *registry.Registry, docs []map[string]any, opts ...Option) (*Tree, error) {
	t := New(reg, opts...)
	d := &decoder{tree: t, seen: make(map[NodeID]bool)}

	for _, doc := range docs {
		id, err := d.node(doc)
		if err != nil {
			return nil, err
		}
		if err := t.Attach(id, "", "", len(t.roots)); err != nil {
			return nil, err
		}
	}

	for _, pending := range d.unnamed {
		pending.ID = NodeID(fmt.Sprintf("component-%d", t.next))
		t.next++
	}
	if len(d.unnamed) > 0 {
		t.reindex()
	}

	return t, nil
}

type decoder struct {
	tree    *Tree
	seen    map[NodeID]bool
	unnamed []*Node
	tmp     int
}

func (d *decoder) node(doc map[string]any) (NodeID, error) {
	t := d.tree

	component, _ := doc[KeyComponent].(string)
	if component == "" {
		return "", errors.NewInputError(errors.ErrCodeMalformedDocument, "node has no _component", nil)
	}

	rawID, _ := doc[KeyID].(string)
	id := NodeID(rawID)
	if id == "" {
		for id == "" || d.seen[id] {
			d.tmp++
			id = NodeID(fmt.Sprintf("\x00pending-%d", d.tmp))
		}
	} else if d.seen[id] {
		return "", errors.NewInputError(errors.ErrCodeMalformedDocument, "duplicate node id", nil).
			WithNode(rawID)
	}
	d.seen[id] = true
	if n, ok := parseCounter(rawID); ok && n >= t.next {
		t.next = n + 1
	}

	n := newNode(id, component)
	n.Root, _ = doc[KeyRoot].(bool)
	t.nodes[id] = n
	if rawID == "" {
		d.unnamed = append(d.unnamed, n)
	}

	desc, _ := t.reg.Get(component)
	if desc != nil {
		for _, s := range desc.Slots {
			n.ensureSlot(s.PropName)
		}
	}

	for _, key := range orderedKeys(doc, desc) {
		value := doc[key]
		kind, _ := ParseFlagKey(key)
		switch kind {
		case FlagReserved:
			continue
		case FlagNone:
		default:
			if _, err := t.ApplyFlagKey(id, key, value); err != nil {
				return "", err
			}
			continue
		}

		list, isList := value.([]any)
		if !isList || !d.isSlot(component, desc, key, list) {
			n.setValue(key, copyValue(value))
			continue
		}

		n.ensureSlot(key)
		for _, item := range list {
			child, err := d.node(item.(map[string]any))
			if err != nil {
				return "", err
			}
			if err := t.Attach(child, id, key, len(n.slots[key])); err != nil {
				return "", err
			}
		}
	}

	return id, nil
}

func (d *decoder) isSlot(component string, desc *registry.Descriptor, key string, list []any) bool {
	if desc != nil {
		if _, declared := desc.Slot(key); declared {
			return allNodes(list)
		}
	}
	if key == d.tree.reg.LegacySlot(component) {
		return allNodes(list)
	}

	return len(list) > 0 && allNodes(list)
}

func allNodes(list []any) bool {
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := m[KeyComponent].(string); !ok {
			return false
		}
	}

	return true
}

// orderedKeys sorts document keys so that declared inputs come first in
// declaration order, declared slots next, and everything else by name.
func orderedKeys(doc map[string]any, desc *registry.Descriptor) []string {
	rank := make(map[string]int)
	if desc != nil {
		for i, name := range desc.Inputs.Names() {
			rank[name] = i
		}
		base := len(desc.Inputs)
		for i, s := range desc.Slots {
			if _, ok := rank[s.PropName]; !ok {
				rank[s.PropName] = base + i
			}
		}
	}

	keyRank := func(key string) (int, string) {
		_, name := ParseFlagKey(key)
		if r, ok := rank[name]; ok {
			return r, key
		}

		return len(rank) + 1, key
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, ki := keyRank(keys[i])
		rj, kj := keyRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		// Values before their flags, so a prop keeps its position.
		fi, _ := ParseFlagKey(ki)
		fj, _ := ParseFlagKey(kj)
		if fi != fj {
			return fi < fj
		}

		return ki < kj
	})

	return keys
}

func parseCounter(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "component-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 || n == math.MaxInt {
		return 0, false
	}

	return n, true
}

// reindex rebuilds the id keyed maps after pending ids were assigned.
func (t *Tree) reindex() {
	rename := make(map[NodeID]NodeID)
	nodes := make(map[NodeID]*Node, len(t.nodes))
	for old, n := range t.nodes {
		if old != n.ID {
			rename[old] = n.ID
		}
		nodes[n.ID] = n
	}
	t.nodes = nodes

	fix := func(id NodeID) NodeID {
		if r, ok := rename[id]; ok {
			return r
		}
		return id
	}
	for i, r := range t.roots {
		t.roots[i] = fix(r)
	}
	for _, n := range t.nodes {
		n.parent = fix(n.parent)
		for slot, ids := range n.slots {
			for i, c := range ids {
				ids[i] = fix(c)
			}
			n.slots[slot] = ids
		}
	}
}
