package tree

// SlotIsUniform reports whether a slot holds at least one child and every
// child is an instance of the same component.
func (t *Tree) SlotIsUniform(id NodeID, slot string) bool {
	children := t.Children(id, slot)
	if len(children) == 0 {
		return false
	}

	first, ok := t.nodes[children[0]]
	if !ok {
		return false
	}
	for _, c := range children[1:] {
		n, ok := t.nodes[c]
		if !ok || n.Component != first.Component {
			return false
		}
	}

	return true
}

// UsesListPattern decides whether a slot is exported as one iterated item
// template bound to an array input instead of as literal siblings. It holds
// when the parent declares a list wrapper and some child, or some child's
// default-slot grandchild, exposes a prop of its own. Slots in prop mode
// never qualify.
//
// Validation and export both call this method; neither keeps a copy of the
// rule.
func (t *Tree) UsesListPattern(id NodeID, slot string) bool {
	n, ok := t.nodes[id]
	if !ok || t.Mode(id, slot) == ModeProp {
		return false
	}
	if _, wraps := t.reg.ChildComponent(n.Component); !wraps {
		return false
	}

	for _, child := range n.slots[slot] {
		if t.HasOwnExposed(child) {
			return true
		}
		c, ok := t.nodes[child]
		if !ok {
			continue
		}
		for _, grandchild := range c.slots[t.reg.FallbackSlot(c.Component)] {
			if t.HasOwnExposed(grandchild) {
				return true
			}
		}
	}

	return false
}
