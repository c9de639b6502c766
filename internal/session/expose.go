package session

import (
	"github.com/conneroisu/blockwright/internal/tree"
)

// forceExpose exposes the slots of list-wrapper components whose children
// are all instances of the same component, together with the wrapper's
// regular props on every child. It returns the number of flags changed.
// A second run on an unchanged tree changes nothing.
func (s *Session) forceExpose() int {
	t := s.tree
	reg := s.reg

	changed := 0
	set := func(id tree.NodeID, prop string) {
		if t.IsExposed(id, prop) {
			return
		}
		if err := t.SetExposure(id, prop, tree.ExposureExposed); err == nil {
			changed++
		}
	}

	t.Walk(func(id tree.NodeID, _ int) bool {
		n, _ := t.Node(id)
		d, ok := reg.Get(n.Component)
		if !ok || !d.HasSlots() {
			return true
		}
		if _, wraps := reg.ChildComponent(n.Component); !wraps {
			return true
		}

		_, regular := reg.ChildProps(n.Component)
		for _, slot := range d.Slots {
			if !t.SlotIsUniform(id, slot.PropName) {
				continue
			}
			set(id, slot.PropName)
			for _, child := range t.Children(id, slot.PropName) {
				for _, prop := range regular {
					set(child, prop)
				}
			}
		}

		return true
	})

	return changed
}
