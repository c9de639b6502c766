package tree

import (
	"fmt"
	"strings"

	"github.com/conneroisu/blockwright/internal/errors"
)

// Exposure says whether a prop is baked into the export or surfaced as an
// input of the exported component.
type Exposure int

const (
	// ExposureUnset reads as hardcoded.
	ExposureUnset Exposure = iota
	ExposureHardcoded
	ExposureExposed
)

func (e Exposure) String() string {
	switch e {
	case ExposureHardcoded:
		return "hardcoded"
	case ExposureExposed:
		return "exposed"
	default:
		return "unset"
	}
}

// SlotMode says whether a slot holds child nodes or a freeform value.
type SlotMode int

const (
	ModeComponents SlotMode = iota
	ModeProp
)

func (m SlotMode) String() string {
	if m == ModeProp {
		return "prop"
	}

	return "components"
}

// ParseSlotMode parses the wire name of a slot mode.
func ParseSlotMode(s string) (SlotMode, error) {
	switch s {
	case "components":
		return ModeComponents, nil
	case "prop":
		return ModeProp, nil
	default:
		return ModeComponents, fmt.Errorf("unknown slot mode %q", s)
	}
}

// PropFlags is the per-prop record of the flag table.
type PropFlags struct {
	Exposure  Exposure
	RenamedTo string
}

// Wire keys of the open-ended node document.
const (
	KeyID        = "id"
	KeyComponent = "_component"
	KeyRoot      = "_isRootComponent"

	hardcodedPrefix = "_hardcoded_"
	renamedPrefix   = "_renamed_"
	modeSuffix      = "_mode"
)

// FlagKind classifies a document key.
type FlagKind int

const (
	// FlagNone is a plain prop or slot key.
	FlagNone FlagKind = iota
	FlagHardcoded
	FlagRenamed
	FlagMode
	// FlagReserved covers id, _component and _isRootComponent.
	FlagReserved
)

// ParseFlagKey classifies a document key and returns the prop or slot name
// it refers to.
func ParseFlagKey(key string) (FlagKind, string) {
	switch {
	case key == KeyID || key == KeyComponent || key == KeyRoot:
		return FlagReserved, key
	case strings.HasPrefix(key, hardcodedPrefix) && len(key) > len(hardcodedPrefix):
		return FlagHardcoded, key[len(hardcodedPrefix):]
	case strings.HasPrefix(key, renamedPrefix) && len(key) > len(renamedPrefix):
		return FlagRenamed, key[len(renamedPrefix):]
	case strings.HasPrefix(key, "_") && strings.HasSuffix(key, modeSuffix) && len(key) > 1+len(modeSuffix):
		return FlagMode, key[1 : len(key)-len(modeSuffix)]
	default:
		return FlagNone, key
	}
}

// HardcodedKey returns the document key of a prop's exposure flag.
func HardcodedKey(prop string) string { return hardcodedPrefix + prop }

// RenamedKey returns the document key of a prop's rename.
func RenamedKey(prop string) string { return renamedPrefix + prop }

// ModeKey returns the document key of a slot's mode.
func ModeKey(slot string) string { return "_" + slot + modeSuffix }

func (n *Node) flag(prop string) *PropFlags {
	f, ok := n.flags[prop]
	if !ok {
		f = &PropFlags{}
		n.flags[prop] = f
		n.flagOrder = append(n.flagOrder, prop)
	}

	return f
}

func (n *Node) setValue(prop string, v any) {
	if _, ok := n.values[prop]; !ok {
		n.valueOrder = append(n.valueOrder, prop)
	}
	n.values[prop] = v
}

func (n *Node) deleteValue(prop string) {
	if _, ok := n.values[prop]; !ok {
		return
	}
	delete(n.values, prop)
	for i, k := range n.valueOrder {
		if k == prop {
			n.valueOrder = append(n.valueOrder[:i:i], n.valueOrder[i+1:]...)
			break
		}
	}
}

// Value returns a plain prop value.
func (t *Tree) Value(id NodeID, prop string) (any, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	v, has := n.values[prop]

	return v, has
}

// ValueNames returns the plain prop names of a node in insertion order.
func (t *Tree) ValueNames(id NodeID) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}

	return append([]string(nil), n.valueOrder...)
}

// SetValue sets a plain prop value. A nil value deletes the prop.
func (t *Tree) SetValue(id NodeID, prop string, v any) error {
	n, err := t.mustNode(id)
	if err != nil {
		return err
	}
	if v == nil {
		n.deleteValue(prop)
		return nil
	}
	n.setValue(prop, v)

	return nil
}

// Exposure returns the exposure flag of a prop.
func (t *Tree) Exposure(id NodeID, prop string) Exposure {
	n, ok := t.nodes[id]
	if !ok {
		return ExposureUnset
	}
	if f, has := n.flags[prop]; has {
		return f.Exposure
	}

	return ExposureUnset
}

// IsExposed reports whether a prop is explicitly exposed.
func (t *Tree) IsExposed(id NodeID, prop string) bool {
	return t.Exposure(id, prop) == ExposureExposed
}

// SetExposure records the exposure flag of a prop.
func (t *Tree) SetExposure(id NodeID, prop string, e Exposure) error {
	n, err := t.mustNode(id)
	if err != nil {
		return err
	}
	n.flag(prop).Exposure = e

	return nil
}

// Rename sets the exported name of a prop. An empty name clears it.
func (t *Tree) Rename(id NodeID, prop, name string) error {
	n, err := t.mustNode(id)
	if err != nil {
		return err
	}
	if name == "" {
		if f, ok := n.flags[prop]; ok {
			f.RenamedTo = ""
		}
		return nil
	}
	n.flag(prop).RenamedTo = name

	return nil
}

// RenamedTo returns the rename recorded for a prop, or "".
func (t *Tree) RenamedTo(id NodeID, prop string) string {
	n, ok := t.nodes[id]
	if !ok {
		return ""
	}
	if f, has := n.flags[prop]; has {
		return f.RenamedTo
	}

	return ""
}

// ExposedName returns the name a prop is exported under.
func (t *Tree) ExposedName(id NodeID, prop string) string {
	if r := t.RenamedTo(id, prop); r != "" {
		return r
	}

	return prop
}

// Mode returns the mode of a slot, components unless set otherwise.
func (t *Tree) Mode(id NodeID, slot string) SlotMode {
	n, ok := t.nodes[id]
	if !ok {
		return ModeComponents
	}

	return n.modes[slot]
}

// IsModeSet reports whether a slot mode was recorded explicitly.
func (t *Tree) IsModeSet(id NodeID, slot string) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	_, set := n.modes[slot]

	return set
}

// SetMode records the mode of a slot.
func (t *Tree) SetMode(id NodeID, slot string, m SlotMode) error {
	n, err := t.mustNode(id)
	if err != nil {
		return err
	}
	if _, ok := n.modes[slot]; !ok {
		n.modeOrder = append(n.modeOrder, slot)
	}
	n.modes[slot] = m

	return nil
}

// FlaggedProps returns every prop with a flag record, in the order the
// records were created.
func (t *Tree) FlaggedProps(id NodeID) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}

	return append([]string(nil), n.flagOrder...)
}

// ExposedProps returns the props explicitly flagged exposed, in flag order.
func (t *Tree) ExposedProps(id NodeID) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}

	var out []string
	for _, p := range n.flagOrder {
		if n.flags[p].Exposure == ExposureExposed {
			out = append(out, p)
		}
	}

	return out
}

// HasOwnExposed reports whether the node exposes at least one prop.
func (t *Tree) HasOwnExposed(id NodeID) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	for _, f := range n.flags {
		if f.Exposure == ExposureExposed {
			return true
		}
	}

	return false
}

// PropModeSlots returns the slots switched to prop mode, in the order their
// modes were first recorded.
func (t *Tree) PropModeSlots(id NodeID) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}

	var out []string
	for _, s := range n.modeOrder {
		if n.modes[s] == ModeProp {
			out = append(out, s)
		}
	}

	return out
}

// ApplyFlagKey routes a legacy document key such as "_hardcoded_text" to
// the flag tables. It reports false when key is not a flag key.
func (t *Tree) ApplyFlagKey(id NodeID, key string, value any) (bool, error) {
	kind, name := ParseFlagKey(key)
	switch kind {
	case FlagHardcoded:
		if value == nil {
			return true, t.SetExposure(id, name, ExposureUnset)
		}
		hardcoded, ok := value.(bool)
		if !ok {
			return true, errors.ErrMalformedInput(string(id), key, fmt.Errorf("expected a boolean, got %T", value))
		}
		e := ExposureExposed
		if hardcoded {
			e = ExposureHardcoded
		}
		return true, t.SetExposure(id, name, e)
	case FlagRenamed:
		if value == nil {
			return true, t.Rename(id, name, "")
		}
		renamed, ok := value.(string)
		if !ok {
			return true, errors.ErrMalformedInput(string(id), key, fmt.Errorf("expected a string, got %T", value))
		}
		return true, t.Rename(id, name, renamed)
	case FlagMode:
		if value == nil {
			return true, t.SetMode(id, name, ModeComponents)
		}
		s, _ := value.(string)
		m, err := ParseSlotMode(s)
		if err != nil {
			return true, errors.ErrMalformedInput(string(id), key, err)
		}
		return true, t.SetMode(id, name, m)
	case FlagReserved:
		return true, errors.NewInputError(errors.ErrCodeMalformedInput, "reserved key cannot be updated", nil).
			WithNode(string(id)).WithContext("prop", key)
	default:
		return false, nil
	}
}
