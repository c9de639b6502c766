// Package session owns one editing session of the builder: the component
// tree, the selection and the latest validation result.
//
// Every mutation goes through a Session method. After a change to tree
// shape, values or exposure the session re-applies forced exposure and
// re-validates before observers hear about it, so an observer always sees
// a consistent tree and result. A Session is not safe for concurrent use;
// callers sharing one across goroutines must serialize access.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/conneroisu/blockwright/internal/config"
	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/export"
	"github.com/conneroisu/blockwright/internal/logging"
	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/tree"
	"github.com/conneroisu/blockwright/internal/validation"
)

// Session is one builder composition being edited.
type Session struct {
	reg       *registry.Registry
	tree      *tree.Tree
	logger    logging.Logger
	generator *export.Generator
	exposed   map[string][]string
	now       func() time.Time

	selected   tree.NodeID
	validation validation.Result

	observers    []subscription
	nextObserver int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithDefaultExposed sets the component name to prop list table used for
// new nodes.
func WithDefaultExposed(table map[string][]string) Option {
	return func(s *Session) {
		s.exposed = table
	}
}

// WithGenerator sets the export generator.
func WithGenerator(g *export.Generator) Option {
	return func(s *Session) {
		s.generator = g
	}
}

func newSession(reg *registry.Registry, opts []Option) *Session {
	s := &Session{
		reg: reg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	s.logger = s.logger.WithComponent("session")
	if s.generator == nil {
		s.generator = export.NewGenerator(nil, s.logger)
	}

	return s
}

// New starts a session holding only the root component. A registry
// without the root component is a fatal initialization error.
func New(reg *registry.Registry, opts ...Option) (*Session, error) {
	s := newSession(reg, opts)
	if s.exposed == nil {
		s.exposed = config.DefaultExposed()
	}

	s.tree = tree.New(reg, tree.WithDefaultExposed(s.exposed))
	if _, err := s.tree.InitRoot(); err != nil {
		return nil, err
	}
	s.refresh(context.Background())

	return s, nil
}

// Open starts a session over an existing tree, such as one decoded from a
// saved document. Forced exposure is applied to it straight away.
func Open(t *tree.Tree, opts ...Option) *Session {
	s := newSession(t.Registry(), opts)
	s.tree = t
	s.refresh(context.Background())

	return s
}

// Tree returns the session's tree. Callers must not mutate it directly.
func (s *Session) Tree() *tree.Tree {
	return s.tree
}

// Registry returns the registry the session builds from.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// Validation returns the result of the latest validation pass.
func (s *Session) Validation() validation.Result {
	return s.validation
}

// Selected returns the selected node id, or "" when nothing is selected.
func (s *Session) Selected() tree.NodeID {
	return s.selected
}

// Select changes the selection. An empty id clears it.
func (s *Session) Select(id tree.NodeID) error {
	if id != "" {
		if _, ok := s.tree.Location(id); !ok {
			return errors.ErrNodeNotFound(string(id))
		}
	}
	if s.selected == id {
		return nil
	}
	s.selected = id
	s.emit(EventSelectionChange)

	return nil
}

// AddToSlot creates a node from the component at path and inserts it at
// index in parent's slot. When the slot only admits a single wrapper
// component that can hold the new node, the node is wrapped first. It
// returns the id of the inserted node, which is the wrapper when one was
// added.
func (s *Session) AddToSlot(ctx context.Context, path string, parent tree.NodeID, slot string, index int) (tree.NodeID, error) {
	d, ok := s.reg.Get(path)
	if !ok {
		return "", errors.ErrComponentNotFound(path)
	}
	pn, ok := s.tree.Node(parent)
	if !ok {
		return "", errors.ErrParentNotFound(string(parent))
	}

	var slotDesc *registry.Slot
	if pd, ok := s.reg.Get(pn.Component); ok {
		slotDesc, _ = pd.Slot(slot)
	}

	top := s.tree.CreateNode(d).ID
	if wd, wrapSlot, ok := s.wrapperFor(d, slotDesc); ok {
		inner := top
		top = s.tree.CreateNode(wd).ID
		if err := s.tree.Attach(inner, top, wrapSlot, 0); err != nil {
			s.tree.Discard(top)
			s.tree.Discard(inner)
			return "", err
		}
		s.logger.Debug(ctx, "Auto-wrapped component",
			"component", d.Path,
			"wrapper", wd.Path,
			"slot", wrapSlot)
	}

	if err := s.tree.Attach(top, parent, slot, index); err != nil {
		s.tree.Discard(top)
		return "", err
	}

	s.changed(ctx, "add")

	return top, nil
}

// wrapperFor returns the wrapper a component must be placed in before it
// can go into slot, and the wrapper slot receiving it.
func (s *Session) wrapperFor(d *registry.Descriptor, slot *registry.Slot) (*registry.Descriptor, string, bool) {
	if slot == nil || len(slot.AllowedComponents) != 1 || slot.Allows(d.Path) {
		return nil, "", false
	}
	wrapperPath := slot.AllowedComponents[0]
	if strings.HasSuffix(wrapperPath, "*") {
		return nil, "", false
	}

	wd, ok := s.reg.Get(wrapperPath)
	if !ok {
		return nil, "", false
	}
	for i := range wd.Slots {
		if wd.Slots[i].Allows(d.Path) {
			return wd, wd.Slots[i].PropName, true
		}
	}

	return nil, "", false
}

// CanDrop reports whether the component at path may be inserted into
// parent's slot, directly or through an auto-wrap.
func (s *Session) CanDrop(path string, parent tree.NodeID, slot string) bool {
	d, ok := s.reg.Get(path)
	if !ok {
		return false
	}
	pn, ok := s.tree.Node(parent)
	if !ok {
		return false
	}
	pd, ok := s.reg.Get(pn.Component)
	if !ok {
		return true
	}
	slotDesc, _ := pd.Slot(slot)
	if registry.CanDrop(d, slotDesc) {
		return true
	}
	_, _, wraps := s.wrapperFor(d, slotDesc)

	return wraps
}

// CanMove reports whether id may be moved below target. The root never
// moves, and no node may move into its own subtree. An empty target is the
// root-level array.
func (s *Session) CanMove(id, target tree.NodeID) bool {
	n, ok := s.tree.Node(id)
	if !ok || n.Root {
		return false
	}
	if _, ok := s.tree.Location(id); !ok {
		return false
	}
	if target == "" {
		return true
	}
	if _, ok := s.tree.Node(target); !ok {
		return false
	}

	return !s.tree.IsAncestorOf(id, target)
}

// Move relocates id to index in parent's slot, or to the root-level array
// when parent is empty. Within the same array the index refers to the
// array before removal, so it is shifted down when the node moves forward.
// Nothing changes when the move is rejected.
func (s *Session) Move(ctx context.Context, id, parent tree.NodeID, slot string, index int) error {
	n, ok := s.tree.Node(id)
	if !ok {
		return errors.ErrNodeNotFound(string(id))
	}
	from, ok := s.tree.Location(id)
	if !ok {
		return errors.ErrNodeNotFound(string(id))
	}
	if n.Root {
		return errors.NewStructuralError(errors.ErrCodeDropNotAllowed, "the root component cannot be moved").
			WithNode(string(id))
	}
	if parent != "" {
		if _, ok := s.tree.Node(parent); !ok {
			return errors.ErrParentNotFound(string(parent))
		}
		if s.tree.IsAncestorOf(id, parent) {
			return errors.ErrCycle(string(id), string(parent))
		}
	} else {
		slot = ""
	}

	if from.Parent == parent && from.Slot == slot && from.Index < index {
		index--
	}

	if _, err := s.tree.Detach(id); err != nil {
		return err
	}
	if err := s.tree.Attach(id, parent, slot, index); err != nil {
		if restoreErr := s.tree.Attach(id, from.Parent, from.Slot, from.Index); restoreErr != nil {
			return errors.NewInternalError(errors.ErrCodeInternalError, "failed to restore node after rejected move", restoreErr).
				WithNode(string(id))
		}
		return err
	}

	s.changed(ctx, "move")

	return nil
}

// Delete removes id and its subtree. The selection is cleared when it sat
// inside the removed subtree.
func (s *Session) Delete(ctx context.Context, id tree.NodeID) error {
	n, ok := s.tree.Node(id)
	if !ok {
		return errors.ErrNodeNotFound(string(id))
	}
	if n.Root {
		return errors.NewStructuralError(errors.ErrCodeDropNotAllowed, "the root component cannot be deleted").
			WithNode(string(id))
	}

	removed, err := s.tree.Remove(id)
	if err != nil {
		return err
	}

	clearSelection := false
	for _, r := range removed {
		if r == s.selected && s.selected != "" {
			clearSelection = true
			break
		}
	}
	if clearSelection {
		s.selected = ""
		s.emit(EventSelectionChange)
	}

	s.changed(ctx, "delete")

	return nil
}

// ToggleSlotMode flips a slot between holding components and holding a
// freeform value, and returns the new mode. Switching to prop mode always
// exposes the slot.
func (s *Session) ToggleSlotMode(ctx context.Context, id tree.NodeID, slot string) (tree.SlotMode, error) {
	if _, ok := s.tree.Node(id); !ok {
		return tree.ModeComponents, errors.ErrNodeNotFound(string(id))
	}
	if err := s.tree.EnsureSlot(id, slot); err != nil {
		return tree.ModeComponents, err
	}

	mode := tree.ModeProp
	if s.tree.Mode(id, slot) == tree.ModeProp {
		mode = tree.ModeComponents
	}
	if err := s.tree.SetMode(id, slot, mode); err != nil {
		return tree.ModeComponents, err
	}
	if mode == tree.ModeProp {
		if err := s.tree.SetExposure(id, slot, tree.ExposureExposed); err != nil {
			return tree.ModeComponents, err
		}
	}

	s.changed(ctx, "toggle_slot_mode")

	return mode, nil
}

// UpdateProperty sets a prop value, or deletes it when value is nil. Flag
// keys such as _hardcoded_text are routed to the flag tables; a
// _renamed_<prop> key only re-validates.
func (s *Session) UpdateProperty(ctx context.Context, id tree.NodeID, prop string, value any) error {
	if _, ok := s.tree.Node(id); !ok {
		return errors.ErrNodeNotFound(string(id))
	}

	kind, _ := tree.ParseFlagKey(prop)
	switch kind {
	case tree.FlagReserved:
		return errors.NewInputError(errors.ErrCodeMalformedInput, "reserved key cannot be updated: "+prop, nil).
			WithNode(string(id))
	case tree.FlagNone:
		if err := s.tree.SetValue(id, prop, value); err != nil {
			return err
		}
	default:
		if _, err := s.tree.ApplyFlagKey(id, prop, value); err != nil {
			return err
		}
	}

	if kind == tree.FlagRenamed {
		s.revalidate(ctx)
		return nil
	}
	s.changed(ctx, "update_property")

	return nil
}

// UpdatePropertyJSON parses text as JSON and stores the result. Text that
// does not parse leaves the node untouched and returns an input error.
func (s *Session) UpdatePropertyJSON(ctx context.Context, id tree.NodeID, prop, text string) error {
	if _, ok := s.tree.Node(id); !ok {
		return errors.ErrNodeNotFound(string(id))
	}

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		s.logger.Debug(ctx, "Rejected malformed property value",
			"node", id,
			"prop", prop,
			"error", err.Error())
		return errors.ErrMalformedInput(string(id), prop, err)
	}

	return s.UpdateProperty(ctx, id, prop, value)
}

// SetExposed marks a prop exposed or hardcoded.
func (s *Session) SetExposed(ctx context.Context, id tree.NodeID, prop string, exposed bool) error {
	e := tree.ExposureHardcoded
	if exposed {
		e = tree.ExposureExposed
	}
	if err := s.tree.SetExposure(id, prop, e); err != nil {
		return err
	}

	s.changed(ctx, "set_exposed")

	return nil
}

// Rename sets the exported name of a prop. Only validation re-runs, and
// only the validation event is emitted, so an editor can call it on every
// keystroke.
func (s *Session) Rename(ctx context.Context, id tree.NodeID, prop, name string) error {
	if err := s.tree.Rename(id, prop, strings.TrimSpace(name)); err != nil {
		return err
	}
	s.revalidate(ctx)

	return nil
}

// Export generates the component bundle. It fails with a validation error
// while the tree has duplicate exposed names.
func (s *Session) Export(ctx context.Context, target export.Target) (*export.Bundle, error) {
	if !s.validation.Valid {
		return nil, errors.NewValidationError(errors.ErrCodeDuplicateExposed, "export is blocked by duplicate exposed names").
			WithContext("duplicates", s.validation.Names())
	}

	return s.generator.Generate(ctx, s.tree, target)
}

// changed runs after a structural mutation: forced exposure, validation,
// then the tree and validation events.
func (s *Session) changed(ctx context.Context, op string) {
	forced := s.forceExpose()
	s.validation = validation.Validate(s.tree)
	s.logger.Debug(ctx, "Tree changed",
		"op", op,
		"nodes", s.tree.Len(),
		"forced", forced,
		"valid", s.validation.Valid)

	s.emit(EventTreeChange)
	s.emit(EventValidationChange)
}

func (s *Session) revalidate(ctx context.Context) {
	s.validation = validation.Validate(s.tree)
	s.logger.Debug(ctx, "Validated",
		"valid", s.validation.Valid,
		"duplicates", len(s.validation.Duplicates))

	s.emit(EventValidationChange)
}

// refresh brings a fresh session to a consistent state without notifying
// anyone.
func (s *Session) refresh(ctx context.Context) {
	forced := s.forceExpose()
	s.validation = validation.Validate(s.tree)
	s.logger.Debug(ctx, "Session ready",
		"nodes", s.tree.Len(),
		"forced", forced,
		"valid", s.validation.Valid)
}
