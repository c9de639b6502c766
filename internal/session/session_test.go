package session

import (
	"context"
	"strings"
	"testing"

	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/export"
	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/testutils"
	"github.com/conneroisu/blockwright/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}

	return out
}

func (r *recorder) reset() {
	r.events = nil
}

func startSession(t *testing.T) (*Session, tree.NodeID) {
	t.Helper()

	s, err := New(testutils.Registry(t))
	require.NoError(t, err)
	roots := s.Tree().Roots()
	require.Len(t, roots, 1)

	return s, roots[0]
}

func add(t *testing.T, s *Session, path string, parent tree.NodeID, slot string) tree.NodeID {
	t.Helper()

	id, err := s.AddToSlot(context.Background(), path, parent, slot, len(s.Tree().Children(parent, slot)))
	require.NoError(t, err)

	return id
}

func TestNew(t *testing.T) {
	s, root := startSession(t)

	n, ok := s.Tree().Node(root)
	require.True(t, ok)
	assert.True(t, n.Root)
	assert.Equal(t, testutils.RootPath, n.Component)
	assert.True(t, s.Validation().Valid)
	assert.Empty(t, s.Selected())
	assert.Same(t, s.Registry(), s.Tree().Registry())
}

func TestNewMissingRoot(t *testing.T) {
	reg, err := registry.New(testutils.Payload(t), registry.WithRootPath("page-sections/builders/missing"))
	require.NoError(t, err)

	s, err := New(reg)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Equal(t, errors.ErrorTypeInit, errors.TypeOf(err))
	assert.False(t, errors.IsRecoverable(err))
}

func TestAddToSlot(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()

	first := add(t, s, testutils.ButtonPath, root, "contentSections")
	heading, err := s.AddToSlot(ctx, testutils.HeadingPath, root, "contentSections", 0)
	require.NoError(t, err)

	assert.Equal(t, []tree.NodeID{heading, first}, s.Tree().Children(root, "contentSections"))
	assert.True(t, s.Tree().IsExposed(first, "text"), "button text is exposed by default")
	assert.False(t, s.Tree().IsExposed(first, "link"))
}

func TestAddToSlotErrors(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	before := s.Tree().Len()

	_, err := s.AddToSlot(ctx, "building-blocks/unknown", root, "contentSections", 0)
	require.Error(t, err)
	assert.True(t, errors.IsLookup(err))

	_, err = s.AddToSlot(ctx, testutils.ButtonPath, "component-404", "contentSections", 0)
	require.Error(t, err)
	assert.True(t, errors.IsLookup(err))

	_, err = s.AddToSlot(ctx, testutils.ButtonPath, root, "", 0)
	require.Error(t, err)

	assert.Equal(t, before, s.Tree().Len(), "failed inserts leave no nodes behind")
	assert.Empty(t, s.Tree().Children(root, "contentSections"))
}

func TestAddToSlotAutoWrap(t *testing.T) {
	s, root := startSession(t)
	tr := s.Tree()

	carousel := add(t, s, testutils.CarouselPath, root, "contentSections")
	top := add(t, s, testutils.ButtonPath, carousel, "slides")

	slides := tr.Children(carousel, "slides")
	require.Equal(t, []tree.NodeID{top}, slides)

	wrapper, _ := tr.Node(top)
	assert.Equal(t, testutils.CarouselSlidePath, wrapper.Component)

	inner := tr.Children(top, "contentSections")
	require.Len(t, inner, 1)
	button, _ := tr.Node(inner[0])
	assert.Equal(t, testutils.ButtonPath, button.Component)
}

func TestAddToSlotDirectlyAllowed(t *testing.T) {
	s, root := startSession(t)

	carousel := add(t, s, testutils.CarouselPath, root, "contentSections")
	slide := add(t, s, testutils.CarouselSlidePath, carousel, "slides")

	n, _ := s.Tree().Node(slide)
	assert.Equal(t, testutils.CarouselSlidePath, n.Component)
	assert.Empty(t, s.Tree().Children(slide, "contentSections"))
}

func TestCanDrop(t *testing.T) {
	s, root := startSession(t)
	card := add(t, s, testutils.CardPath, root, "contentSections")
	carousel := add(t, s, testutils.CarouselPath, root, "contentSections")

	assert.True(t, s.CanDrop(testutils.CardPath, root, "contentSections"), "empty allow-list admits all")
	assert.True(t, s.CanDrop(testutils.ButtonPath, card, "contentSections"))
	assert.False(t, s.CanDrop(testutils.CardPath, card, "contentSections"))
	assert.True(t, s.CanDrop(testutils.ButtonPath, carousel, "slides"), "through the slide wrapper")
	assert.False(t, s.CanDrop(testutils.CardPath, carousel, "slides"))
	assert.False(t, s.CanDrop("building-blocks/unknown", root, "contentSections"))
	assert.False(t, s.CanDrop(testutils.ButtonPath, "component-404", "contentSections"))
}

func TestMoveWithinArray(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	tr := s.Tree()

	a := add(t, s, testutils.ButtonPath, root, "contentSections")
	b := add(t, s, testutils.HeadingPath, root, "contentSections")
	c := add(t, s, testutils.ImagePath, root, "contentSections")

	require.NoError(t, s.Move(ctx, a, root, "contentSections", 2))
	assert.Equal(t, []tree.NodeID{b, a, c}, tr.Children(root, "contentSections"))

	require.NoError(t, s.Move(ctx, c, root, "contentSections", 0))
	assert.Equal(t, []tree.NodeID{c, b, a}, tr.Children(root, "contentSections"))

	require.NoError(t, s.Move(ctx, c, root, "contentSections", 3))
	assert.Equal(t, []tree.NodeID{b, a, c}, tr.Children(root, "contentSections"))
}

func TestMoveAcrossParents(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	tr := s.Tree()

	card := add(t, s, testutils.CardPath, root, "contentSections")
	button := add(t, s, testutils.ButtonPath, root, "contentSections")

	require.True(t, s.CanMove(button, card))
	require.NoError(t, s.Move(ctx, button, card, "contentSections", 0))
	assert.Equal(t, []tree.NodeID{card}, tr.Children(root, "contentSections"))
	assert.Equal(t, []tree.NodeID{button}, tr.Children(card, "contentSections"))

	loc, ok := tr.Location(button)
	require.True(t, ok)
	assert.Equal(t, tree.Location{Parent: card, Slot: "contentSections", Index: 0}, loc)

	require.NoError(t, s.Move(ctx, button, "", "ignored", 5))
	assert.Equal(t, []tree.NodeID{root, button}, tr.Roots())
}

func TestMoveRejected(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	tr := s.Tree()

	card := add(t, s, testutils.CardPath, root, "contentSections")
	inner := add(t, s, testutils.ButtonPath, card, "contentSections")
	before := tr.Encode()

	err := s.Move(ctx, card, inner, "contentSections", 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeStructural, errors.TypeOf(err))
	assert.False(t, s.CanMove(card, inner))
	assert.False(t, s.CanMove(card, card))

	err = s.Move(ctx, root, "", "", 1)
	require.Error(t, err)
	assert.False(t, s.CanMove(root, ""))

	err = s.Move(ctx, "component-404", root, "contentSections", 0)
	require.Error(t, err)
	assert.True(t, errors.IsLookup(err))

	err = s.Move(ctx, inner, "component-404", "contentSections", 0)
	require.Error(t, err)
	assert.True(t, errors.IsLookup(err))

	err = s.Move(ctx, inner, root, "", 0)
	require.Error(t, err)

	assert.Equal(t, before, tr.Encode(), "rejected moves leave the tree untouched")
}

func TestDelete(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	rec := &recorder{}
	s.Subscribe(rec)

	card := add(t, s, testutils.CardPath, root, "contentSections")
	inner := add(t, s, testutils.ButtonPath, card, "contentSections")
	other := add(t, s, testutils.HeadingPath, root, "contentSections")

	require.NoError(t, s.Select(other))
	rec.reset()
	require.NoError(t, s.Delete(ctx, inner))
	assert.Equal(t, other, s.Selected(), "deleting another node keeps the selection")
	assert.Equal(t, []EventType{EventTreeChange, EventValidationChange}, rec.types())

	require.NoError(t, s.Select(other))
	rec.reset()
	require.NoError(t, s.Delete(ctx, other))
	assert.Empty(t, s.Selected())
	assert.Equal(t, []EventType{EventSelectionChange, EventTreeChange, EventValidationChange}, rec.types())

	_, ok := s.Tree().Node(other)
	assert.False(t, ok)
	assert.Equal(t, []tree.NodeID{card}, s.Tree().Children(root, "contentSections"))
}

func TestDeleteClearsSelectionInSubtree(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()

	card := add(t, s, testutils.CardPath, root, "contentSections")
	inner := add(t, s, testutils.ButtonPath, card, "contentSections")
	require.NoError(t, s.Select(inner))

	require.NoError(t, s.Delete(ctx, card))
	assert.Empty(t, s.Selected())
	_, ok := s.Tree().Node(inner)
	assert.False(t, ok)
}

func TestDeleteErrors(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()

	err := s.Delete(ctx, "component-404")
	require.Error(t, err)
	assert.True(t, errors.IsLookup(err))

	err = s.Delete(ctx, root)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeStructural, errors.TypeOf(err))
	assert.Len(t, s.Tree().Roots(), 1)
}

func TestSelect(t *testing.T) {
	s, root := startSession(t)
	rec := &recorder{}
	s.Subscribe(rec)

	require.NoError(t, s.Select(root))
	assert.Equal(t, root, s.Selected())
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventSelectionChange, rec.events[0].Type)
	assert.Equal(t, root, rec.events[0].Selected)

	require.NoError(t, s.Select(root))
	assert.Len(t, rec.events, 1, "reselecting is silent")

	err := s.Select("component-404")
	require.Error(t, err)
	assert.Equal(t, root, s.Selected())

	require.NoError(t, s.Select(""))
	assert.Empty(t, s.Selected())
}

func TestToggleSlotMode(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	tr := s.Tree()

	acc := add(t, s, testutils.AccordionPath, root, "contentSections")

	mode, err := s.ToggleSlotMode(ctx, acc, "items")
	require.NoError(t, err)
	assert.Equal(t, tree.ModeProp, mode)
	assert.True(t, tr.IsExposed(acc, "items"))
	assert.Equal(t, []string{"items"}, tr.PropModeSlots(acc))

	mode, err = s.ToggleSlotMode(ctx, acc, "items")
	require.NoError(t, err)
	assert.Equal(t, tree.ModeComponents, mode)
	assert.Empty(t, tr.PropModeSlots(acc))

	mode, err = s.ToggleSlotMode(ctx, acc, "extra")
	require.NoError(t, err)
	assert.Equal(t, tree.ModeProp, mode)
	assert.True(t, tr.HasSlot(acc, "extra"), "toggling creates the slot")

	_, err = s.ToggleSlotMode(ctx, "component-404", "items")
	assert.True(t, errors.IsLookup(err))
}

func TestUpdateProperty(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	tr := s.Tree()
	rec := &recorder{}

	button := add(t, s, testutils.ButtonPath, root, "contentSections")
	s.Subscribe(rec)

	require.NoError(t, s.UpdateProperty(ctx, button, "text", "Buy now"))
	v, ok := tr.Value(button, "text")
	require.True(t, ok)
	assert.Equal(t, "Buy now", v)
	assert.Equal(t, []EventType{EventTreeChange, EventValidationChange}, rec.types())

	require.NoError(t, s.UpdateProperty(ctx, button, "link", nil))
	_, ok = tr.Value(button, "link")
	assert.False(t, ok)

	require.NoError(t, s.UpdateProperty(ctx, button, tree.HardcodedKey("text"), true))
	assert.False(t, tr.IsExposed(button, "text"))

	require.NoError(t, s.UpdateProperty(ctx, button, tree.HardcodedKey("link"), false))
	assert.True(t, tr.IsExposed(button, "link"))

	rec.reset()
	require.NoError(t, s.UpdateProperty(ctx, button, tree.RenamedKey("link"), "href"))
	assert.Equal(t, "href", tr.ExposedName(button, "link"))
	assert.Equal(t, []EventType{EventValidationChange}, rec.types())

	err := s.UpdateProperty(ctx, button, "_component", "x/y")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeInput, errors.TypeOf(err))

	err = s.UpdateProperty(ctx, "component-404", "text", "x")
	assert.True(t, errors.IsLookup(err))
}

func TestUpdatePropertyJSON(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	tr := s.Tree()

	heading := add(t, s, testutils.HeadingPath, root, "contentSections")

	require.NoError(t, s.UpdatePropertyJSON(ctx, heading, "style", `{"color":"red","size":2}`))
	v, _ := tr.Value(heading, "style")
	assert.Equal(t, map[string]any{"color": "red", "size": float64(2)}, v)

	err := s.UpdatePropertyJSON(ctx, heading, "style", `{"color":`)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeInput, errors.TypeOf(err))
	assert.True(t, errors.IsRecoverable(err))

	v, _ = tr.Value(heading, "style")
	assert.Equal(t, map[string]any{"color": "red", "size": float64(2)}, v, "last valid value is kept")
}

func TestRenameIsValidationOnly(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	rec := &recorder{}

	button := add(t, s, testutils.ButtonPath, root, "contentSections")
	heading := add(t, s, testutils.HeadingPath, root, "contentSections")
	s.Subscribe(rec)

	require.NoError(t, s.Rename(ctx, heading, "text", "  text  "))
	assert.Equal(t, []EventType{EventValidationChange}, rec.types())
	require.NotNil(t, rec.events[0].Validation)
	assert.False(t, rec.events[0].Validation.Valid)
	assert.Equal(t, []string{"text"}, s.Validation().Names())

	require.NoError(t, s.Rename(ctx, button, "text", "cta"))
	assert.True(t, s.Validation().Valid)
}

func TestDuplicateAcrossNodes(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()

	card := add(t, s, testutils.CardPath, root, "contentSections")
	quote := add(t, s, testutils.TestimonialPath, root, "contentSections")

	require.NoError(t, s.SetExposed(ctx, card, "title", true))
	require.NoError(t, s.Rename(ctx, card, "title", "heading"))
	require.NoError(t, s.Rename(ctx, quote, "authorName", "heading"))

	result := s.Validation()
	assert.False(t, result.Valid)
	require.Len(t, result.Duplicates, 1)
	dup := result.Duplicates[0]
	assert.Equal(t, "heading", dup.ExposedName)
	require.Len(t, dup.Locations, 2)
	assert.Equal(t, card, dup.Locations[0].NodeID)
	assert.Equal(t, "title", dup.Locations[0].OriginalPropName)
	assert.Equal(t, quote, dup.Locations[1].NodeID)
	assert.Equal(t, "authorName", dup.Locations[1].OriginalPropName)

	require.NoError(t, s.SetExposed(ctx, card, "title", false))
	assert.True(t, s.Validation().Valid)
}

func TestForcedExposure(t *testing.T) {
	s, root := startSession(t)
	tr := s.Tree()

	acc := add(t, s, testutils.AccordionPath, root, "contentSections")
	assert.False(t, tr.IsExposed(acc, "items"), "an empty slot is not uniform")

	items := []tree.NodeID{
		add(t, s, testutils.AccordionItemPath, acc, "items"),
		add(t, s, testutils.AccordionItemPath, acc, "items"),
		add(t, s, testutils.AccordionItemPath, acc, "items"),
	}

	assert.True(t, tr.IsExposed(acc, "items"))
	for _, item := range items {
		assert.True(t, tr.IsExposed(item, "title"))
		assert.False(t, tr.IsExposed(item, "contentSections"), "slot props of the wrapper stay as they are")
	}
	assert.True(t, tr.UsesListPattern(acc, "items"))

	before := tr.Encode()
	assert.Zero(t, s.forceExpose(), "a second pass is a fixpoint")
	assert.Equal(t, before, tr.Encode())
}

func TestForcedExposureSkipsPlainSlots(t *testing.T) {
	s, root := startSession(t)
	tr := s.Tree()

	card := add(t, s, testutils.CardPath, root, "contentSections")
	add(t, s, testutils.ImagePath, card, "contentSections")
	add(t, s, testutils.ImagePath, card, "contentSections")

	assert.False(t, tr.IsExposed(card, "contentSections"), "card declares no list wrapper")
	assert.False(t, tr.IsExposed(root, "contentSections"))
}

func TestListScopeIsolation(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()

	acc := add(t, s, testutils.AccordionPath, root, "contentSections")
	first := add(t, s, testutils.AccordionItemPath, acc, "items")
	add(t, s, testutils.AccordionItemPath, acc, "items")
	heading := add(t, s, testutils.HeadingPath, root, "contentSections")
	require.NoError(t, s.Rename(ctx, heading, "text", "title"))

	assert.True(t, s.Validation().Valid, "item titles live in the item schema")

	button := add(t, s, testutils.ButtonPath, first, "contentSections")
	require.NoError(t, s.Rename(ctx, button, "text", "title"))

	result := s.Validation()
	assert.False(t, result.Valid)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "title (within items item schema)", result.Duplicates[0].ExposedName)
	assert.Equal(t, "items", result.Duplicates[0].Scope)
}

func TestExportGate(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	target := export.Target{Kind: export.KindBuildingBlock, Category: "core-elements", Name: "Promo"}

	button := add(t, s, testutils.ButtonPath, root, "contentSections")
	heading := add(t, s, testutils.HeadingPath, root, "contentSections")
	require.NoError(t, s.Rename(ctx, heading, "text", "text"))

	_, err := s.Export(ctx, target)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
	var be *errors.BuilderError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, errors.ErrCodeDuplicateExposed, be.Code)
	assert.Equal(t, []string{"text"}, be.Context["duplicates"])

	before := s.Tree().Encode()
	require.NoError(t, s.Rename(ctx, button, "text", "label_text"))
	b, err := s.Export(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, "building-blocks/core-elements/promo", b.Target.Path)
	assert.Contains(t, b.Template, "text={label_text}")
	assert.Contains(t, b.Template, "text={text}")

	after := s.Tree().Encode()
	assert.NotEqual(t, before, after, "rename changed the tree")
	assert.Equal(t, after, s.Tree().Encode(), "export leaves the tree untouched")
}

func TestExportGateBuiltinName(t *testing.T) {
	s, root := startSession(t)
	ctx := context.Background()
	target := export.Target{Kind: export.KindBuildingBlock, Category: "core-elements", Name: "Promo"}

	heading := add(t, s, testutils.HeadingPath, root, "contentSections")
	require.NoError(t, s.Rename(ctx, heading, "text", "label"))

	result := s.Validation()
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"label"}, result.Names())

	_, err := s.Export(ctx, target)
	require.Error(t, err)
	var be *errors.BuilderError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, errors.ErrCodeDuplicateExposed, be.Code)
	assert.Equal(t, []string{"label"}, be.Context["duplicates"])

	require.NoError(t, s.Rename(ctx, heading, "text", "headline"))
	b, err := s.Export(ctx, target)
	require.NoError(t, err)
	assert.Contains(t, b.Template, "text={headline}")
	assert.Equal(t, 1, strings.Count(b.Template, "  label,\n"))
	assert.Contains(t, b.Inputs, "headline:")
}

func TestSubscribe(t *testing.T) {
	s, root := startSession(t)
	var got []EventType
	unsubscribe := s.Subscribe(ObserverFunc(func(e Event) {
		got = append(got, e.Type)
	}))

	add(t, s, testutils.ButtonPath, root, "contentSections")
	assert.Equal(t, []EventType{EventTreeChange, EventValidationChange}, got)

	unsubscribe()
	add(t, s, testutils.ButtonPath, root, "contentSections")
	assert.Len(t, got, 2)
}

func TestOpen(t *testing.T) {
	reg := testutils.Registry(t)
	tr := tree.New(reg)
	root, err := tr.InitRoot()
	require.NoError(t, err)

	acc := tr.CreateNode(testutils.Descriptor(t, reg, testutils.AccordionPath))
	require.NoError(t, tr.Attach(acc.ID, root, "contentSections", 0))
	item := tr.CreateNode(testutils.Descriptor(t, reg, testutils.AccordionItemPath))
	require.NoError(t, tr.Attach(item.ID, acc.ID, "items", 0))

	s := Open(tr)
	assert.Same(t, tr, s.Tree())
	assert.True(t, tr.IsExposed(acc.ID, "items"))
	assert.True(t, tr.IsExposed(item.ID, "title"))
	assert.True(t, s.Validation().Valid)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "tree_change", EventTreeChange.String())
	assert.Equal(t, "selection_change", EventSelectionChange.String())
	assert.Equal(t, "validation_change", EventValidationChange.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
