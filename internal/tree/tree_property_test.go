//go:build property

package tree

import (
	"testing"

	"github.com/conneroisu/blockwright/internal/testutils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildNested attaches one card per entry of parents. Entry i names the
// index of an earlier card to nest under, or -1 for the root.
func buildNested(t *testing.T, parents []int) (*Tree, []NodeID) {
	tr := New(testutils.Registry(t))
	root, err := tr.InitRoot()
	if err != nil {
		t.Fatal(err)
	}

	card := testutils.Descriptor(t, tr.Registry(), testutils.CardPath)
	ids := make([]NodeID, 0, len(parents))
	for i, p := range parents {
		parent := root
		if p >= 0 && i > 0 {
			parent = ids[p%i]
		}
		n := tr.CreateNode(card)
		if err := tr.Attach(n.ID, parent, "contentSections", len(tr.Children(parent, "contentSections"))); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, n.ID)
	}

	return tr, ids
}

func TestAncestryProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("every node is its own ancestor", prop.ForAll(
		func(parents []int) bool {
			tr, ids := buildNested(t, parents)
			for _, id := range ids {
				if !tr.IsAncestorOf(id, id) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(-1, 11)),
	))

	properties.Property("ancestry matches the walk", prop.ForAll(
		func(parents []int) bool {
			tr, ids := buildNested(t, parents)
			for _, a := range ids {
				below := make(map[NodeID]bool)
				tr.WalkFrom(a, func(id NodeID, _ int) bool {
					below[id] = true
					return true
				})
				for _, b := range ids {
					if tr.IsAncestorOf(a, b) != below[b] {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(-1, 11)),
	))

	properties.Property("detach and reattach keeps every node", prop.ForAll(
		func(parents []int, pick, index int) bool {
			tr, ids := buildNested(t, parents)
			before := tr.Len()

			id := ids[pick%len(ids)]
			loc, err := tr.Detach(id)
			if err != nil {
				return false
			}
			siblings := len(tr.Children(loc.Parent, loc.Slot))
			if err := tr.Attach(id, loc.Parent, loc.Slot, index); err != nil {
				return false
			}

			count := 0
			tr.Walk(func(NodeID, int) bool {
				count++
				return true
			})

			return tr.Len() == before &&
				count == before &&
				len(tr.Children(loc.Parent, loc.Slot)) == siblings+1
		},
		gen.SliceOfN(8, gen.IntRange(-1, 7)),
		gen.IntRange(0, 100),
		gen.IntRange(-2, 10),
	))

	properties.TestingRun(t)
}
