package tree

import (
	"testing"

	"github.com/conneroisu/blockwright/internal/errors"
	"github.com/conneroisu/blockwright/internal/testutils"
	"github.com/stretchr/testify/assert"
)

// FuzzDecodeDocument feeds arbitrary documents to the tree decoder. Decoding
// either fails with a typed error or yields a forest where every node is
// reachable once and knows its location.
func FuzzDecodeDocument(f *testing.F) {
	f.Add(`componentTree:
  - _component: page-sections/builders/custom-section
    _isRootComponent: true
    contentSections:
      - _component: building-blocks/core-elements/button
        text: Go
        _hardcoded_text: false
        _renamed_text: cta
`)
	f.Add(`[{"_component": "building-blocks/wrappers/accordion", "id": "component-3", "_items_mode": "prop", "items": [{"title": "Raw"}]}]`)
	f.Add("- _component: a\n  id: \"\\0pending-1\"\n- _component: b\n")
	f.Add("- _component: a\n  id: component-9223372036854775807\n- _component: b\n")
	f.Add("- _component: a\n  id: component-1\n  slot:\n    - _component: b\n      id: component-1\n")
	f.Add("- _component: a\n  _hardcoded_text: maybe\n")
	f.Add("a: &a [*a]")
	f.Add("- 1\n- 2")
	f.Add("{}")
	f.Add("")

	reg := testutils.Registry(f)

	f.Fuzz(func(t *testing.T, doc string) {
		if len(doc) > 64<<10 {
			t.Skip("document too large")
		}

		tr, err := DecodeDocument(reg, []byte(doc))
		if err != nil {
			_, typed := errors.AsBuilderError(err)
			assert.True(t, typed, "untyped decode error: %v", err)
			return
		}

		seen := make(map[NodeID]bool)
		tr.Walk(func(id NodeID, _ int) bool {
			assert.False(t, seen[id], "node %q reached twice", id)
			seen[id] = true

			_, ok := tr.Node(id)
			assert.True(t, ok, "walked node %q is not indexed", id)
			_, ok = tr.Location(id)
			assert.True(t, ok, "walked node %q has no location", id)

			return true
		})
		assert.Len(t, tr.Encode(), len(tr.Roots()))
	})
}
