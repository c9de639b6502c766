package registry

import "strings"

// MatchesAllowed reports whether path satisfies one allow-list entry.
// Entries ending in "/*" match every path below that prefix.
func MatchesAllowed(path, allowed string) bool {
	if prefix, ok := strings.CutSuffix(allowed, "*"); ok && strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(path, prefix)
	}

	return path == allowed
}

// Allows reports whether the slot's allow-list admits path. Unlike CanDrop
// an empty list admits nothing.
func (s *Slot) Allows(path string) bool {
	for _, allowed := range s.AllowedComponents {
		if MatchesAllowed(path, allowed) {
			return true
		}
	}

	return false
}

// CanDrop reports whether d may be dropped into slot. A nil slot or an
// empty allow-list accepts every component.
func CanDrop(d *Descriptor, slot *Slot) bool {
	if d == nil {
		return false
	}
	if slot == nil || len(slot.AllowedComponents) == 0 {
		return true
	}

	return slot.Allows(d.Path)
}

// Insertable lists the descriptors a picker offers for slot. The root and
// virtual components are left out unless the slot names a virtual path
// explicitly. A non-empty search keeps descriptors whose display name or
// description contains it, ignoring case.
func (r *Registry) Insertable(slot *Slot, search string) []*Descriptor {
	explicitVirtual := make(map[string]bool)
	if slot != nil {
		for _, allowed := range slot.AllowedComponents {
			if d, ok := r.byPath[allowed]; ok && d.IsVirtual {
				explicitVirtual[allowed] = true
			}
		}
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]*Descriptor, 0, len(r.components))
	for _, d := range r.components {
		if d.Path == r.rootPath {
			continue
		}
		if d.IsVirtual && !explicitVirtual[d.Path] {
			continue
		}
		if slot != nil && len(slot.AllowedComponents) > 0 && !slot.Allows(d.Path) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(d.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(d.Description), needle) {
			continue
		}
		out = append(out, d)
	}

	return out
}
