package transcript

import "fmt"

// DisplayName returns the name shown for seg. Manual segments show their
// literal speaker; others show the mapped name, falling back to the raw id
// when the mapping has no entry or an empty one.
func DisplayName(seg Segment, m Mapping) string {
	if seg.Manual {
		return seg.Speaker
	}
	if name := m[seg.Speaker]; name != "" {
		return name
	}
	return seg.Speaker
}

// RenameGlobal returns a copy of m with rawID mapped to name. Segments are
// untouched.
func RenameGlobal(m Mapping, rawID, name string) Mapping {
	out := m.Clone()
	out[rawID] = name
	return out
}

// RenameSegment returns a copy of segs where segment i carries the literal
// name and is detached from the mapping for good.
func RenameSegment(segs []Segment, i int, name string) ([]Segment, error) {
	if i < 0 || i >= len(segs) {
		return nil, &ValidationError{Field: "segment index", Reason: fmt.Sprintf("%d out of range [0,%d)", i, len(segs))}
	}
	out := CloneSegments(segs)
	out[i].Speaker = name
	out[i].Manual = true
	return out, nil
}

// Seed builds the initial mapping for a completed job: every entry of found
// is kept and every raw id seen in segs without a non-empty entry gets "".
func Seed(segs []Segment, found Mapping) Mapping {
	out := found.Clone()
	for _, seg := range segs {
		if seg.Manual {
			continue
		}
		if out[seg.Speaker] == "" {
			out[seg.Speaker] = ""
		}
	}
	return out
}

// Backfill returns a copy of m extended with an empty entry for every raw id
// in segs that has none. Existing entries are never removed or changed.
func Backfill(segs []Segment, m Mapping) Mapping {
	out := m.Clone()
	for _, seg := range segs {
		if seg.Manual {
			continue
		}
		if _, ok := out[seg.Speaker]; !ok {
			out[seg.Speaker] = ""
		}
	}
	return out
}

// Speakers returns the distinct raw ids of non-manual segments in the order
// they first appear.
func Speakers(segs []Segment) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, seg := range segs {
		if seg.Manual || seen[seg.Speaker] {
			continue
		}
		seen[seg.Speaker] = true
		ids = append(ids, seg.Speaker)
	}
	return ids
}
