// Package transcript holds the segment model and speaker identity resolution.
//
// Display names are resolved on read: a global rename only touches the
// mapping, and a segment marked Manual carries a literal name that the
// mapping never overrides.
package transcript

// Segment is one utterance interval, in seconds from the media origin.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
	Manual  bool    `json:"manual,omitempty"`
}

// Mapping maps a raw speaker id to a display name. An empty name means the
// id is known but unresolved.
type Mapping map[string]string

// Clone returns an independent copy of the mapping. A nil mapping clones to
// an empty, non-nil one.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CloneSegments returns a copy of segs that shares no backing array.
func CloneSegments(segs []Segment) []Segment {
	if segs == nil {
		return nil
	}
	out := make([]Segment, len(segs))
	copy(out, segs)
	return out
}
