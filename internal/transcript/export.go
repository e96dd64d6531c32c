package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Lines renders "Name: text" lines for a minutes prompt. Segments without
// text are skipped. A speaker mapped to an empty name, or with no id at all,
// is shown as unknown; ids missing from m keep their raw id.
func Lines(segs []Segment, m Mapping, unknown string) []string {
	var lines []string
	for _, seg := range segs {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		name := DisplayName(seg, m)
		if named, ok := m[seg.Speaker]; !seg.Manual && ok && named == "" {
			name = unknown
		}
		if name == "" {
			name = unknown
		}
		lines = append(lines, name+": "+text)
	}
	return lines
}

// Export renders the corrected transcript as plain text, one
// "[m:ss] Name: text" line per segment.
func Export(segs []Segment, m Mapping) string {
	var b strings.Builder
	for i, seg := range segs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s: %s", Clock(seg.Start), DisplayName(seg, m), seg.Text)
	}
	return b.String()
}

// Clock formats seconds as m:ss.
func Clock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	whole := int(sec)
	return fmt.Sprintf("%d:%02d", whole/60, whole%60)
}

// Meta is the header of a markdown export.
type Meta struct {
	Title     string
	Attendees []string
	Source    string
	Generated time.Time
}

// Markdown renders the transcript as a markdown document.
func Markdown(meta Meta, segs []Segment, m Mapping) string {
	var b strings.Builder
	if meta.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	} else {
		b.WriteString("# Meeting Transcript\n\n")
	}
	if len(meta.Attendees) > 0 {
		fmt.Fprintf(&b, "- Attendees: %s\n", strings.Join(meta.Attendees, ", "))
	}
	if meta.Source != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", meta.Source)
	}
	if !meta.Generated.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", meta.Generated.Format(time.RFC3339))
	}
	b.WriteString("\n---\n\n")

	for _, seg := range segs {
		fmt.Fprintf(&b, "[%s-%s] **%s**: %s\n\n",
			timestamp(seg.Start), timestamp(seg.End), DisplayName(seg, m), strings.TrimSpace(seg.Text))
	}
	return b.String()
}

func timestamp(sec float64) string {
	d := time.Duration(sec*1000) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
