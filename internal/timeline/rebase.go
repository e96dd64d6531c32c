// Package timeline re-aligns transcript segments after the media is trimmed
// to a sub-range.
package timeline

import (
	"fmt"
	"math"

	"github.com/jwulff/recut/internal/transcript"
)

// ValidateWindow checks a requested trim window.
func ValidateWindow(start, end float64) error {
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return &transcript.ValidationError{Field: "trim window", Reason: "bounds must be finite"}
	}
	if start < 0 {
		return &transcript.ValidationError{Field: "trim start", Reason: fmt.Sprintf("%.3f is negative", start)}
	}
	if end <= start {
		return &transcript.ValidationError{Field: "trim window", Reason: fmt.Sprintf("end %.3f must be after start %.3f", end, start)}
	}
	return nil
}

// Rebase returns the segments that survive trimming the media to
// [appliedOffset, trimEnd), shifted so appliedOffset becomes zero.
//
// appliedOffset is where the trim executor actually cut, which may differ
// from the requested start. Segments with no overlap are dropped; bounds
// are clamped at zero; everything but Start and End is kept verbatim.
// The input slice is not modified.
func Rebase(segs []transcript.Segment, trimStart, trimEnd, appliedOffset float64) ([]transcript.Segment, error) {
	if err := ValidateWindow(trimStart, trimEnd); err != nil {
		return nil, err
	}

	out := make([]transcript.Segment, 0, len(segs))
	for _, seg := range segs {
		if seg.End <= appliedOffset || seg.Start >= trimEnd {
			continue
		}
		seg.Start = math.Max(0, seg.Start-appliedOffset)
		seg.End = math.Max(0, seg.End-appliedOffset)
		out = append(out, seg)
	}
	return out, nil
}
