package timeline

import (
	"errors"
	"math"
	"testing"

	"github.com/jwulff/recut/internal/transcript"
)

func TestRebaseAppliedOffsetScenario(t *testing.T) {
	segs := []transcript.Segment{
		{Start: 0, End: 5, Speaker: "SPEAKER_00"},
		{Start: 10, End: 15, Speaker: "SPEAKER_01"},
	}

	got, err := Rebase(segs, 8, 20, 10)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d segments, want 1: %+v", len(got), got)
	}
	want := transcript.Segment{Start: 0, End: 5, Speaker: "SPEAKER_01"}
	if got[0] != want {
		t.Errorf("got %+v, want %+v", got[0], want)
	}
}

func TestRebaseClampsStraddlingSegment(t *testing.T) {
	segs := []transcript.Segment{{Start: 4, End: 12, Text: "straddles", Speaker: "A"}}

	got, err := Rebase(segs, 8, 30, 8)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if len(got) != 1 || got[0].Start != 0 || got[0].End != 4 {
		t.Errorf("got %+v, want start 0 end 4", got)
	}
}

func TestRebaseDropsOutsideWindow(t *testing.T) {
	segs := []transcript.Segment{
		{Start: 0, End: 10},  // end == offset: dropped
		{Start: 10, End: 20}, // kept
		{Start: 29, End: 31}, // straddles end: kept
		{Start: 30, End: 40}, // start == trimEnd: dropped
		{Start: 50, End: 55}, // after: dropped
	}

	got, err := Rebase(segs, 10, 30, 10)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(got), got)
	}
	if got[0].Start != 0 || got[0].End != 10 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Start != 19 || got[1].End != 21 {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestRebasePreservesFieldsAndOrder(t *testing.T) {
	segs := []transcript.Segment{
		{Start: 12, End: 14, Text: "second", Speaker: "Bob", Manual: true},
		{Start: 11, End: 13, Text: "first", Speaker: "SPEAKER_00"},
	}
	got, err := Rebase(segs, 10, 20, 10)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if got[0].Text != "second" || got[0].Speaker != "Bob" || !got[0].Manual {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Text != "first" || got[1].Manual {
		t.Errorf("got[1] = %+v", got[1])
	}
	if segs[0].Start != 12 {
		t.Error("input slice was modified")
	}
}

func TestRebaseNeverNegative(t *testing.T) {
	var segs []transcript.Segment
	for i := 0; i < 50; i++ {
		s := float64(i) * 1.5
		segs = append(segs, transcript.Segment{Start: s, End: s + 2.25})
	}
	for _, offset := range []float64{0, 0.5, 7, 33.3, 74} {
		got, err := Rebase(segs, offset, 80, offset)
		if err != nil {
			t.Fatalf("Rebase(%v): %v", offset, err)
		}
		for _, seg := range got {
			if seg.Start < 0 || seg.End < 0 {
				t.Fatalf("offset %v produced negative bounds: %+v", offset, seg)
			}
		}
	}
}

func TestRebaseZeroOffsetIdempotent(t *testing.T) {
	segs := []transcript.Segment{{Start: 1, End: 2}, {Start: 3, End: 4}}
	once, _ := Rebase(segs, 0, 10, 0)
	twice, _ := Rebase(once, 0, 10, 0)
	if len(once) != len(twice) {
		t.Fatalf("lengths differ: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("segment %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestRebaseRejectsInvalidWindow(t *testing.T) {
	cases := []struct{ start, end float64 }{
		{10, 10},
		{10, 5},
		{-1, 5},
		{math.NaN(), 5},
		{0, math.Inf(1)},
	}
	for _, c := range cases {
		_, err := Rebase([]transcript.Segment{{Start: 0, End: 1}}, c.start, c.end, c.start)
		var verr *transcript.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("window (%v, %v): err = %v, want ValidationError", c.start, c.end, err)
		}
	}
}
