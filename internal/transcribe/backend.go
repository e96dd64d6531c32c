// Package transcribe turns extracted meeting audio into speaker-labelled
// segments.
package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/jwulff/recut/internal/transcript"
)

// Transcript is the output of a backend.
type Transcript struct {
	Language string
	Segments []transcript.Segment
	Duration time.Duration
}

// Backend is a pluggable transcription backend.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// Diarizer assigns raw speaker ids to segments that have none.
type Diarizer interface {
	AssignSpeakers(ctx context.Context, tr *Transcript) error
}

// GapDiarizer alternates between two speakers whenever the silence between
// consecutive segments exceeds Gap. Segments that already carry a speaker
// are left alone, and so is every segment once any of them has one.
type GapDiarizer struct {
	Gap float64
}

// DefaultGap is the silence, in seconds, that switches speakers.
const DefaultGap = 1.5

func (d GapDiarizer) AssignSpeakers(ctx context.Context, tr *Transcript) error {
	if len(tr.Segments) == 0 {
		return nil
	}
	for _, s := range tr.Segments {
		if s.Speaker != "" {
			return nil
		}
	}
	gap := d.Gap
	if gap <= 0 {
		gap = DefaultGap
	}
	speaker := 0
	for i := range tr.Segments {
		if i > 0 && tr.Segments[i].Start-tr.Segments[i-1].End > gap {
			speaker = 1 - speaker
		}
		tr.Segments[i].Speaker = SpeakerID(speaker)
	}
	return nil
}

// SpeakerID formats the raw id of the i-th detected speaker.
func SpeakerID(i int) string {
	return fmt.Sprintf("SPEAKER_%02d", i)
}

// SpeakersFound returns the mapping reported with a completed job: every raw
// id in first-seen order, still unresolved.
func SpeakersFound(segs []transcript.Segment) transcript.Mapping {
	found := make(transcript.Mapping)
	for _, id := range transcript.Speakers(segs) {
		found[id] = ""
	}
	return found
}
