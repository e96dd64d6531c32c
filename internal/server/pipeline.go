package server

import (
	"context"
	"fmt"
	"os"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/transcribe"
)

// Processor turns an uploaded recording into a transcription result.
type Processor interface {
	Process(ctx context.Context, videoPath string) (api.JobResult, error)
}

// AudioExtractor pulls a speech track out of a recording.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, tmpDir string) (string, error)
}

// Pipeline extracts audio, transcribes it and labels speakers.
type Pipeline struct {
	Audio    AudioExtractor
	Backend  transcribe.Backend
	Diarizer transcribe.Diarizer
	TmpDir   string
}

// Process runs the pipeline on videoPath.
func (p *Pipeline) Process(ctx context.Context, videoPath string) (api.JobResult, error) {
	audio, err := p.Audio.ExtractAudio(ctx, videoPath, p.TmpDir)
	if err != nil {
		return api.JobResult{}, fmt.Errorf("extract audio: %w", err)
	}
	defer os.Remove(audio)

	tr, err := p.Backend.Transcribe(ctx, audio)
	if err != nil {
		return api.JobResult{}, fmt.Errorf("transcribe: %w", err)
	}
	if p.Diarizer != nil {
		if err := p.Diarizer.AssignSpeakers(ctx, &tr); err != nil {
			return api.JobResult{}, fmt.Errorf("assign speakers: %w", err)
		}
	}
	return api.JobResult{
		Segments:      tr.Segments,
		SpeakersFound: transcribe.SpeakersFound(tr.Segments),
		Language:      tr.Language,
	}, nil
}
