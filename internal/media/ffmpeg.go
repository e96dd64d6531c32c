// Package media wraps the ffmpeg and ffprobe binaries: window trimming,
// audio extraction for transcription and duration probing.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// TrimTimeout bounds a single trim re-encode.
const TrimTimeout = 5 * time.Minute

// ErrEmptyOutput is returned when ffmpeg exits cleanly but leaves no output.
var ErrEmptyOutput = errors.New("trimmed file missing or empty")

// FFmpeg runs the ffmpeg tools found at FFmpegBin and ProbeBin.
type FFmpeg struct {
	FFmpegBin string
	ProbeBin  string
	log       logrus.FieldLogger
}

// New returns an FFmpeg using bin, or "ffmpeg" from PATH when bin is empty.
// ffprobe is looked up next to bin.
func New(bin string, log logrus.FieldLogger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	probe := "ffprobe"
	if dir := filepath.Dir(bin); dir != "." {
		probe = filepath.Join(dir, "ffprobe")
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &FFmpeg{FFmpegBin: bin, ProbeBin: probe, log: log}
}

// Available reports whether the ffmpeg binary can be found.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.FFmpegBin)
	return err == nil
}

// TrimArgs builds the ffmpeg arguments that cut [start, end) out of in and
// re-encode it to out. Seeking before the input keeps the cut fast; the
// re-encode keeps audio and video aligned on the new origin.
func TrimArgs(in, out string, start, end float64) []string {
	return []string{
		"-ss", formatSeconds(start),
		"-i", in,
		"-t", formatSeconds(end - start),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-c:a", "aac",
		"-y",
		out,
	}
}

// Trim writes the [start, end) window of in to out and returns the offset
// that became the new origin.
func (f *FFmpeg) Trim(ctx context.Context, in, out string, start, end float64) (float64, error) {
	if end <= start {
		return 0, fmt.Errorf("trim window [%g,%g) is empty", start, end)
	}
	if _, err := os.Stat(in); err != nil {
		return 0, fmt.Errorf("trim input: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, TrimTimeout)
	defer cancel()

	args := TrimArgs(in, out, start, end)
	f.log.WithFields(logrus.Fields{"input": in, "output": out, "start": start, "end": end}).Info("trimming media")

	cmd := exec.CommandContext(ctx, f.FFmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, fmt.Errorf("ffmpeg trim timed out after %s", TrimTimeout)
		}
		return 0, fmt.Errorf("ffmpeg trim failed: %w: %s", err, lastLine(stderr.String()))
	}
	if err := waitNonEmpty(out, 5, 200*time.Millisecond); err != nil {
		return 0, err
	}
	return start, nil
}

// ExtractAudio writes a mono 16kHz WAV of videoPath into tmpDir and returns
// its path.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, tmpDir string) (string, error) {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	out := filepath.Join(tmpDir, base+"_audio_16k.wav")

	cmd := exec.CommandContext(ctx, f.FFmpegBin,
		"-y", "-i", videoPath,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w: %s", err, lastLine(stderr.String()))
	}
	return out, nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration asks ffprobe for the container duration of path.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, f.ProbeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w: %s", err, lastLine(stderr.String()))
	}
	return ParseProbeDuration(out.Bytes())
}

// ParseProbeDuration reads format.duration from ffprobe JSON output.
func ParseProbeDuration(data []byte) (time.Duration, error) {
	var po probeOutput
	if err := json.Unmarshal(data, &po); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if po.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe output has no duration")
	}
	secs, err := strconv.ParseFloat(po.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", po.Format.Duration, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func waitNonEmpty(path string, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
			return nil
		}
		time.Sleep(delay)
	}
	return fmt.Errorf("%w: %s", ErrEmptyOutput, path)
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
