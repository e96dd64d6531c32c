package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwulff/recut/internal/transcript"
)

// DefaultOpenAIURL is the OpenAI audio transcription endpoint. Any server
// speaking the same API (whisper.cpp server, LocalAI, faster-whisper-server)
// can be used instead.
const DefaultOpenAIURL = "https://api.openai.com/v1/audio/transcriptions"

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "whisper-1"

type openAIBackend struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAIBackend returns a backend posting to url (DefaultOpenAIURL when
// empty) and requesting verbose_json so segment timings come back.
func NewOpenAIBackend(url, apiKey, model string) Backend {
	if url == "" {
		url = DefaultOpenAIURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &openAIBackend{
		url:    url,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Minute},
	}
}

type verboseResp struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Text    string  `json:"text"`
		Speaker string  `json:"speaker"`
	} `json:"segments"`
}

func (o *openAIBackend) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return Transcript{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", o.model); err != nil {
		return Transcript{}, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return Transcript{}, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Transcript{}, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return Transcript{}, err
	}
	if err := mw.Close(); err != nil {
		return Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, &body)
	if err != nil {
		return Transcript{}, err
	}
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("transcribe request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Transcript{}, fmt.Errorf("transcribe http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return decodeVerbose(resp.Body)
}

func decodeVerbose(r io.Reader) (Transcript, error) {
	var vr verboseResp
	if err := json.NewDecoder(r).Decode(&vr); err != nil {
		return Transcript{}, fmt.Errorf("decode transcription: %w", err)
	}
	tr := Transcript{
		Language: vr.Language,
		Duration: time.Duration(vr.Duration * float64(time.Second)),
		Segments: []transcript.Segment{},
	}
	for _, s := range vr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		tr.Segments = append(tr.Segments, transcript.Segment{
			Start:   s.Start,
			End:     s.End,
			Text:    text,
			Speaker: s.Speaker,
		})
	}
	// Servers without segment output still return the text.
	if len(tr.Segments) == 0 && strings.TrimSpace(vr.Text) != "" {
		tr.Segments = append(tr.Segments, transcript.Segment{
			End:  vr.Duration,
			Text: strings.TrimSpace(vr.Text),
		})
	}
	return tr, nil
}
