// Package minutes drafts formal meeting minutes from a corrected transcript
// and stores them as markdown, plus PDF when pandoc is installed.
package minutes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jwulff/recut/internal/transcript"
)

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = "gemini-2.0-flash"

// Unknown labels lines whose speaker has no display name.
const Unknown = "Desconocido"

// maxTranscriptChars bounds the transcript sent to the model.
const maxTranscriptChars = 200000

// ErrNoAPIKey is returned when the Gemini generator has no key.
var ErrNoAPIKey = errors.New("GOOGLE_API_KEY is not configured")

const systemPrompt = `Eres un secretario experto de un instituto de investigación.
Tu tarea es redactar un ACTA DE REUNIÓN formal y profesional en formato Markdown.

INSTRUCCIONES:
1. Usa un tono formal, objetivo y conciso (tercera persona).
2. Estructura el acta en:
   - Encabezado (Fecha, Asistentes, Ausentes).
   - Orden del Día (deduce los puntos principales).
   - Desarrollo de la sesión (resumen por puntos).
   - Acuerdos y Votaciones (destaca claramente los resultados).
3. NO inventes información. Básate solo en la transcripción.`

// Request is one minutes generation.
type Request struct {
	Transcript string
	Attendees  []string
	Model      string
}

// Generator drafts minutes markdown.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// TranscriptText renders segs as "Name: text" lines for the prompt.
func TranscriptText(segs []transcript.Segment, m transcript.Mapping) string {
	return strings.Join(transcript.Lines(segs, m, Unknown), "\n")
}

// UserPrompt builds the prompt sent along with the system instruction.
func UserPrompt(req Request) string {
	var attendees []string
	for _, a := range req.Attendees {
		if strings.TrimSpace(a) != "" {
			attendees = append(attendees, a)
		}
	}
	text := req.Transcript
	if r := []rune(text); len(r) > maxTranscriptChars {
		text = string(r[:maxTranscriptChars])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Asistentes oficiales: %s\n\n", strings.Join(attendees, ", "))
	b.WriteString("Transcripción de la reunión:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---\n\nPor favor, genera el acta ahora siguiendo el formato Markdown.\n")
	return b.String()
}

// Gemini generates minutes through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini generator. model is the default used when a
// request names none.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate asks the model for minutes.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	model := ModelName(req.Model, g.model)
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(UserPrompt(req)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate (%s): %w", model, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini generate (%s): empty response", model)
	}
	return text, nil
}

// ModelName picks the requested model, then the configured one, then
// DefaultModel, dropping any legacy "models/" prefix.
func ModelName(requested, configured string) string {
	name := requested
	if name == "" {
		name = configured
	}
	if name == "" {
		name = DefaultModel
	}
	return strings.TrimPrefix(name, "models/")
}

// Unavailable is the generator used when no model is configured.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, Request) (string, error) {
	return "", ErrNoAPIKey
}
