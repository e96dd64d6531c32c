// Package api provides the client and wire types for the recut HTTP/JSON
// backend: upload, job status, minutes, sessions and trimming.
package api

import (
	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/transcript"
)

// Job statuses reported by GET /status/{job_id}.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status,omitempty"`
}

// JobResult is the transcription output of a completed job.
type JobResult struct {
	Segments      []transcript.Segment `json:"segments"`
	SpeakersFound transcript.Mapping   `json:"speakers_found"`
	Language      string               `json:"language,omitempty"`
}

// StatusResponse is returned by GET /status/{job_id}. Result, Attendees and
// VideoURL are only set once the job completed.
type StatusResponse struct {
	Status    string     `json:"status"`
	Result    *JobResult `json:"result,omitempty"`
	Attendees []string   `json:"attendees,omitempty"`
	VideoURL  string     `json:"video_url,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// MinutesRequest is the body of POST /generate-minutes/{job_id}. Segments
// may be omitted for a job still held by the backend.
type MinutesRequest struct {
	SpeakerMapping transcript.Mapping   `json:"speaker_mapping"`
	Segments       []transcript.Segment `json:"segments,omitempty"`
	Attendees      []string             `json:"attendees,omitempty"`
	SessionName    string               `json:"session_name,omitempty"`
	Model          string               `json:"model,omitempty"`
}

// MinutesFiles are the links to the stored minutes documents.
type MinutesFiles struct {
	Markdown string `json:"md,omitempty"`
	PDF      string `json:"pdf,omitempty"`
}

// MinutesResponse is returned by POST /generate-minutes/{job_id}.
type MinutesResponse struct {
	Minutes string        `json:"minutes"`
	Files   *MinutesFiles `json:"minutes_files,omitempty"`
}

// SaveSessionRequest is the body of POST /sessions.
type SaveSessionRequest struct {
	Name string        `json:"name" validate:"required"`
	Data session.State `json:"data"`
}

// SaveSessionResponse acknowledges POST /sessions.
type SaveSessionResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// TrimRequest is the body of POST /trim-video.
type TrimRequest struct {
	VideoURL string  `json:"video_url" validate:"required"`
	Start    float64 `json:"start" validate:"gte=0"`
	End      float64 `json:"end" validate:"gtfield=Start"`
	NewName  string  `json:"new_name" validate:"required"`
}

// TrimResponse is returned by POST /trim-video. OriginalStart is the offset
// the executor actually applied and takes precedence over the requested
// start.
type TrimResponse struct {
	Message       string  `json:"message,omitempty"`
	NewVideoURL   string  `json:"new_video_url"`
	OriginalStart float64 `json:"original_start"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
