package app

import (
	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/editor"
	"github.com/jwulff/recut/internal/session"
)

// UploadedMsg carries the result of an upload.
type UploadedMsg struct {
	Token    editor.Token
	Response api.UploadResponse
	Err      error
}

// PollTickMsg asks for a status poll of the job generation it was scheduled
// under.
type PollTickMsg struct {
	Gen uint64
}

// JobStatusMsg carries a status poll result.
type JobStatusMsg struct {
	Gen      uint64
	Response api.StatusResponse
	Err      error
}

// TrimDoneMsg carries the trim executor's answer.
type TrimDoneMsg struct {
	Token    editor.Token
	Response api.TrimResponse
	Err      error
}

// MediaProbeMsg reports whether the media behind Ref is reachable.
type MediaProbeMsg struct {
	Token   editor.Token
	Ref     string
	Attempt int
	Err     error
}

// MediaRetryMsg schedules another media probe.
type MediaRetryMsg struct {
	Token   editor.Token
	Ref     string
	Attempt int
}

// SavedMsg acknowledges a session save.
type SavedMsg struct {
	Token editor.Token
	Name  string
	Err   error
}

// SessionsListedMsg carries the saved sessions, newest first.
type SessionsListedMsg struct {
	Sessions []session.Info
}

// LoadedMsg carries a loaded session.
type LoadedMsg struct {
	Token editor.Token
	Name  string
	State session.State
	Err   error
}

// MinutesMsg carries generated minutes.
type MinutesMsg struct {
	Token    editor.Token
	Response api.MinutesResponse
	Err      error
}

// ExportedMsg reports a transcript written to disk.
type ExportedMsg struct {
	Path string
	Err  error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
