// Package editor holds the live editing state and the operations on it.
//
// Controller is a value: every operation returns a new Controller and never
// mutates the receiver's slices or maps, so older values stay valid. The
// owner (the terminal UI) is the only caller and applies operations one at
// a time.
//
// Network work happens outside. A Begin-style operation returns a Token
// along with the request to send; the matching result operation takes that
// token back and is ignored when a newer job or session load has superseded
// the state the request was made against.
package editor

import (
	"strings"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/jobs"
	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/timeline"
	"github.com/jwulff/recut/internal/transcript"
)

// Phase says where the current segments came from.
type Phase int

const (
	Empty  Phase = iota // nothing to edit yet
	Seeded              // segments from a completed job
	Loaded              // segments from a saved session
)

func (p Phase) String() string {
	switch p {
	case Seeded:
		return "seeded"
	case Loaded:
		return "loaded"
	default:
		return "empty"
	}
}

// Op identifies a request the controller can be waiting on.
type Op uint8

const (
	OpUpload Op = 1 << iota
	OpSave
	OpLoad
	OpTrim
	OpMinutes
)

func (o Op) String() string {
	switch o {
	case OpUpload:
		return "upload"
	case OpSave:
		return "save"
	case OpLoad:
		return "load"
	case OpTrim:
		return "trim"
	case OpMinutes:
		return "minutes"
	}
	return "op"
}

// Token ties a request result to the state it was started from.
type Token uint64

type trimWindow struct {
	start, end float64
}

// Controller is the editor state.
type Controller struct {
	phase     Phase
	segments  []transcript.Segment
	mapping   transcript.Mapping
	attendees []string
	media     string
	name      string
	minutes   string
	job       jobs.Lifecycle

	epoch      uint64
	busy       Op
	trim       *trimWindow
	awaitMedia string
	saveName   string
}

// New returns an empty controller.
func New() Controller {
	return Controller{mapping: transcript.Mapping{}}
}

// Phase reports whether the state is empty, seeded or loaded.
func (c Controller) Phase() Phase { return c.phase }

// Segments returns a copy of the current segments.
func (c Controller) Segments() []transcript.Segment { return transcript.CloneSegments(c.segments) }

// Len is the number of segments.
func (c Controller) Len() int { return len(c.segments) }

// Segment returns segment i.
func (c Controller) Segment(i int) (transcript.Segment, bool) {
	if i < 0 || i >= len(c.segments) {
		return transcript.Segment{}, false
	}
	return c.segments[i], true
}

// Mapping returns a copy of the speaker mapping.
func (c Controller) Mapping() transcript.Mapping { return c.mapping.Clone() }

// DisplayName resolves the speaker of segment i.
func (c Controller) DisplayName(i int) string {
	seg, ok := c.Segment(i)
	if !ok {
		return ""
	}
	return transcript.DisplayName(seg, c.mapping)
}

// Speakers lists the raw ids that a global rename can target.
func (c Controller) Speakers() []string { return transcript.Speakers(c.segments) }

// Attendees returns a copy of the attendee list.
func (c Controller) Attendees() []string { return append([]string(nil), c.attendees...) }

// MediaRef is the active media reference.
func (c Controller) MediaRef() string { return c.media }

// SessionName is the current session, empty until the first save or load.
func (c Controller) SessionName() string { return c.name }

// Minutes is the last generated minutes text.
func (c Controller) Minutes() string { return c.minutes }

// Job is the current job lifecycle.
func (c Controller) Job() jobs.Lifecycle { return c.job }

// Busy reports whether op is in flight.
func (c Controller) Busy(op Op) bool { return c.busy&op != 0 }

// Idle reports whether nothing is in flight.
func (c Controller) Idle() bool { return c.busy == 0 }

// Export renders the transcript as downloadable text.
func (c Controller) Export() string { return transcript.Export(c.segments, c.mapping) }

// supersede invalidates every outstanding token and drops pending state.
func (c Controller) supersede() Controller {
	c.epoch++
	c.busy = 0
	c.trim = nil
	c.awaitMedia = ""
	c.saveName = ""
	return c
}

func (c Controller) current(tok Token) bool { return uint64(tok) == c.epoch }

// StartJob begins an upload. Prior segments, mapping and session are
// discarded and any running job is cancelled.
func (c Controller) StartJob() (Controller, Token) {
	c = c.supersede()
	c.job = c.job.StartUpload()
	c.phase = Empty
	c.segments = nil
	c.mapping = transcript.Mapping{}
	c.attendees = nil
	c.media = ""
	c.name = ""
	c.minutes = ""
	c.busy = OpUpload
	return c, Token(c.epoch)
}

// UploadSucceeded records the job id; polling may begin.
func (c Controller) UploadSucceeded(tok Token, jobID string) (Controller, bool) {
	if !c.current(tok) {
		return c, false
	}
	c.busy &^= OpUpload
	c.job = c.job.UploadSucceeded(jobID)
	return c, true
}

// OnJobStatus folds a status poll scheduled under gen into the job. A
// completed job settles the editor.
func (c Controller) OnJobStatus(gen uint64, resp api.StatusResponse) (Controller, bool) {
	job, ok := c.job.Apply(gen, resp)
	if !ok {
		return c, false
	}
	c.job = job
	if job.Status == jobs.Completed {
		c = c.OnJobSettled(*job.Result)
	}
	return c, true
}

// OnJobPollFailed folds a failed status poll into the job.
func (c Controller) OnJobPollFailed(gen uint64, err error) (Controller, bool) {
	job, ok := c.job.PollFailed(gen, err)
	if !ok {
		return c, false
	}
	c.job = job
	return c, true
}

// OnJobSettled replaces the editor state with a completed job's output.
func (c Controller) OnJobSettled(res jobs.Result) Controller {
	c.phase = Seeded
	c.segments = transcript.CloneSegments(res.Segments)
	c.mapping = transcript.Seed(res.Segments, res.Mapping)
	c.attendees = append([]string(nil), res.Attendees...)
	c.media = res.MediaRef
	c.name = ""
	c.minutes = ""
	return c
}

// CancelJob stops polling the current job.
func (c Controller) CancelJob() Controller {
	c.job = c.job.Cancel()
	c.busy &^= OpUpload
	return c
}

// RenameGlobal names a raw speaker id everywhere it is not overridden.
func (c Controller) RenameGlobal(rawID, name string) (Controller, error) {
	if strings.TrimSpace(rawID) == "" {
		return c, &transcript.ValidationError{Field: "speaker id", Reason: "must not be empty"}
	}
	c.mapping = transcript.RenameGlobal(c.mapping, rawID, strings.TrimSpace(name))
	return c, nil
}

// RenameSegment gives segment i a literal speaker name. The segment no
// longer follows the mapping.
func (c Controller) RenameSegment(i int, name string) (Controller, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return c, &transcript.ValidationError{Field: "speaker name", Reason: "must not be empty"}
	}
	segs, err := transcript.RenameSegment(c.segments, i, name)
	if err != nil {
		return c, err
	}
	c.segments = segs
	return c, nil
}

// BeginTrim validates a trim window and returns the request for the trim
// executor. Segments are untouched until OnTrimExecuted.
func (c Controller) BeginTrim(start, end float64, newName string) (Controller, Token, api.TrimRequest, error) {
	if err := timeline.ValidateWindow(start, end); err != nil {
		return c, 0, api.TrimRequest{}, err
	}
	if c.media == "" {
		return c, 0, api.TrimRequest{}, &transcript.ValidationError{Field: "media", Reason: "nothing loaded to trim"}
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return c, 0, api.TrimRequest{}, &transcript.ValidationError{Field: "trim name", Reason: "must not be empty"}
	}
	if c.Busy(OpTrim) {
		return c, 0, api.TrimRequest{}, &transcript.ValidationError{Field: "trim", Reason: "a trim is already running"}
	}

	c.busy |= OpTrim
	c.trim = &trimWindow{start: start, end: end}
	req := api.TrimRequest{VideoURL: c.media, Start: start, End: end, NewName: newName}
	return c, Token(c.epoch), req, nil
}

// OnTrimExecuted rebases the segments against the offset the executor
// actually applied and switches to the new media. The trim stays busy
// until MediaLoaded reports the new media ready.
func (c Controller) OnTrimExecuted(tok Token, newMediaRef string, appliedOffset float64) (Controller, bool) {
	if !c.current(tok) || c.trim == nil {
		return c, false
	}
	segs, err := timeline.Rebase(c.segments, c.trim.start, c.trim.end, appliedOffset)
	if err != nil {
		c.busy &^= OpTrim
		c.trim = nil
		return c, false
	}
	c.segments = segs
	c.media = newMediaRef
	c.awaitMedia = newMediaRef
	c.trim = nil
	return c, true
}

// MediaLoaded reports that the consumer finished loading ref.
func (c Controller) MediaLoaded(ref string) Controller {
	if c.Busy(OpTrim) && c.trim == nil && c.awaitMedia == ref {
		c.busy &^= OpTrim
		c.awaitMedia = ""
	}
	return c
}

// SaveSession returns the snapshot to store under name. The name is reduced
// to the key the backend stores it under; SavingAs reports it.
func (c Controller) SaveSession(name string) (Controller, Token, session.State, error) {
	if err := session.ValidateName(name); err != nil {
		return c, 0, session.State{}, err
	}
	name = session.SafeName(name, session.Unnamed)
	st := session.State{
		Segments:       transcript.CloneSegments(c.segments),
		SpeakerMapping: c.mapping.Clone(),
		Attendees:      c.Attendees(),
		VideoURL:       c.media,
		Version:        session.Version,
	}
	c.busy |= OpSave
	c.saveName = name
	return c, Token(c.epoch), st, nil
}

// SavingAs returns the name of the save in flight, if any.
func (c Controller) SavingAs() string { return c.saveName }

// OnSaved makes the saved name the current session.
func (c Controller) OnSaved(tok Token) (Controller, bool) {
	if !c.current(tok) || !c.Busy(OpSave) {
		return c, false
	}
	c.busy &^= OpSave
	c.name = c.saveName
	c.saveName = ""
	return c, true
}

// LoadSession starts loading name. Every outstanding request and the
// running job are superseded.
func (c Controller) LoadSession(name string) (Controller, Token, error) {
	if err := session.ValidateName(name); err != nil {
		return c, 0, err
	}
	c = c.supersede()
	c.job = c.job.Cancel()
	c.busy = OpLoad
	return c, Token(c.epoch), nil
}

// OnLoaded replaces the whole editor state with a loaded snapshot.
func (c Controller) OnLoaded(tok Token, name string, st session.State) (Controller, bool) {
	if !c.current(tok) || !c.Busy(OpLoad) {
		return c, false
	}
	st = session.Normalize(st)
	c = c.supersede()
	c.phase = Loaded
	c.segments = transcript.CloneSegments(st.Segments)
	c.mapping = st.SpeakerMapping.Clone()
	c.attendees = append([]string(nil), st.Attendees...)
	c.media = st.VideoURL
	c.name = strings.TrimSpace(name)
	c.minutes = ""
	return c, true
}

// MinutesCall is a minutes request ready to send.
type MinutesCall struct {
	JobID   string
	Request api.MinutesRequest
}

// GenerateMinutes builds the minutes request from the current state.
func (c Controller) GenerateMinutes() (Controller, Token, MinutesCall, error) {
	if len(c.segments) == 0 {
		return c, 0, MinutesCall{}, &transcript.ValidationError{Field: "transcript", Reason: "no segments to summarise"}
	}
	if c.Busy(OpMinutes) {
		return c, 0, MinutesCall{}, &transcript.ValidationError{Field: "minutes", Reason: "already generating"}
	}
	jobID := c.job.JobID
	if jobID == "" {
		jobID = "session"
	}
	call := MinutesCall{
		JobID: jobID,
		Request: api.MinutesRequest{
			SpeakerMapping: c.mapping.Clone(),
			Segments:       transcript.CloneSegments(c.segments),
			Attendees:      c.Attendees(),
			SessionName:    c.name,
		},
	}
	c.busy |= OpMinutes
	return c, Token(c.epoch), call, nil
}

// OnMinutes stores generated minutes.
func (c Controller) OnMinutes(tok Token, minutes string) (Controller, bool) {
	if !c.current(tok) || !c.Busy(OpMinutes) {
		return c, false
	}
	c.busy &^= OpMinutes
	c.minutes = minutes
	return c, true
}

// Fail clears op after its request failed. Segments and mapping are left as
// they were; a failed upload ends the job in the error state.
func (c Controller) Fail(tok Token, op Op, err error) (Controller, bool) {
	if !c.current(tok) || !c.Busy(op) {
		return c, false
	}
	c.busy &^= op
	switch op {
	case OpUpload:
		c.job = c.job.UploadFailed(err)
	case OpTrim:
		c.trim = nil
		c.awaitMedia = ""
	case OpSave:
		c.saveName = ""
	}
	return c, true
}
