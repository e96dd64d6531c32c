// Package jobs tracks a transcription job from upload to its terminal state.
//
// Lifecycle is a pure state machine; callers own the timer. Each poll carries
// the generation it was scheduled under and a poll whose generation no longer
// matches is dropped, so cancelling is a matter of bumping the generation.
// Poller drives the same machine with a time.Ticker for headless callers.
package jobs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/transcript"
)

// Status is the client-side job state.
type Status string

const (
	Idle       Status = "idle"
	Uploading  Status = "uploading"
	Processing Status = "processing"
	Completed  Status = "completed"
	Error      Status = "error"
)

// Terminal reports whether s is completed or error.
func (s Status) Terminal() bool {
	return s == Completed || s == Error
}

// Result is what a completed job hands to the editor. Mapping is already
// seeded with an entry for every raw speaker id in Segments.
type Result struct {
	Segments  []transcript.Segment
	Mapping   transcript.Mapping
	Attendees []string
	MediaRef  string
	Language  string
}

// Lifecycle is one job's state. The zero value is Idle.
type Lifecycle struct {
	JobID      string
	Status     Status
	Generation uint64
	Result     *Result
	Err        error
}

// StartUpload begins a new job, superseding whatever came before.
func (l Lifecycle) StartUpload() Lifecycle {
	return Lifecycle{Status: Uploading, Generation: l.Generation + 1}
}

// UploadSucceeded moves an uploading job to processing.
func (l Lifecycle) UploadSucceeded(jobID string) Lifecycle {
	if l.Status != Uploading {
		return l
	}
	l.JobID = jobID
	l.Status = Processing
	return l
}

// UploadFailed ends an uploading job in the error state.
func (l Lifecycle) UploadFailed(err error) Lifecycle {
	if l.Status != Uploading {
		return l
	}
	l.Status = Error
	l.Err = fmt.Errorf("upload: %w", err)
	return l
}

// Polling reports whether status polls should keep being scheduled.
func (l Lifecycle) Polling() bool {
	return l.Status == Processing
}

// Current reports whether a poll scheduled under gen still applies.
func (l Lifecycle) Current(gen uint64) bool {
	return l.Polling() && gen == l.Generation
}

// Cancel stops polling. Any in-flight poll becomes stale.
func (l Lifecycle) Cancel() Lifecycle {
	if l.Status == Uploading || l.Status == Processing {
		l.Status = Idle
	}
	l.Generation++
	return l
}

// Apply folds a status response into the lifecycle. It returns false and
// leaves l unchanged when the poll is stale.
func (l Lifecycle) Apply(gen uint64, resp api.StatusResponse) (Lifecycle, bool) {
	if !l.Current(gen) {
		return l, false
	}

	switch resp.Status {
	case api.StatusCompleted:
		l.Status = Completed
		l.Result = resultFrom(resp)
	case api.StatusFailed:
		l.Status = Error
		msg := resp.Error
		if msg == "" {
			msg = "job failed"
		}
		l.Err = &api.ServerError{Op: "job " + l.JobID, StatusCode: http.StatusOK, Message: msg}
	default:
		// queued, processing, or anything newer: keep polling
	}
	return l, true
}

// PollFailed records a failed status request. Transport failures and 5xx
// replies leave the job processing so the next tick retries; anything else
// ends the job. It returns false when the poll is stale.
func (l Lifecycle) PollFailed(gen uint64, err error) (Lifecycle, bool) {
	if !l.Current(gen) {
		return l, false
	}
	if Retryable(err) {
		return l, true
	}
	l.Status = Error
	l.Err = err
	return l, true
}

// Retryable reports whether a failed status poll is worth repeating.
func Retryable(err error) bool {
	if api.IsTransport(err) {
		return true
	}
	var se *api.ServerError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func resultFrom(resp api.StatusResponse) *Result {
	res := &Result{
		Attendees: append([]string(nil), resp.Attendees...),
		MediaRef:  resp.VideoURL,
	}
	if resp.Result != nil {
		res.Segments = transcript.CloneSegments(resp.Result.Segments)
		res.Mapping = transcript.Seed(resp.Result.Segments, resp.Result.SpeakersFound)
		res.Language = resp.Result.Language
	} else {
		res.Mapping = transcript.Mapping{}
	}
	return res
}
