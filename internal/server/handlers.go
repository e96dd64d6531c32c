package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/attendees"
	"github.com/jwulff/recut/internal/minutes"
	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/transcript"
)

var videoExts = []string{".mp4", ".webm", ".mov", ".avi"}

// processJob transcribes one upload in the background.
type processJob struct {
	id  string
	srv *Server
}

func (j processJob) ID() string { return j.id }

func (j processJob) Execute(ctx context.Context) error {
	s := j.srv
	var rec jobRecord
	s.jobs.update(j.id, func(r *jobRecord) {
		r.Status = api.StatusProcessing
		rec = *r
	})

	var names []string
	if rec.AttendeesPath != "" {
		parsed, err := attendees.ParseFile(rec.AttendeesPath)
		if err != nil {
			s.log.WithError(err).WithField("job_id", j.id).Warn("attendee list unreadable")
		}
		names = parsed
	}

	result, err := s.deps.Processor.Process(ctx, rec.VideoPath)
	if err != nil {
		s.jobs.update(j.id, func(r *jobRecord) {
			r.Status = api.StatusFailed
			r.Error = err.Error()
			r.Attendees = names
		})
		return err
	}
	s.jobs.update(j.id, func(r *jobRecord) {
		r.Status = api.StatusCompleted
		r.Result = &result
		r.Attendees = names
	})
	return nil
}

// uploadName keeps the base of a client file name with spaces replaced.
func uploadName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	log := requestLog(c, s.log)
	file, err := c.FormFile("file")
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("missing file: %v", err))
	}
	name := uploadName(file.Filename)
	if name == "" {
		return respondWithError(c, fiber.StatusBadRequest, "invalid file name")
	}
	videoPath := filepath.Join(s.deps.UploadDir, name)
	if err := c.SaveFile(file, videoPath); err != nil {
		log.WithError(err).Error("save upload")
		return respondWithError(c, fiber.StatusInternalServerError, "could not store upload")
	}

	var attendeesPath string
	if af, err := c.FormFile("attendees"); err == nil {
		ext := strings.ToLower(filepath.Ext(af.Filename))
		if ext == "" {
			ext = ".xlsx"
		}
		attendeesPath = filepath.Join(s.deps.UploadDir, "attendees_"+name+ext)
		if err := c.SaveFile(af, attendeesPath); err != nil {
			log.WithError(err).Error("save attendee list")
			return respondWithError(c, fiber.StatusInternalServerError, "could not store attendee list")
		}
	}

	id := uuid.NewString()
	s.jobs.create(id, jobRecord{
		Status:        api.StatusQueued,
		VideoFilename: name,
		VideoPath:     videoPath,
		AttendeesPath: attendeesPath,
		Created:       time.Now(),
	})
	if err := s.dispatcher.Submit(processJob{id: id, srv: s}); err != nil {
		s.jobs.update(id, func(r *jobRecord) {
			r.Status = api.StatusFailed
			r.Error = err.Error()
		})
		return respondWithError(c, fiber.StatusServiceUnavailable, err.Error())
	}
	log.WithFields(logrus.Fields{"job_id": id, "file": name}).Info("upload queued")
	return c.JSON(api.UploadResponse{JobID: id, Status: api.StatusQueued})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	rec, ok := s.jobs.get(c.Params("job_id"))
	if !ok {
		return respondWithError(c, fiber.StatusNotFound, "job not found")
	}
	if rec.Status != api.StatusCompleted {
		return c.JSON(api.StatusResponse{Status: rec.Status, Error: rec.Error})
	}
	return c.JSON(api.StatusResponse{
		Status:    api.StatusCompleted,
		Result:    rec.Result,
		Attendees: nonNil(rec.Attendees),
		VideoURL:  "/files/" + rec.VideoFilename,
	})
}

func (s *Server) handleGenerateMinutes(c *fiber.Ctx) error {
	log := requestLog(c, s.log)
	jobID := c.Params("job_id")
	var req api.MinutesRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
	}

	segs, names := req.Segments, req.Attendees
	if len(segs) == 0 {
		rec, ok := s.jobs.get(jobID)
		if !ok || rec.Status != api.StatusCompleted || rec.Result == nil {
			return respondWithError(c, fiber.StatusBadRequest, "session not ready or request is missing segments")
		}
		segs, names = rec.Result.Segments, rec.Attendees
	}
	log.WithField("segments", len(segs)).Info("generating minutes")

	text, err := s.deps.Minutes.Generate(c.UserContext(), minutes.Request{
		Transcript: minutes.TranscriptText(segs, req.SpeakerMapping),
		Attendees:  names,
		Model:      req.Model,
	})
	if err != nil {
		log.WithError(err).Error("generate minutes")
		return respondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	name := req.SessionName
	if name == "" {
		name = jobID
	}
	resp := api.MinutesResponse{Minutes: text}
	files, err := s.deps.MinutesStore.Save(c.UserContext(), name, text)
	if err != nil {
		log.WithError(err).Error("store minutes")
	} else {
		resp.Files = &api.MinutesFiles{Markdown: files.Markdown, PDF: files.PDF}
	}
	return c.JSON(resp)
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	infos := s.deps.Sessions.List(c.UserContext())
	for i := range infos {
		files := s.deps.MinutesStore.Lookup(infos[i].Name)
		infos[i].MinutesMD = files.Markdown
		infos[i].MinutesPDF = files.PDF
	}
	return c.JSON(infos)
}

func (s *Server) handleSaveSession(c *fiber.Ctx) error {
	var req api.SaveSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
	}
	if err := s.validate.Struct(req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, validationMessage(err))
	}
	name := session.SafeName(req.Name, session.Unnamed)
	if err := s.deps.Sessions.Save(c.UserContext(), name, req.Data); err != nil {
		requestLog(c, s.log).WithError(err).Error("save session")
		return respondWithError(c, statusFor(err), err.Error())
	}
	return c.JSON(api.SaveSessionResponse{Message: "session saved", Filename: name})
}

func (s *Server) handleLoadSession(c *fiber.Ctx) error {
	st, err := s.deps.Sessions.Load(c.UserContext(), c.Params("name"))
	if err != nil {
		return respondWithError(c, statusFor(err), err.Error())
	}
	return c.JSON(st)
}

func (s *Server) handleTrim(c *fiber.Ctx) error {
	log := requestLog(c, s.log)
	var req api.TrimRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
	}
	if err := s.validate.Struct(req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, validationMessage(err))
	}

	input := filepath.Join(s.deps.UploadDir, path.Base(req.VideoURL))
	if _, err := os.Stat(input); err != nil {
		log.WithField("input", input).Warn("trim input not found")
		return respondWithError(c, fiber.StatusNotFound, "file not found: "+path.Base(req.VideoURL))
	}
	output := "trimmed_" + trimOutputName(req.NewName, filepath.Ext(input))
	if strings.EqualFold(output, filepath.Base(input)) {
		return respondWithError(c, fiber.StatusBadRequest, "new_name would overwrite the source video: "+output)
	}

	applied, err := s.deps.Trimmer.Trim(c.UserContext(), input, filepath.Join(s.deps.UploadDir, output), req.Start, req.End)
	if err != nil {
		log.WithError(err).Error("trim video")
		return respondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(api.TrimResponse{
		Message:       "video trimmed",
		NewVideoURL:   "/files/" + output,
		OriginalStart: applied,
	})
}

// trimOutputName sanitizes name and gives it a video extension, the input's
// when it has none.
func trimOutputName(name, inputExt string) string {
	name = uploadName(name)
	if name == "" {
		name = "clip"
	}
	lower := strings.ToLower(name)
	for _, ext := range videoExts {
		if strings.HasSuffix(lower, ext) {
			return name
		}
	}
	if inputExt == "" {
		inputExt = ".mp4"
	}
	return name + inputExt
}

func statusFor(err error) int {
	var ve *transcript.ValidationError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
