// Package server is the recut HTTP backend: uploads and background
// transcription jobs, minutes generation, session snapshots and media
// trimming.
package server

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"github.com/jwulff/recut/internal/minutes"
	"github.com/jwulff/recut/internal/session"
)

// DefaultBodyLimit caps request bodies, uploads included.
const DefaultBodyLimit = 2 << 30

// Trimmer cuts [start, end) out of in into out and reports the offset
// that became the new origin.
type Trimmer interface {
	Trim(ctx context.Context, in, out string, start, end float64) (float64, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Log          *logrus.Logger
	Sessions     *session.Store
	Processor    Processor
	Minutes      minutes.Generator
	MinutesStore *minutes.Store
	Trimmer      Trimmer
	UploadDir    string
	Workers      int
	QueueSize    int
	BodyLimit    int
}

// Server wires the routes to their collaborators.
type Server struct {
	app        *fiber.App
	deps       Deps
	log        *logrus.Logger
	jobs       *Registry
	dispatcher *Dispatcher
	validate   *validator.Validate
	cancel     context.CancelFunc
}

// New builds the server and starts its worker pool.
func New(deps Deps) (*Server, error) {
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	if deps.Sessions == nil || deps.Processor == nil || deps.Trimmer == nil || deps.MinutesStore == nil {
		return nil, fmt.Errorf("server: sessions, processor, trimmer and minutes store are required")
	}
	if deps.Minutes == nil {
		deps.Minutes = minutes.Unavailable{}
	}
	if deps.UploadDir == "" {
		return nil, fmt.Errorf("server: upload dir is required")
	}
	if err := os.MkdirAll(deps.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.MkdirAll(deps.MinutesStore.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create minutes dir: %w", err)
	}
	if deps.Workers <= 0 {
		deps.Workers = 2
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = 64
	}
	if deps.BodyLimit <= 0 {
		deps.BodyLimit = DefaultBodyLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		deps:       deps,
		log:        deps.Log,
		jobs:       NewRegistry(),
		dispatcher: NewDispatcher(deps.Workers, deps.QueueSize, deps.Log),
		validate:   validator.New(),
		cancel:     cancel,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "recut",
		BodyLimit:             deps.BodyLimit,
		UnescapePath:          true,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	s.routes()
	s.dispatcher.Run(ctx)
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept",
		ExposeHeaders: "X-Request-ID",
	}))
	s.app.Use(RequestLogger(s.log))

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "recut backend is healthy"})
	})

	s.app.Post("/upload", s.handleUpload)
	s.app.Get("/status/:job_id", s.handleStatus)
	s.app.Post("/generate-minutes/:job_id", s.handleGenerateMinutes)
	s.app.Get("/sessions", s.handleListSessions)
	s.app.Post("/sessions", s.handleSaveSession)
	s.app.Get("/sessions/:name", s.handleLoadSession)
	s.app.Post("/trim-video", s.handleTrim)

	s.app.Static("/files", s.deps.UploadDir)
	s.app.Static("/minutes", s.deps.MinutesStore.Dir)
}

// App exposes the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App { return s.app }

// Jobs exposes the job registry.
func (s *Server) Jobs() *Registry { return s.jobs }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.WithField("addr", addr).Info("recut backend listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests, then stops the workers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.cancel()
	s.dispatcher.Stop()
	return err
}
