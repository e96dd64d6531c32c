package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwulff/recut/internal/logging"
	"github.com/jwulff/recut/internal/media"
	"github.com/jwulff/recut/internal/minutes"
	"github.com/jwulff/recut/internal/server"
	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/transcribe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(cfg.LogLevel, os.Stderr)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Addr
		}

		backend, closer, err := openLocalSessions(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		ff := media.New(cfg.FFmpeg, log)
		if !ff.Available() {
			log.WithField("ffmpeg", cfg.FFmpeg).Warn("ffmpeg not found; uploads and trims will fail")
		}

		var gen minutes.Generator = minutes.Unavailable{}
		if cfg.GoogleAPIKey != "" {
			g, err := minutes.NewGemini(cmd.Context(), cfg.GoogleAPIKey, cfg.GeminiModel)
			if err != nil {
				return err
			}
			gen = g
		} else {
			log.Warn("GOOGLE_API_KEY not set; minutes generation disabled")
		}

		srv, err := server.New(server.Deps{
			Log:      log,
			Sessions: session.NewStore(backend, log),
			Processor: &server.Pipeline{
				Audio:    ff,
				Backend:  transcribe.NewOpenAIBackend(cfg.TranscribeURL, cfg.OpenAIKey, cfg.TranscribeModel),
				Diarizer: transcribe.GapDiarizer{},
			},
			Minutes:      gen,
			MinutesStore: minutes.NewStore(cfg.MinutesDir(), log),
			Trimmer:      ff,
			UploadDir:    cfg.UploadDir(),
			Workers:      cfg.Workers,
		})
		if err != nil {
			return err
		}

		errc := make(chan error, 1)
		go func() { errc <- srv.Listen(addr) }()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errc:
			return err
		case s := <-sig:
			log.WithField("signal", s.String()).Info("shutting down")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (RECUT_ADDR)")
}
