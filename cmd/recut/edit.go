package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/app"
	"github.com/jwulff/recut/internal/logging"
	"github.com/jwulff/recut/internal/session"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the transcript editor",
	Long: `Open the terminal editor against the backend.

Press u to upload a recording, l to load a saved session, r/R to rename speakers,
[ and ] to mark a window and t to trim, s to save, m for minutes, x to export.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closer, err := logging.NewFile(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()

		opts := app.Options{
			PollInterval:   cfg.PollInterval,
			RequestTimeout: cfg.RequestTimeout,
		}
		opts.UploadVideo, _ = cmd.Flags().GetString("upload")
		opts.UploadAttendees, _ = cmd.Flags().GetString("attendees")
		opts.LoadSession, _ = cmd.Flags().GetString("session")
		opts.ExportDir, _ = cmd.Flags().GetString("export-dir")
		if opts.UploadVideo != "" && opts.LoadSession != "" {
			return fmt.Errorf("--upload and --session are mutually exclusive")
		}

		client := api.NewClient(cfg.Server, cfg.RequestTimeout)
		store := session.NewStore(client, log)
		log.WithField("server", cfg.Server).Info("editor starting")

		p := tea.NewProgram(app.New(client, store, log, opts), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("editor: %w", err)
		}
		return nil
	},
}

func init() {
	editCmd.Flags().String("upload", "", "recording to upload on start")
	editCmd.Flags().String("attendees", "", "attendee spreadsheet (xlsx or csv) sent with --upload")
	editCmd.Flags().String("session", "", "saved session to load on start")
	editCmd.Flags().String("export-dir", ".", "directory transcripts are exported to")
}
