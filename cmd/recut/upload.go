package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/jobs"
	"github.com/jwulff/recut/internal/logging"
	"github.com/jwulff/recut/internal/transcript"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <recording>",
	Short: "Upload a recording, wait for transcription and print the transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(cfg.LogLevel, os.Stderr)
		if err != nil {
			return err
		}
		attendees, _ := cmd.Flags().GetString("attendees")
		markdown, _ := cmd.Flags().GetBool("markdown")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		client := api.NewClient(cfg.Server, cfg.RequestTimeout)
		up, err := client.Upload(ctx, args[0], attendees)
		if err != nil {
			return err
		}
		log.WithField("job_id", up.JobID).Info("upload accepted, waiting for transcription")

		res, err := jobs.NewPoller(client, cfg.PollInterval, log).Run(ctx, up.JobID)
		if err != nil {
			if ctx.Err() == context.Canceled {
				return fmt.Errorf("cancelled; job %s keeps running on the backend", up.JobID)
			}
			return err
		}

		if markdown {
			fmt.Println(transcript.Markdown(transcript.Meta{
				Title:     args[0],
				Attendees: res.Attendees,
				Source:    client.MediaURL(res.MediaRef),
				Generated: time.Now(),
			}, res.Segments, res.Mapping))
			return nil
		}
		fmt.Println(transcript.Export(res.Segments, res.Mapping))
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("attendees", "", "attendee spreadsheet (xlsx or csv)")
	uploadCmd.Flags().Bool("markdown", false, "print markdown instead of plain lines")
}
