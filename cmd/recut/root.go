package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwulff/recut/internal/config"
	"github.com/jwulff/recut/internal/session"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "recut",
	Short: "Correct meeting transcripts and re-cut their recordings",
	Long: `recut turns a meeting recording into a speaker-labelled transcript that can be
corrected (speaker names, per-segment overrides), trimmed together with its media,
saved as a session and summarised into formal minutes.

Settings come from $RECUT_ENV, ~/.recut.env, ./.env and the environment; flags win.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("server") {
			loaded.Server, _ = flags.GetString("server")
		}
		if flags.Changed("data-dir") {
			loaded.DataDir, _ = flags.GetString("data-dir")
		}
		if flags.Changed("log-level") {
			loaded.LogLevel, _ = flags.GetString("log-level")
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "backend base URL (RECUT_SERVER)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for uploads, minutes and the session database (RECUT_DATA_DIR)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (RECUT_LOG_LEVEL)")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(uploadCmd)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openLocalSessions opens the session backend configured for this machine.
func openLocalSessions(c config.Config) (session.Backend, io.Closer, error) {
	switch c.SessionBackend {
	case config.BackendSupabase:
		sb, err := session.NewSupabase(c.SupabaseURL, c.SupabaseKey, c.SupabaseTable)
		if err != nil {
			return nil, nil, err
		}
		return sb, nopCloser{}, nil
	default:
		db, err := session.OpenSQLite(session.DefaultDBPath(c.DataDir))
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
}
