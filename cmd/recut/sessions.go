package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/logging"
	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/ui"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(cfg.LogLevel, os.Stderr)
		if err != nil {
			return err
		}
		var backend session.Backend
		if local, _ := cmd.Flags().GetBool("local"); local {
			b, closer, err := openLocalSessions(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()
			backend = b
		} else {
			backend = api.NewClient(cfg.Server, cfg.RequestTimeout)
		}

		infos := session.NewStore(backend, log).List(cmd.Context())
		if len(infos) == 0 {
			fmt.Println("No saved sessions.")
			return nil
		}
		for _, info := range infos {
			line := fmt.Sprintf("%s  %s", ui.ListNameStyle.Render(info.Name), info.Time().Local().Format("2006-01-02 15:04"))
			var links []string
			for _, l := range []string{info.MinutesMD, info.MinutesPDF} {
				if l != "" {
					links = append(links, ui.ListLinkStyle.Render(strings.TrimRight(cfg.Server, "/")+l))
				}
			}
			if len(links) > 0 {
				line += "  " + strings.Join(links, " ")
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().Bool("local", false, "read the local session database instead of the backend")
}
