package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jwulff/recut/internal/logging"
	"github.com/jwulff/recut/internal/mcpserver"
	"github.com/jwulff/recut/internal/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve saved sessions to MCP clients over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol.
		log, err := logging.New(cfg.LogLevel, os.Stderr)
		if err != nil {
			return err
		}
		backend, closer, err := openLocalSessions(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()
		return mcpserver.Serve(session.NewStore(backend, log))
	},
}
