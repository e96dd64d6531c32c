// Package mcpserver exposes saved recut sessions to MCP clients: listing
// them, reading a corrected transcript and renaming a speaker.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/transcript"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Handlers implements the tools over a session store.
type Handlers struct {
	store *session.Store
}

// NewHandlers returns tool handlers backed by store.
func NewHandlers(store *session.Store) *Handlers {
	return &Handlers{store: store}
}

// New builds an MCP server with every tool registered.
func New(store *session.Store) *server.MCPServer {
	s := server.NewMCPServer("recut", Version, server.WithToolCapabilities(false))
	h := NewHandlers(store)

	s.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List saved transcript sessions, newest first."),
	), h.ListSessions)

	s.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Return the corrected transcript of a saved session with speaker names resolved."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Session name")),
		mcp.WithString("format", mcp.Description("text (default) or markdown"), mcp.Enum("text", "markdown")),
	), h.GetTranscript)

	s.AddTool(mcp.NewTool("rename_speaker",
		mcp.WithDescription("Give a raw speaker id a display name in every segment of a saved session."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Session name")),
		mcp.WithString("speaker_id", mcp.Required(), mcp.Description("Raw speaker id, e.g. SPEAKER_00")),
		mcp.WithString("display_name", mcp.Required(), mcp.Description("Name to show for the speaker")),
	), h.RenameSpeaker)

	return s
}

// Serve runs the server over stdio until the client disconnects.
func Serve(store *session.Store) error {
	return server.ServeStdio(New(store))
}

// ListSessions lists saved sessions.
func (h *Handlers) ListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos := h.store.List(ctx)
	if len(infos) == 0 {
		return mcp.NewToolResultText("No saved sessions."), nil
	}
	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "%s\t%s\n", info.Name, info.Time().UTC().Format(time.RFC3339))
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

// GetTranscript renders one session.
func (h *Handlers) GetTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := h.store.Load(ctx, name)
	if err != nil {
		return loadError(name, err), nil
	}
	if req.GetString("format", "text") == "markdown" {
		return mcp.NewToolResultText(transcript.Markdown(transcript.Meta{
			Title:     name,
			Attendees: st.Attendees,
			Source:    st.VideoURL,
		}, st.Segments, st.SpeakerMapping)), nil
	}
	return mcp.NewToolResultText(transcript.Export(st.Segments, st.SpeakerMapping)), nil
}

// RenameSpeaker applies a global rename and saves the session back.
func (h *Handlers) RenameSpeaker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawID, err := req.RequireString("speaker_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	display, err := req.RequireString("display_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	st, err := h.store.Load(ctx, name)
	if err != nil {
		return loadError(name, err), nil
	}
	if _, ok := st.SpeakerMapping[rawID]; !ok {
		return mcp.NewToolResultError(fmt.Sprintf("speaker %q not found in session %q", rawID, name)), nil
	}
	st.SpeakerMapping = transcript.RenameGlobal(st.SpeakerMapping, rawID, strings.TrimSpace(display))
	if err := h.store.Save(ctx, name, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	n := 0
	for _, seg := range st.Segments {
		if !seg.Manual && seg.Speaker == rawID {
			n++
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Renamed %s to %q in %d segments of %s.", rawID, display, n, name)), nil
}

func loadError(name string, err error) *mcp.CallToolResult {
	if errors.Is(err, session.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session %q not found", name))
	}
	return mcp.NewToolResultError(err.Error())
}
