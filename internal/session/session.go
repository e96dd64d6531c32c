// Package session persists named snapshots of the editor state.
//
// A Store validates names, stamps the schema version, backfills the speaker
// mapping on load and degrades listing to an empty result. The bytes live in
// a Backend: SQLite, Supabase, or the remote HTTP API.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/jwulff/recut/internal/transcript"
)

// Version is the only snapshot schema tag written.
const Version = 1

// ErrNotFound is returned by backends when no snapshot has the given name.
var ErrNotFound = errors.New("session not found")

// State is the persisted editor state.
type State struct {
	Segments       []transcript.Segment `json:"segments"`
	SpeakerMapping transcript.Mapping   `json:"speakerMapping"`
	Attendees      []string             `json:"attendees"`
	VideoURL       string               `json:"video_url"`
	Version        int                  `json:"version"`
}

// Info describes a saved snapshot in a listing. Timestamp is unix seconds.
type Info struct {
	Name       string  `json:"name"`
	Timestamp  float64 `json:"timestamp"`
	MinutesMD  string  `json:"minutes_md,omitempty"`
	MinutesPDF string  `json:"minutes_pdf,omitempty"`
}

// Backend stores snapshots by name. Put overwrites.
type Backend interface {
	Put(ctx context.Context, name string, st State) error
	Get(ctx context.Context, name string) (State, error)
	List(ctx context.Context) ([]Info, error)
}

// Store is the snapshot service used by the editor, the backend and the MCP
// server.
type Store struct {
	backend Backend
	log     logrus.FieldLogger
}

// NewStore wraps a backend.
func NewStore(b Backend, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Store{backend: b, log: log}
}

// Save writes st under name, replacing any previous snapshot of that name.
func (s *Store) Save(ctx context.Context, name string, st State) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	st = State{
		Segments:       transcript.CloneSegments(st.Segments),
		SpeakerMapping: st.SpeakerMapping.Clone(),
		Attendees:      append([]string(nil), st.Attendees...),
		VideoURL:       st.VideoURL,
		Version:        Version,
	}
	if st.Segments == nil {
		st.Segments = []transcript.Segment{}
	}
	if st.Attendees == nil {
		st.Attendees = []string{}
	}
	if err := s.backend.Put(ctx, name, st); err != nil {
		return fmt.Errorf("save session %q: %w", name, err)
	}
	s.log.WithFields(logrus.Fields{"session": name, "segments": len(st.Segments)}).Info("session saved")
	return nil
}

// Load reads the snapshot called name. Every raw speaker id present in the
// segments gets a mapping entry, empty if the snapshot had none.
func (s *Store) Load(ctx context.Context, name string) (State, error) {
	if err := ValidateName(name); err != nil {
		return State{}, err
	}
	st, err := s.backend.Get(ctx, name)
	if err != nil {
		return State{}, fmt.Errorf("load session %q: %w", name, err)
	}
	return Normalize(st), nil
}

// List returns saved snapshots newest first. Failures are logged and yield
// an empty listing.
func (s *Store) List(ctx context.Context) []Info {
	infos, err := s.backend.List(ctx)
	if err != nil {
		s.log.WithError(err).Warn("list sessions")
		return []Info{}
	}
	if infos == nil {
		return []Info{}
	}
	SortNewestFirst(infos)
	return infos
}

// Normalize fills nil collections and backfills the speaker mapping.
func Normalize(st State) State {
	if st.Segments == nil {
		st.Segments = []transcript.Segment{}
	}
	if st.Attendees == nil {
		st.Attendees = []string{}
	}
	st.SpeakerMapping = transcript.Backfill(st.Segments, st.SpeakerMapping)
	return st
}

// SortNewestFirst orders infos by descending timestamp, then by name.
func SortNewestFirst(infos []Info) {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Timestamp != infos[j].Timestamp {
			return infos[i].Timestamp > infos[j].Timestamp
		}
		return infos[i].Name < infos[j].Name
	})
}

// ValidateName rejects blank snapshot names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &transcript.ValidationError{Field: "session name", Reason: "must not be empty"}
	}
	return nil
}

// Unnamed is the key used for a session whose name has no usable characters.
const Unnamed = "session_unnamed"

// SafeName reduces name to letters, digits, space, '-' and '_' so it can be
// used as a file or row key. Names with nothing left become fallback.
func SafeName(name, fallback string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" {
		return fallback
	}
	return safe
}

// Time returns the listing timestamp as a time.Time.
func (i Info) Time() time.Time {
	return timeFromUnix(i.Timestamp)
}
