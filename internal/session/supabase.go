package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

// DefaultSupabaseTable is the table snapshots are written to.
const DefaultSupabaseTable = "sessions"

// supabaseRow maps to the sessions table:
//
//	name text primary key, data jsonb not null, updated_at timestamptz not null
type supabaseRow struct {
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Supabase keeps snapshots in a Supabase (PostgREST) table.
type Supabase struct {
	client *supa.Client
	table  string
	now    func() time.Time
}

// NewSupabase connects to the project at url with the given service key.
func NewSupabase(url, key, table string) (*Supabase, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key must be set")
	}
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	if table == "" {
		table = DefaultSupabaseTable
	}
	return &Supabase{client: client, table: table, now: time.Now}, nil
}

// Put upserts the snapshot on its name.
func (s *Supabase) Put(ctx context.Context, name string, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	row := supabaseRow{Name: name, Data: data, UpdatedAt: s.now().UTC()}
	_, _, err = s.client.From(s.table).
		Upsert(row, "name", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Get returns the snapshot called name, or ErrNotFound.
func (s *Supabase) Get(ctx context.Context, name string) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	var rows []supabaseRow
	_, err := s.client.From(s.table).
		Select("name,data,updated_at", "", false).
		Eq("name", name).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return State{}, fmt.Errorf("query session: %w", err)
	}
	if len(rows) == 0 {
		return State{}, ErrNotFound
	}
	var st State
	if err := json.Unmarshal(rows[0].Data, &st); err != nil {
		return State{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return st, nil
}

// List returns snapshot names and update times, newest first.
func (s *Supabase) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []supabaseRow
	_, err := s.client.From(s.table).
		Select("name,updated_at", "", false).
		Order("updated_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	infos := make([]Info, 0, len(rows))
	for _, r := range rows {
		infos = append(infos, Info{Name: r.Name, Timestamp: unixFromTime(r.UpdatedAt)})
	}
	return infos, nil
}
