// Package config loads recut settings from env files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Session backends.
const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Config is the resolved configuration shared by every command.
type Config struct {
	Server         string
	Addr           string
	DataDir        string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	Workers        int

	SessionBackend string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseTable  string

	GoogleAPIKey string
	GeminiModel  string

	OpenAIKey       string
	TranscribeURL   string
	TranscribeModel string
	FFmpeg          string

	LogLevel string
	LogFile  string
}

// UploadDir holds uploaded and trimmed media.
func (c Config) UploadDir() string { return filepath.Join(c.DataDir, "uploads") }

// MinutesDir holds generated minutes.
func (c Config) MinutesDir() string { return filepath.Join(c.DataDir, "minutes") }

// Load reads the default env files and then the environment.
func Load() (Config, error) {
	LoadDefaultEnv()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Server:          strings.TrimRight(get("RECUT_SERVER", "http://localhost:8000"), "/"),
		Addr:            get("RECUT_ADDR", ":8000"),
		DataDir:         get("RECUT_DATA_DIR", defaultDataDir()),
		SessionBackend:  strings.ToLower(get("RECUT_SESSION_BACKEND", BackendSQLite)),
		SupabaseURL:     get("SUPABASE_URL", ""),
		SupabaseKey:     get("SUPABASE_SERVICE_KEY", ""),
		SupabaseTable:   get("SUPABASE_SESSIONS_TABLE", "sessions"),
		GoogleAPIKey:    get("GOOGLE_API_KEY", ""),
		GeminiModel:     get("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIKey:       get("OPENAI_API_KEY", ""),
		TranscribeURL:   get("RECUT_TRANSCRIBE_URL", ""),
		TranscribeModel: get("RECUT_TRANSCRIBE_MODEL", ""),
		FFmpeg:          get("RECUT_FFMPEG", "ffmpeg"),
		LogLevel:        get("RECUT_LOG_LEVEL", "info"),
		LogFile:         get("RECUT_LOG_FILE", ""),
	}

	var err error
	if cfg.PollInterval, err = parseDuration("RECUT_POLL_INTERVAL", get("RECUT_POLL_INTERVAL", "3s")); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = parseDuration("RECUT_REQUEST_TIMEOUT", get("RECUT_REQUEST_TIMEOUT", "10m")); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = strconv.Atoi(get("RECUT_WORKERS", "2")); err != nil || cfg.Workers < 1 {
		return Config{}, fmt.Errorf("RECUT_WORKERS must be a positive integer")
	}
	switch cfg.SessionBackend {
	case BackendSQLite, BackendSupabase:
	default:
		return Config{}, fmt.Errorf("RECUT_SESSION_BACKEND must be %q or %q, got %q", BackendSQLite, BackendSupabase, cfg.SessionBackend)
	}
	return cfg, nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "recut")
	}
	return "recut-data"
}
