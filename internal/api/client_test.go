package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/transcript"
)

// startMockBackend serves one canned reply per path and records request
// bodies.
func startMockBackend(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, 0)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func TestClientStatusCompleted(t *testing.T) {
	client := startMockBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /status/job-1": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{
				"status": "completed",
				"result": {
					"segments": [{"start": 0, "end": 5, "text": "Hola", "speaker": "SPEAKER_00"}],
					"speakers_found": {"SPEAKER_00": "Ana Ruiz"},
					"language": "es"
				},
				"attendees": ["Ana Ruiz"],
				"video_url": "/files/junta.mp4"
			}`)
		},
	})

	got, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %q", got.Status)
	}
	if got.Result == nil || len(got.Result.Segments) != 1 {
		t.Fatalf("result = %+v", got.Result)
	}
	if got.Result.SpeakersFound["SPEAKER_00"] != "Ana Ruiz" {
		t.Errorf("speakers_found = %v", got.Result.SpeakersFound)
	}
	if got.VideoURL != "/files/junta.mp4" {
		t.Errorf("video_url = %q", got.VideoURL)
	}
}

func TestClientServerError(t *testing.T) {
	client := startMockBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /trim-video": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: "ffmpeg failed: unknown encoder"})
		},
	})

	_, err := client.Trim(context.Background(), TrimRequest{VideoURL: "/files/a.mp4", Start: 1, End: 2, NewName: "x"})
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", se.StatusCode)
	}
	if !strings.Contains(se.Message, "unknown encoder") {
		t.Errorf("message = %q", se.Message)
	}
	if IsTransport(err) {
		t.Error("server error reported as transport error")
	}
}

func TestClientDetailErrorBody(t *testing.T) {
	client := startMockBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /status/gone": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found"})
		},
	})

	_, err := client.Status(context.Background(), "gone")
	var se *ServerError
	if !errors.As(err, &se) || se.Message != "Job not found" {
		t.Fatalf("err = %v", err)
	}
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Status(context.Background(), "job-1")
	if !IsTransport(err) {
		t.Fatalf("err = %v, want TransportError", err)
	}
}

func TestClientTrimSendsBody(t *testing.T) {
	var got TrimRequest
	client := startMockBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /trim-video": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			writeJSON(w, http.StatusOK, TrimResponse{NewVideoURL: "/files/trimmed_x.mp4", OriginalStart: 10})
		},
	})

	resp, err := client.Trim(context.Background(), TrimRequest{VideoURL: "/files/a.mp4", Start: 8, End: 20, NewName: "x"})
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if got.Start != 8 || got.End != 20 || got.NewName != "x" {
		t.Errorf("request body = %+v", got)
	}
	if resp.OriginalStart != 10 || resp.NewVideoURL != "/files/trimmed_x.mp4" {
		t.Errorf("response = %+v", resp)
	}
}

func TestClientSessionsBackend(t *testing.T) {
	var saved SaveSessionRequest
	client := startMockBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /sessions": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&saved)
			writeJSON(w, http.StatusOK, SaveSessionResponse{Message: "saved", Filename: saved.Name})
		},
		"GET /sessions/{name}": func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("name") != "junta" {
				writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "session not found"})
				return
			}
			writeJSON(w, http.StatusOK, session.State{
				Segments: []transcript.Segment{{Start: 0, End: 1, Speaker: "SPEAKER_03"}},
				VideoURL: "/files/a.mp4",
				Version:  1,
			})
		},
		"GET /sessions": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []session.Info{{Name: "old", Timestamp: 1}, {Name: "new", Timestamp: 2}})
		},
	})

	store := session.NewStore(client, nil)
	ctx := context.Background()

	if err := store.Save(ctx, "junta", session.State{VideoURL: "/files/a.mp4"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Name != "junta" || saved.Data.Version != session.Version {
		t.Errorf("saved = %+v", saved)
	}

	st, err := store.Load(ctx, "junta")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := st.SpeakerMapping["SPEAKER_03"]; !ok {
		t.Errorf("remote load not backfilled: %v", st.SpeakerMapping)
	}

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("missing load err = %v", err)
	}

	infos := store.List(ctx)
	if len(infos) != 2 || infos[0].Name != "new" {
		t.Errorf("list = %+v", infos)
	}
}

func TestClientUploadMultipart(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "junta.mp4")
	sheet := filepath.Join(dir, "asistentes.csv")
	os.WriteFile(video, []byte("fake video"), 0o644)
	os.WriteFile(sheet, []byte("nombre\nAna"), 0o644)

	var fields []string
	client := startMockBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /upload": func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
				return
			}
			for name := range r.MultipartForm.File {
				fields = append(fields, name)
			}
			writeJSON(w, http.StatusOK, UploadResponse{JobID: "job-9", Status: StatusQueued})
		},
	})

	resp, err := client.Upload(context.Background(), video, sheet)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.JobID != "job-9" {
		t.Errorf("job id = %q", resp.JobID)
	}
	if len(fields) != 2 {
		t.Errorf("multipart files = %v, want file and attendees", fields)
	}
}

func TestClientUploadMissingFile(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 0)
	if _, err := client.Upload(context.Background(), "/nonexistent/video.mp4", ""); err == nil {
		t.Error("expected error for missing video")
	}
}

func TestMediaURL(t *testing.T) {
	c := NewClient("http://backend:8000/", 0)
	cases := map[string]string{
		"/files/a.mp4":          "http://backend:8000/files/a.mp4",
		"files/a.mp4":           "http://backend:8000/files/a.mp4",
		"https://cdn.example/x": "https://cdn.example/x",
		"":                      "",
	}
	for in, want := range cases {
		if got := c.MediaURL(in); got != want {
			t.Errorf("MediaURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMinutesRequestOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(MinutesRequest{SpeakerMapping: transcript.Mapping{"S0": "Ana"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["speaker_mapping"]; !ok {
		t.Error("speaker_mapping missing")
	}
	for _, key := range []string{"segments", "attendees", "session_name", "model"} {
		if _, ok := raw[key]; ok {
			t.Errorf("%s should be omitted", key)
		}
	}
}

func TestClientProbe(t *testing.T) {
	client := startMockBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"HEAD /files/ok.mp4": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})

	if err := client.Probe(context.Background(), "/files/ok.mp4"); err != nil {
		t.Errorf("probe existing: %v", err)
	}
	err := client.Probe(context.Background(), "/files/missing.mp4")
	var se *ServerError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("probe missing err = %v", err)
	}
}

func TestClientTimeoutSparesUploadAndTrim(t *testing.T) {
	slow := func(reply any) func(http.ResponseWriter, *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			time.Sleep(300 * time.Millisecond)
			writeJSON(w, http.StatusOK, reply)
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", slow(UploadResponse{JobID: "job-1", Status: StatusQueued}))
	mux.HandleFunc("POST /trim-video", slow(TrimResponse{NewVideoURL: "/files/trimmed_a.mp4", OriginalStart: 2}))
	mux.HandleFunc("GET /status/job-1", slow(StatusResponse{Status: StatusProcessing}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, 50*time.Millisecond)
	ctx := context.Background()

	video := filepath.Join(t.TempDir(), "junta.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	up, err := client.Upload(ctx, video, "")
	if err != nil || up.JobID != "job-1" {
		t.Fatalf("upload = %+v, %v", up, err)
	}
	tr, err := client.Trim(ctx, TrimRequest{VideoURL: "/files/a.mp4", Start: 2, End: 5, NewName: "a"})
	if err != nil || tr.OriginalStart != 2 {
		t.Fatalf("trim = %+v, %v", tr, err)
	}

	_, err = client.Status(ctx, "job-1")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("status err = %v, want TransportError", err)
	}
}
