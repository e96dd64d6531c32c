package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/jobs"
	"github.com/jwulff/recut/internal/minutes"
	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/transcript"
)

type fakeProcessor struct {
	result api.JobResult
	err    error
}

func (f *fakeProcessor) Process(ctx context.Context, videoPath string) (api.JobResult, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return api.JobResult{}, err
	}
	return f.result, f.err
}

type fakeGenerator struct {
	mu   sync.Mutex
	reqs []minutes.Request
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, req minutes.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	return "# Acta", nil
}

type trimCall struct {
	in, out    string
	start, end float64
}

type fakeTrimmer struct {
	mu      sync.Mutex
	calls   []trimCall
	applied float64
	err     error
}

func (f *fakeTrimmer) Trim(ctx context.Context, in, out string, start, end float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trimCall{in, out, start, end})
	if f.err != nil {
		return 0, f.err
	}
	if err := os.WriteFile(out, []byte("trimmed"), 0o644); err != nil {
		return 0, err
	}
	return f.applied, nil
}

type testEnv struct {
	srv     *Server
	proc    *fakeProcessor
	gen     *fakeGenerator
	trim    *fakeTrimmer
	uploads string
}

func completedResult() api.JobResult {
	return api.JobResult{
		Segments: []transcript.Segment{
			{Start: 0, End: 5, Text: "hola", Speaker: "SPEAKER_00"},
			{Start: 10, End: 15, Text: "adiós", Speaker: "SPEAKER_01"},
		},
		SpeakersFound: transcript.Mapping{"SPEAKER_00": "", "SPEAKER_01": ""},
		Language:      "es",
	}
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := session.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ms := minutes.NewStore(filepath.Join(dir, "minutes"), log)
	ms.Pandoc = "recut-no-such-pandoc"

	env := &testEnv{
		proc:    &fakeProcessor{result: completedResult()},
		gen:     &fakeGenerator{},
		trim:    &fakeTrimmer{applied: 10},
		uploads: filepath.Join(dir, "uploads"),
	}
	env.srv, err = New(Deps{
		Log:          log,
		Sessions:     session.NewStore(db, log),
		Processor:    env.proc,
		Minutes:      env.gen,
		MinutesStore: ms,
		Trimmer:      env.trim,
		UploadDir:    env.uploads,
		Workers:      1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		env.srv.Shutdown(ctx)
	})
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func jsonRequest(method, target string, v any) *http.Request {
	data, _ := json.Marshal(v)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, files map[string][2]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(f[1]))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func waitForStatus(t *testing.T, r *Registry, id string, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, _ := r.Status(id); st == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	st, _ := r.Status(id)
	t.Fatalf("job %s status = %q, want %q", id, st, want)
}

func decodeError(t *testing.T, body []byte) api.ErrorResponse {
	t.Helper()
	var er api.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	if er.Status != "error" || er.Message == "" {
		t.Fatalf("error body = %+v", er)
	}
	return er
}

func TestHealth(t *testing.T) {
	env := newTestServer(t)
	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestUploadProcessesJob(t *testing.T) {
	env := newTestServer(t)
	resp, body := env.do(t, uploadRequest(t, map[string][2]string{
		"file":      {"my meeting.mp4", "video-bytes"},
		"attendees": {"list.csv", "nombre,apellido\nana,lópez\n"},
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d: %s", resp.StatusCode, body)
	}
	var up api.UploadResponse
	if err := json.Unmarshal(body, &up); err != nil {
		t.Fatal(err)
	}
	if up.JobID == "" || up.Status != api.StatusQueued {
		t.Fatalf("upload response = %+v", up)
	}
	if _, err := os.Stat(filepath.Join(env.uploads, "my_meeting.mp4")); err != nil {
		t.Fatalf("upload not stored: %v", err)
	}

	waitForStatus(t, env.srv.Jobs(), up.JobID, api.StatusCompleted)

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/status/"+up.JobID, nil))
	var st api.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	if st.Status != api.StatusCompleted || st.VideoURL != "/files/my_meeting.mp4" {
		t.Fatalf("status = %+v", st)
	}
	if st.Result == nil || len(st.Result.Segments) != 2 {
		t.Fatalf("result = %+v", st.Result)
	}
	if !reflect.DeepEqual(st.Attendees, []string{"Ana López"}) {
		t.Fatalf("attendees = %q", st.Attendees)
	}

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/files/my_meeting.mp4", nil))
	if resp.StatusCode != http.StatusOK || string(body) != "video-bytes" {
		t.Fatalf("static file = %d %q", resp.StatusCode, body)
	}
}

func TestUploadMissingFile(t *testing.T) {
	env := newTestServer(t)
	resp, body := env.do(t, uploadRequest(t, map[string][2]string{"other": {"x.txt", "x"}}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	decodeError(t, body)
}

func TestUploadFailedJob(t *testing.T) {
	env := newTestServer(t)
	env.proc.err = errors.New("no audio stream")
	_, body := env.do(t, uploadRequest(t, map[string][2]string{"file": {"a.mp4", "v"}}))
	var up api.UploadResponse
	json.Unmarshal(body, &up)

	waitForStatus(t, env.srv.Jobs(), up.JobID, api.StatusFailed)
	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/status/"+up.JobID, nil))
	var st api.StatusResponse
	json.Unmarshal(body, &st)
	if st.Status != api.StatusFailed || st.Error != "no audio stream" || st.Result != nil {
		t.Fatalf("status = %+v", st)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	env := newTestServer(t)
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/status/nope", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	decodeError(t, body)
}

func TestGenerateMinutesFromPayload(t *testing.T) {
	env := newTestServer(t)
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/generate-minutes/session", api.MinutesRequest{
		SpeakerMapping: transcript.Mapping{"SPEAKER_00": "Ana"},
		Segments:       completedResult().Segments,
		Attendees:      []string{"Ana"},
		SessionName:    "Junta",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var mr api.MinutesResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		t.Fatal(err)
	}
	if mr.Minutes != "# Acta" || mr.Files == nil || mr.Files.Markdown != "/minutes/minutes_Junta.md" || mr.Files.PDF != "" {
		t.Fatalf("minutes response = %+v %+v", mr, mr.Files)
	}
	if len(env.gen.reqs) != 1 {
		t.Fatalf("generator calls = %d", len(env.gen.reqs))
	}
	req := env.gen.reqs[0]
	if req.Transcript != "Ana: hola\nSPEAKER_01: adiós" || !reflect.DeepEqual(req.Attendees, []string{"Ana"}) {
		t.Fatalf("generator request = %+v", req)
	}

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/minutes/minutes_Junta.md", nil))
	if resp.StatusCode != http.StatusOK || string(body) != "# Acta" {
		t.Fatalf("stored minutes = %d %q", resp.StatusCode, body)
	}
}

func TestGenerateMinutesFromJob(t *testing.T) {
	env := newTestServer(t)
	res := completedResult()
	env.srv.jobs.create("job-1", jobRecord{
		Status:    api.StatusCompleted,
		Result:    &res,
		Attendees: []string{"Luis"},
	})
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/generate-minutes/job-1", api.MinutesRequest{
		SpeakerMapping: transcript.Mapping{"SPEAKER_01": "Bea"},
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	req := env.gen.reqs[0]
	if req.Transcript != "SPEAKER_00: hola\nBea: adiós" || !reflect.DeepEqual(req.Attendees, []string{"Luis"}) {
		t.Fatalf("generator request = %+v", req)
	}
	if _, err := os.Stat(filepath.Join(env.srv.deps.MinutesStore.Dir, "minutes_job-1.md")); err != nil {
		t.Fatalf("minutes not named after job: %v", err)
	}
}

func TestGenerateMinutesNotReady(t *testing.T) {
	env := newTestServer(t)
	env.srv.jobs.create("job-2", jobRecord{Status: api.StatusProcessing})
	for _, id := range []string{"job-2", "missing"} {
		resp, body := env.do(t, jsonRequest(http.MethodPost, "/generate-minutes/"+id, api.MinutesRequest{}))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", id, resp.StatusCode)
		}
		decodeError(t, body)
	}
	if len(env.gen.reqs) != 0 {
		t.Fatal("generator called for a job that is not ready")
	}
}

func TestGenerateMinutesGeneratorError(t *testing.T) {
	env := newTestServer(t)
	env.gen.err = minutes.ErrNoAPIKey
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/generate-minutes/x", api.MinutesRequest{
		Segments: completedResult().Segments,
	}))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if er := decodeError(t, body); !strings.Contains(er.Message, "GOOGLE_API_KEY") {
		t.Fatalf("message = %q", er.Message)
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	env := newTestServer(t)
	state := session.State{
		Segments: []transcript.Segment{
			{Start: 0, End: 5, Text: "hola", Speaker: "SPEAKER_00"},
			{Start: 5, End: 9, Text: "sí", Speaker: "SPEAKER_02"},
		},
		SpeakerMapping: transcript.Mapping{"SPEAKER_00": "Ana"},
		VideoURL:       "/files/a.mp4",
	}
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/sessions", api.SaveSessionRequest{Name: "Junta: marzo", Data: state}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d: %s", resp.StatusCode, body)
	}
	var saved api.SaveSessionResponse
	json.Unmarshal(body, &saved)
	if saved.Filename != "Junta marzo" {
		t.Fatalf("filename = %q", saved.Filename)
	}

	// Minutes for the session show up in the listing.
	os.WriteFile(filepath.Join(env.srv.deps.MinutesStore.Dir, "minutes_Junta marzo.md"), []byte("x"), 0o644)

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	var infos []session.Info
	if err := json.Unmarshal(body, &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Name != "Junta marzo" || infos[0].MinutesMD != "/minutes/minutes_Junta marzo.md" || infos[0].MinutesPDF != "" {
		t.Fatalf("infos = %+v", infos)
	}

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/sessions/Junta%20marzo", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d: %s", resp.StatusCode, body)
	}
	var got session.State
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Version != session.Version || got.VideoURL != "/files/a.mp4" || len(got.Segments) != 2 {
		t.Fatalf("loaded = %+v", got)
	}
	want := transcript.Mapping{"SPEAKER_00": "Ana", "SPEAKER_02": ""}
	if !reflect.DeepEqual(got.SpeakerMapping, want) {
		t.Fatalf("mapping = %v, want %v", got.SpeakerMapping, want)
	}
}

func TestSaveSessionRequiresName(t *testing.T) {
	env := newTestServer(t)
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/sessions", map[string]any{"data": map[string]any{}}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if er := decodeError(t, body); !strings.Contains(er.Message, "Name") {
		t.Fatalf("message = %q", er.Message)
	}
}

func TestLoadSessionMissing(t *testing.T) {
	env := newTestServer(t)
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/sessions/nope", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	decodeError(t, body)
}

func TestTrim(t *testing.T) {
	env := newTestServer(t)
	if err := os.WriteFile(filepath.Join(env.uploads, "in.mov"), []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/trim-video", api.TrimRequest{
		VideoURL: "/files/in.mov", Start: 8, End: 20, NewName: "corte final",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var tr api.TrimResponse
	json.Unmarshal(body, &tr)
	if tr.NewVideoURL != "/files/trimmed_corte_final.mov" || tr.OriginalStart != 10 {
		t.Fatalf("trim response = %+v", tr)
	}
	call := env.trim.calls[0]
	if call.in != filepath.Join(env.uploads, "in.mov") || call.out != filepath.Join(env.uploads, "trimmed_corte_final.mov") || call.start != 8 || call.end != 20 {
		t.Fatalf("trim call = %+v", call)
	}
}

func TestTrimRejectsInvalidWindow(t *testing.T) {
	env := newTestServer(t)
	os.WriteFile(filepath.Join(env.uploads, "in.mp4"), []byte("v"), 0o644)
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/trim-video", api.TrimRequest{
		VideoURL: "/files/in.mp4", Start: 20, End: 20, NewName: "x",
	}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	decodeError(t, body)
	if len(env.trim.calls) != 0 {
		t.Fatal("trimmer called for an empty window")
	}
}

func TestTrimRejectsOverwritingInput(t *testing.T) {
	env := newTestServer(t)
	os.WriteFile(filepath.Join(env.uploads, "trimmed_x.mp4"), []byte("v"), 0o644)
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/trim-video", api.TrimRequest{
		VideoURL: "/files/trimmed_x.mp4", Start: 0, End: 1, NewName: "x",
	}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if er := decodeError(t, body); !strings.Contains(er.Message, "trimmed_x.mp4") {
		t.Fatalf("message = %q", er.Message)
	}
	if len(env.trim.calls) != 0 {
		t.Fatal("trimmer called with output equal to input")
	}
}

func TestTrimMissingInput(t *testing.T) {
	env := newTestServer(t)
	resp, _ := env.do(t, jsonRequest(http.MethodPost, "/trim-video", api.TrimRequest{
		VideoURL: "/files/../../etc/passwd", Start: 0, End: 1, NewName: "x",
	}))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTrimExecutorFailure(t *testing.T) {
	env := newTestServer(t)
	env.trim.err = errors.New("unknown encoder 'libx264'")
	os.WriteFile(filepath.Join(env.uploads, "in.mp4"), []byte("v"), 0o644)
	resp, body := env.do(t, jsonRequest(http.MethodPost, "/trim-video", api.TrimRequest{
		VideoURL: "in.mp4", Start: 0, End: 1, NewName: "x",
	}))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if er := decodeError(t, body); !strings.Contains(er.Message, "libx264") {
		t.Fatalf("message = %q", er.Message)
	}
}

func TestTrimOutputName(t *testing.T) {
	cases := []struct{ name, ext, want string }{
		{"corte", ".mov", "corte.mov"},
		{"corte.MP4", ".mov", "corte.MP4"},
		{"corte", "", "corte.mp4"},
		{"../x y", ".webm", "x_y.webm"},
		{"", ".mp4", "clip.mp4"},
	}
	for _, c := range cases {
		if got := trimOutputName(c.name, c.ext); got != c.want {
			t.Errorf("trimOutputName(%q, %q) = %q, want %q", c.name, c.ext, got, c.want)
		}
	}
}

// The api client and poller work against the real routes.
func TestClientAgainstServer(t *testing.T) {
	env := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	go env.srv.App().Listener(ln)

	client := api.NewClient("http://"+ln.Addr().String(), 5*time.Second)
	video := filepath.Join(t.TempDir(), "clip.mp4")
	os.WriteFile(video, []byte("video"), 0o644)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	up, err := client.Upload(ctx, video, "")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	res, err := jobs.NewPoller(client, 10*time.Millisecond, nil).Run(ctx, up.JobID)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(res.Segments) != 2 || res.MediaRef != "/files/clip.mp4" {
		t.Fatalf("result = %+v", res)
	}
	if err := client.Probe(ctx, res.MediaRef); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	store := session.NewStore(client, nil)
	if err := store.Save(ctx, "remote", session.State{Segments: res.Segments, SpeakerMapping: res.Mapping}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st, err := store.Load(ctx, "remote")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Segments) != 2 {
		t.Fatalf("loaded = %+v", st)
	}
	if _, err := store.Load(ctx, "absent"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Load absent err = %v", err)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	d := NewDispatcher(1, 1, log)
	job := processJob{id: "a"}
	if err := d.Submit(job); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if err := d.Submit(job); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Submit err = %v, want ErrQueueFull", err)
	}
}

type countJob struct {
	id   string
	done chan string
}

func (j countJob) ID() string { return j.id }
func (j countJob) Execute(ctx context.Context) error {
	j.done <- j.id
	return nil
}

func TestDispatcherRunsJobs(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	d := NewDispatcher(2, 4, log)
	d.Run(context.Background())
	defer d.Stop()

	done := make(chan string, 3)
	for _, id := range []string{"a", "b", "c"} {
		if err := d.Submit(countJob{id: id, done: done}); err != nil {
			t.Fatal(err)
		}
	}
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d jobs ran", len(seen))
		}
	}
	if len(seen) != 3 {
		t.Fatalf("seen = %v", seen)
	}
}
