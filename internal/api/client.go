package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwulff/recut/internal/session"
)

// DefaultBaseURL is where the backend listens by default.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the recut backend.
type Client struct {
	baseURL string
	http    *http.Client
	// Uploads and trims; bounded only by the caller's context.
	long *http.Client
}

// NewClient returns a client for the backend at baseURL. A positive timeout
// bounds status, session, minutes and probe requests. Uploads and trims can
// take minutes and are only bounded by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		long:    &http.Client{},
	}
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// MediaURL resolves a media reference such as "/files/x.mp4" against the
// backend root. Absolute URLs are returned unchanged.
func (c *Client) MediaURL(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return c.baseURL + ref
}

// Upload sends a recording and an optional attendee spreadsheet and returns
// the job id. The file is streamed rather than buffered.
func (c *Client) Upload(ctx context.Context, videoPath, attendeesPath string) (UploadResponse, error) {
	const op = "upload"

	video, err := os.Open(videoPath)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("open video: %w", err)
	}
	defer video.Close()

	var attendees *os.File
	if attendeesPath != "" {
		attendees, err = os.Open(attendeesPath)
		if err != nil {
			return UploadResponse{}, fmt.Errorf("open attendees: %w", err)
		}
		defer attendees.Close()
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, video, attendees))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		pr.Close()
		return UploadResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp UploadResponse
	if err := c.do(c.long, req, op, &resp); err != nil {
		pr.Close()
		return UploadResponse{}, err
	}
	return resp, nil
}

func writeUploadForm(mw *multipart.Writer, video, attendees *os.File) error {
	fw, err := mw.CreateFormFile("file", filepath.Base(video.Name()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, video); err != nil {
		return err
	}
	if attendees != nil {
		fw, err := mw.CreateFormFile("attendees", filepath.Base(attendees.Name()))
		if err != nil {
			return err
		}
		if _, err := io.Copy(fw, attendees); err != nil {
			return err
		}
	}
	return mw.Close()
}

// Probe checks that the media behind ref can be fetched.
func (c *Client) Probe(ctx context.Context, ref string) error {
	const op = "probe media"
	if ref == "" {
		return &ServerError{Op: op, StatusCode: http.StatusNotFound, Message: "no media reference"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.MediaURL(ref), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return nil
}

// Status fetches the state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (StatusResponse, error) {
	var resp StatusResponse
	err := c.getJSON(ctx, "status", "/status/"+url.PathEscape(jobID), &resp)
	return resp, err
}

// GenerateMinutes asks the backend to draft meeting minutes.
func (c *Client) GenerateMinutes(ctx context.Context, jobID string, body MinutesRequest) (MinutesResponse, error) {
	var resp MinutesResponse
	err := c.postJSON(ctx, "generate minutes", "/generate-minutes/"+url.PathEscape(jobID), body, &resp)
	return resp, err
}

// Trim asks the backend to cut the media to [Start, End).
func (c *Client) Trim(ctx context.Context, body TrimRequest) (TrimResponse, error) {
	const op = "trim video"
	req, err := c.newJSONRequest(ctx, op, "/trim-video", body)
	if err != nil {
		return TrimResponse{}, err
	}
	var resp TrimResponse
	if err := c.do(c.long, req, op, &resp); err != nil {
		return TrimResponse{}, err
	}
	return resp, nil
}

// Put stores a session snapshot. Client satisfies session.Backend.
func (c *Client) Put(ctx context.Context, name string, st session.State) error {
	var resp SaveSessionResponse
	return c.postJSON(ctx, "save session", "/sessions", SaveSessionRequest{Name: name, Data: st}, &resp)
}

// Get fetches a session snapshot.
func (c *Client) Get(ctx context.Context, name string) (session.State, error) {
	var st session.State
	err := c.getJSON(ctx, "load session", "/sessions/"+url.PathEscape(name), &st)
	var se *ServerError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return session.State{}, session.ErrNotFound
	}
	return st, err
}

// List fetches the saved session names.
func (c *Client) List(ctx context.Context) ([]session.Info, error) {
	var infos []session.Info
	err := c.getJSON(ctx, "list sessions", "/sessions", &infos)
	return infos, err
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(c.http, req, op, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	req, err := c.newJSONRequest(ctx, op, path, body)
	if err != nil {
		return err
	}
	return c.do(c.http, req, op, out)
}

func (c *Client) newJSONRequest(ctx context.Context, op, path string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(hc *http.Client, req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return nil
}

func errorMessage(body []byte) string {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Message != "" {
			return er.Message
		}
		if er.Detail != "" {
			return er.Detail
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
