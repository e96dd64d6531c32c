package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/jwulff/recut/internal/api"
	"github.com/jwulff/recut/internal/editor"
	"github.com/jwulff/recut/internal/jobs"
	"github.com/jwulff/recut/internal/session"
	"github.com/jwulff/recut/internal/timeline"
	"github.com/jwulff/recut/internal/transcript"
	"github.com/jwulff/recut/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Backend is the part of the HTTP API the editor drives. *api.Client
// implements it.
type Backend interface {
	Upload(ctx context.Context, videoPath, attendeesPath string) (api.UploadResponse, error)
	Status(ctx context.Context, jobID string) (api.StatusResponse, error)
	Trim(ctx context.Context, req api.TrimRequest) (api.TrimResponse, error)
	GenerateMinutes(ctx context.Context, jobID string, req api.MinutesRequest) (api.MinutesResponse, error)
	Probe(ctx context.Context, ref string) error
}

// Options configure the editor.
type Options struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	ExportDir      string

	// Started right away when set.
	UploadVideo     string
	UploadAttendees string
	LoadSession     string
}

const maxProbeAttempts = 3

type mode int

const (
	modeBrowse mode = iota
	modeUpload
	modeRenameGlobal
	modeRenameSegment
	modeTrimWindow
	modeTrimName
	modeSave
	modePickSession
)

// Model is the root bubbletea model for the recut editor.
type Model struct {
	backend  Backend
	sessions *session.Store
	log      logrus.FieldLogger
	opts     Options

	ctrl editor.Controller

	// Prompts
	mode     mode
	input    textinput.Model
	spinner  spinner.Model
	renameID string

	// Trim window
	markStart *float64
	markEnd   *float64
	trimStart float64
	trimEnd   float64

	// Session picker
	listing   []session.Info
	listIndex int

	// UI state
	selected    int
	scroll      int
	showMinutes bool
	width       int
	height      int

	// Errors
	errorMessage   string
	errorTransient bool

	notice string
}

// New creates a model with an empty editor.
func New(backend Backend, sessions *session.Store, log logrus.FieldLogger, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = jobs.DefaultInterval
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}

	ti := textinput.New()
	ti.CharLimit = 512
	ti.ShowSuggestions = true

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.SpinnerStyle

	return Model{
		backend:  backend,
		sessions: sessions,
		log:      log,
		opts:     opts,
		ctrl:     editor.New(),
		input:    ti,
		spinner:  sp,
		notice:   "Press u to upload a recording or l to load a session",
	}
}

// Controller returns the editor state.
func (m Model) Controller() editor.Controller { return m.ctrl }

// Init starts the spinner and any upload or load requested on the command
// line.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	switch {
	case m.opts.UploadVideo != "":
		cmds = append(cmds, func() tea.Msg {
			return startUploadMsg{video: m.opts.UploadVideo, attendees: m.opts.UploadAttendees}
		})
	case m.opts.LoadSession != "":
		name := m.opts.LoadSession
		cmds = append(cmds, func() tea.Msg { return startLoadMsg{name: name} })
	}
	return tea.Batch(cmds...)
}

type startUploadMsg struct{ video, attendees string }

type startLoadMsg struct{ name string }

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opts.RequestTimeout)
}

// uploadCmd sends the recording. Uploads are not bounded by the request
// timeout.
func uploadCmd(b Backend, tok editor.Token, video, attendees string) tea.Cmd {
	return func() tea.Msg {
		resp, err := b.Upload(context.Background(), video, attendees)
		return UploadedMsg{Token: tok, Response: resp, Err: err}
	}
}

// pollTickCmd schedules the next status poll for gen.
func pollTickCmd(interval time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return PollTickMsg{Gen: gen}
	})
}

func (m Model) statusCmd(jobID string, gen uint64) tea.Cmd {
	b := m.backend
	ctx, cancel := m.ctx()
	return func() tea.Msg {
		defer cancel()
		resp, err := b.Status(ctx, jobID)
		return JobStatusMsg{Gen: gen, Response: resp, Err: err}
	}
}

// trimCmd runs the trim executor, which re-encodes and can take minutes.
func trimCmd(b Backend, tok editor.Token, req api.TrimRequest) tea.Cmd {
	return func() tea.Msg {
		resp, err := b.Trim(context.Background(), req)
		return TrimDoneMsg{Token: tok, Response: resp, Err: err}
	}
}

func (m Model) probeCmd(tok editor.Token, ref string, attempt int) tea.Cmd {
	b := m.backend
	ctx, cancel := m.ctx()
	return func() tea.Msg {
		defer cancel()
		err := b.Probe(ctx, ref)
		return MediaProbeMsg{Token: tok, Ref: ref, Attempt: attempt, Err: err}
	}
}

func probeRetryCmd(tok editor.Token, ref string, attempt int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return MediaRetryMsg{Token: tok, Ref: ref, Attempt: attempt}
	})
}

func (m Model) saveCmd(tok editor.Token, name string, st session.State) tea.Cmd {
	store := m.sessions
	ctx, cancel := m.ctx()
	return func() tea.Msg {
		defer cancel()
		err := store.Save(ctx, name, st)
		return SavedMsg{Token: tok, Name: name, Err: err}
	}
}

func (m Model) listSessionsCmd() tea.Cmd {
	store := m.sessions
	ctx, cancel := m.ctx()
	return func() tea.Msg {
		defer cancel()
		return SessionsListedMsg{Sessions: store.List(ctx)}
	}
}

func (m Model) loadCmd(tok editor.Token, name string) tea.Cmd {
	store := m.sessions
	ctx, cancel := m.ctx()
	return func() tea.Msg {
		defer cancel()
		st, err := store.Load(ctx, name)
		return LoadedMsg{Token: tok, Name: name, State: st, Err: err}
	}
}

func minutesCmd(b Backend, tok editor.Token, call editor.MinutesCall) tea.Cmd {
	return func() tea.Msg {
		resp, err := b.GenerateMinutes(context.Background(), call.JobID, call.Request)
		return MinutesMsg{Token: tok, Response: resp, Err: err}
	}
}

func exportCmd(path, content string) tea.Cmd {
	return func() tea.Msg {
		if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
			return ExportedMsg{Path: path, Err: fmt.Errorf("write export: %w", err)}
		}
		return ExportedMsg{Path: path}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-20)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case startUploadMsg:
		return m.startUpload(msg.video, msg.attendees)

	case startLoadMsg:
		return m.startLoad(msg.name)

	case UploadedMsg:
		if msg.Err != nil {
			var ok bool
			if m.ctrl, ok = m.ctrl.Fail(msg.Token, editor.OpUpload, msg.Err); ok {
				m.log.WithError(msg.Err).Error("upload failed")
				return m.fail(msg.Err, false)
			}
			return m, nil
		}
		ctrl, ok := m.ctrl.UploadSucceeded(msg.Token, msg.Response.JobID)
		if !ok {
			return m, nil
		}
		m.ctrl = ctrl
		m.notice = "Processing job " + msg.Response.JobID
		m.log.WithField("job_id", msg.Response.JobID).Info("upload accepted")
		return m, pollTickCmd(m.opts.PollInterval, m.ctrl.Job().Generation)

	case PollTickMsg:
		job := m.ctrl.Job()
		if !job.Current(msg.Gen) {
			return m, nil
		}
		return m, m.statusCmd(job.JobID, msg.Gen)

	case JobStatusMsg:
		return m.handleJobStatus(msg)

	case TrimDoneMsg:
		if msg.Err != nil {
			var ok bool
			if m.ctrl, ok = m.ctrl.Fail(msg.Token, editor.OpTrim, msg.Err); ok {
				m.log.WithError(msg.Err).Error("trim failed")
				return m.fail(msg.Err, false)
			}
			return m, nil
		}
		ctrl, ok := m.ctrl.OnTrimExecuted(msg.Token, msg.Response.NewVideoURL, msg.Response.OriginalStart)
		if !ok {
			if m.ctrl.Busy(editor.OpTrim) && !ctrl.Busy(editor.OpTrim) {
				m.ctrl = ctrl
				return m.fail(fmt.Errorf("trim result could not be applied (start %s)", formatSeconds(msg.Response.OriginalStart)), false)
			}
			return m, nil
		}
		m.ctrl = ctrl
		m.markStart, m.markEnd = nil, nil
		m.clampSelection()
		m.notice = "Loading trimmed media..."
		return m, m.probeCmd(msg.Token, msg.Response.NewVideoURL, 1)

	case MediaRetryMsg:
		return m, m.probeCmd(msg.Token, msg.Ref, msg.Attempt)

	case MediaProbeMsg:
		if msg.Err != nil {
			if msg.Attempt < maxProbeAttempts {
				return m, probeRetryCmd(msg.Token, msg.Ref, msg.Attempt+1)
			}
			var ok bool
			if m.ctrl, ok = m.ctrl.Fail(msg.Token, editor.OpTrim, msg.Err); ok {
				return m.fail(fmt.Errorf("trimmed media not reachable: %w", msg.Err), false)
			}
			return m, nil
		}
		if m.ctrl.Busy(editor.OpTrim) {
			m.ctrl = m.ctrl.MediaLoaded(msg.Ref)
			if !m.ctrl.Busy(editor.OpTrim) {
				m.notice = fmt.Sprintf("Trim complete: %d segments kept", m.ctrl.Len())
			}
		}
		return m, nil

	case SavedMsg:
		if msg.Err != nil {
			var ok bool
			if m.ctrl, ok = m.ctrl.Fail(msg.Token, editor.OpSave, msg.Err); ok {
				return m.fail(msg.Err, true)
			}
			return m, nil
		}
		ctrl, ok := m.ctrl.OnSaved(msg.Token)
		if ok {
			m.ctrl = ctrl
			m.notice = "Saved session " + m.ctrl.SessionName()
		}
		return m, nil

	case SessionsListedMsg:
		if len(msg.Sessions) == 0 {
			m.notice = "No saved sessions"
			return m, nil
		}
		m.listing = msg.Sessions
		m.listIndex = 0
		m.mode = modePickSession
		return m, nil

	case LoadedMsg:
		if msg.Err != nil {
			var ok bool
			if m.ctrl, ok = m.ctrl.Fail(msg.Token, editor.OpLoad, msg.Err); ok {
				return m.fail(msg.Err, true)
			}
			return m, nil
		}
		ctrl, ok := m.ctrl.OnLoaded(msg.Token, msg.Name, msg.State)
		if !ok {
			return m, nil
		}
		m.ctrl = ctrl
		m.resetView()
		m.notice = fmt.Sprintf("Loaded session %s (%d segments)", m.ctrl.SessionName(), m.ctrl.Len())
		return m, nil

	case MinutesMsg:
		if msg.Err != nil {
			var ok bool
			if m.ctrl, ok = m.ctrl.Fail(msg.Token, editor.OpMinutes, msg.Err); ok {
				return m.fail(msg.Err, false)
			}
			return m, nil
		}
		ctrl, ok := m.ctrl.OnMinutes(msg.Token, msg.Response.Minutes)
		if ok {
			m.ctrl = ctrl
			m.showMinutes = true
			m.notice = "Minutes ready"
			if f := msg.Response.Files; f != nil && f.Markdown != "" {
				m.notice += ": " + f.Markdown
			}
		}
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			return m.fail(msg.Err, true)
		}
		m.notice = "Exported " + msg.Path
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleJobStatus(msg JobStatusMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		ctrl, ok := m.ctrl.OnJobPollFailed(msg.Gen, msg.Err)
		if !ok {
			return m, nil
		}
		m.ctrl = ctrl
		job := m.ctrl.Job()
		if job.Polling() {
			m.log.WithError(msg.Err).WithField("job_id", job.JobID).Warn("status poll failed, retrying")
			return m, pollTickCmd(m.opts.PollInterval, job.Generation)
		}
		return m.fail(job.Err, false)
	}

	ctrl, ok := m.ctrl.OnJobStatus(msg.Gen, msg.Response)
	if !ok {
		return m, nil
	}
	m.ctrl = ctrl
	job := m.ctrl.Job()
	switch job.Status {
	case jobs.Completed:
		m.resetView()
		m.notice = fmt.Sprintf("Transcript ready: %d segments, %d speakers", m.ctrl.Len(), len(m.ctrl.Speakers()))
		m.log.WithField("job_id", job.JobID).Info("job completed")
		return m, nil
	case jobs.Error:
		m.log.WithError(job.Err).WithField("job_id", job.JobID).Error("job failed")
		return m.fail(job.Err, false)
	}
	return m, pollTickCmd(m.opts.PollInterval, job.Generation)
}

// fail shows err. Transient errors clear themselves after a delay.
func (m Model) fail(err error, transient bool) (tea.Model, tea.Cmd) {
	m.errorMessage = err.Error()
	m.errorTransient = transient
	m.notice = ""
	if transient {
		return m, clearTransientErrorCmd()
	}
	return m, nil
}

func (m *Model) resetView() {
	m.selected = 0
	m.scroll = 0
	m.showMinutes = false
	m.markStart, m.markEnd = nil, nil
}

func (m Model) startUpload(video, attendees string) (tea.Model, tea.Cmd) {
	video = strings.TrimSpace(video)
	if video == "" {
		return m.fail(&transcript.ValidationError{Field: "video path", Reason: "must not be empty"}, true)
	}
	var tok editor.Token
	m.ctrl, tok = m.ctrl.StartJob()
	m.resetView()
	m.errorMessage = ""
	m.notice = "Uploading " + filepath.Base(video)
	return m, uploadCmd(m.backend, tok, video, strings.TrimSpace(attendees))
}

func (m Model) startLoad(name string) (tea.Model, tea.Cmd) {
	ctrl, tok, err := m.ctrl.LoadSession(name)
	if err != nil {
		return m.fail(err, true)
	}
	m.ctrl = ctrl
	m.notice = "Loading session " + strings.TrimSpace(name)
	return m, m.loadCmd(tok, strings.TrimSpace(name))
}

func (m *Model) prompt(md mode, value string, suggestions []string) tea.Cmd {
	m.mode = md
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.SetSuggestions(suggestions)
	return m.input.Focus()
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == KeyCtrlC {
		m.ctrl = m.ctrl.CancelJob()
		return m, tea.Quit
	}
	if m.mode == modePickSession {
		return m.handlePickerKey(msg)
	}
	if m.mode != modeBrowse {
		return m.handlePromptKey(msg)
	}

	switch msg.String() {
	case KeyQuit:
		m.ctrl = m.ctrl.CancelJob()
		return m, tea.Quit

	case KeyUp, KeyK:
		if m.selected > 0 {
			m.selected--
		}
		m.followSelection()
		return m, nil

	case KeyDown, KeyJ:
		if m.selected < m.ctrl.Len()-1 {
			m.selected++
		}
		m.followSelection()
		return m, nil

	case KeyUpload:
		cmd := m.prompt(modeUpload, "", nil)
		return m, cmd

	case KeyRenameGlobal:
		seg, ok := m.ctrl.Segment(m.selected)
		if !ok {
			return m, nil
		}
		if seg.Manual {
			return m.fail(fmt.Errorf("segment %d has its own name; use R to change it", m.selected+1), true)
		}
		m.renameID = seg.Speaker
		cmd := m.prompt(modeRenameGlobal, m.ctrl.Mapping()[seg.Speaker], m.ctrl.Attendees())
		return m, cmd

	case KeyRenameSegment:
		if _, ok := m.ctrl.Segment(m.selected); !ok {
			return m, nil
		}
		cmd := m.prompt(modeRenameSegment, m.ctrl.DisplayName(m.selected), m.ctrl.Attendees())
		return m, cmd

	case KeyMarkStart:
		if seg, ok := m.ctrl.Segment(m.selected); ok {
			start := seg.Start
			m.markStart = &start
		}
		return m, nil

	case KeyMarkEnd:
		if seg, ok := m.ctrl.Segment(m.selected); ok {
			end := seg.End
			m.markEnd = &end
		}
		return m, nil

	case KeyTrim:
		if m.ctrl.MediaRef() == "" {
			return m, nil
		}
		cmd := m.prompt(modeTrimWindow, m.markedWindow(), nil)
		return m, cmd

	case KeySave:
		cmd := m.prompt(modeSave, m.ctrl.SessionName(), nil)
		return m, cmd

	case KeyLoad:
		return m, m.listSessionsCmd()

	case KeyMinutes:
		ctrl, tok, call, err := m.ctrl.GenerateMinutes()
		if err != nil {
			return m.fail(err, true)
		}
		m.ctrl = ctrl
		m.notice = "Generating minutes..."
		return m, minutesCmd(m.backend, tok, call)

	case KeyToggleMinutes:
		if m.ctrl.Minutes() != "" {
			m.showMinutes = !m.showMinutes
		}
		return m, nil

	case KeyExport:
		if m.ctrl.Len() == 0 {
			return m, nil
		}
		return m, exportCmd(m.exportPath(".txt"), m.ctrl.Export())

	case KeyExportMD:
		if m.ctrl.Len() == 0 {
			return m, nil
		}
		meta := transcript.Meta{
			Title:     m.exportBase(),
			Attendees: m.ctrl.Attendees(),
			Source:    m.ctrl.MediaRef(),
			Generated: time.Now(),
		}
		return m, exportCmd(m.exportPath(".md"), transcript.Markdown(meta, m.ctrl.Segments(), m.ctrl.Mapping()))
	}

	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc, KeyQuit:
		m.mode = modeBrowse
	case KeyUp, KeyK:
		if m.listIndex > 0 {
			m.listIndex--
		}
	case KeyDown, KeyJ:
		if m.listIndex < len(m.listing)-1 {
			m.listIndex++
		}
	case KeyEnter:
		m.mode = modeBrowse
		if m.listIndex < len(m.listing) {
			return m.startLoad(m.listing[m.listIndex].Name)
		}
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case KeyEnter:
		value := m.input.Value()
		md := m.mode
		m.mode = modeBrowse
		m.input.Blur()
		return m.submit(md, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(md mode, value string) (tea.Model, tea.Cmd) {
	switch md {
	case modeUpload:
		video, attendees, _ := strings.Cut(value, ",")
		return m.startUpload(video, attendees)

	case modeRenameGlobal:
		ctrl, err := m.ctrl.RenameGlobal(m.renameID, value)
		if err != nil {
			return m.fail(err, true)
		}
		m.ctrl = ctrl
		m.notice = fmt.Sprintf("%s is now %s", m.renameID, transcript.DisplayName(transcript.Segment{Speaker: m.renameID}, ctrl.Mapping()))
		return m, nil

	case modeRenameSegment:
		ctrl, err := m.ctrl.RenameSegment(m.selected, value)
		if err != nil {
			return m.fail(err, true)
		}
		m.ctrl = ctrl
		m.notice = fmt.Sprintf("Segment %d renamed", m.selected+1)
		return m, nil

	case modeTrimWindow:
		start, end, err := parseWindow(value)
		if err != nil {
			return m.fail(err, true)
		}
		if err := timeline.ValidateWindow(start, end); err != nil {
			return m.fail(err, true)
		}
		m.trimStart, m.trimEnd = start, end
		cmd := m.prompt(modeTrimName, defaultTrimName(m.ctrl.MediaRef()), nil)
		return m, cmd

	case modeTrimName:
		ctrl, tok, req, err := m.ctrl.BeginTrim(m.trimStart, m.trimEnd, value)
		if err != nil {
			return m.fail(err, true)
		}
		m.ctrl = ctrl
		m.notice = fmt.Sprintf("Trimming to %s-%s...", transcript.Clock(req.Start), transcript.Clock(req.End))
		return m, trimCmd(m.backend, tok, req)

	case modeSave:
		ctrl, tok, st, err := m.ctrl.SaveSession(value)
		if err != nil {
			return m.fail(err, true)
		}
		m.ctrl = ctrl
		return m, m.saveCmd(tok, ctrl.SavingAs(), st)
	}
	return m, nil
}

func (m Model) markedWindow() string {
	if m.markStart == nil && m.markEnd == nil {
		return ""
	}
	var start, end float64
	if m.markStart != nil {
		start = *m.markStart
	}
	if m.markEnd != nil {
		end = *m.markEnd
	}
	return formatSeconds(start) + " " + formatSeconds(end)
}

func (m Model) exportBase() string {
	base := m.ctrl.SessionName()
	if base == "" {
		base = m.ctrl.Job().JobID
	}
	return session.SafeName(base, "transcript")
}

func (m Model) exportPath(ext string) string {
	return filepath.Join(m.opts.ExportDir, m.exportBase()+ext)
}

func (m *Model) clampSelection() {
	if m.selected >= m.ctrl.Len() {
		m.selected = max(0, m.ctrl.Len()-1)
	}
	m.followSelection()
}

func (m *Model) followSelection() {
	visible := m.transcriptVisibleLines() - 1
	if m.selected < m.scroll {
		m.scroll = m.selected
	}
	if m.selected >= m.scroll+visible {
		m.scroll = m.selected - visible + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// parseWindow reads "start end" where each bound is seconds or m:ss.
func parseWindow(s string) (float64, float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '-' })
	if len(fields) != 2 {
		return 0, 0, &transcript.ValidationError{Field: "trim window", Reason: "expected \"start end\""}
	}
	start, err := parseClock(fields[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClock(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseClock(s string) (float64, error) {
	var total float64
	for _, part := range strings.Split(s, ":") {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, &transcript.ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not a time", s)}
		}
		total = total*60 + v
	}
	return total, nil
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

func defaultTrimName(ref string) string {
	base := filepath.Base(ref)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimPrefix(base, "trimmed_")
	if base == "" || base == "." || base == "/" {
		return "recorte"
	}
	return base + "_recorte"
}

func (m Model) transcriptVisibleLines() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(2) + prompt(1) + message(1) + footer(1)
	reserved := 7
	return max(5, m.height-reserved)
}

// View renders the full editor.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	switch {
	case m.mode == modePickSession:
		sections = append(sections, m.renderPicker())
	case m.showMinutes:
		sections = append(sections, m.renderMinutes())
	default:
		sections = append(sections, m.renderTranscript())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	if m.mode != modeBrowse && m.mode != modePickSession {
		sections = append(sections, m.renderPrompt())
	}
	if m.errorMessage != "" {
		sections = append(sections, ui.ErrorStyle.Render("Error: ")+ui.ErrorTextStyle.Render(m.errorMessage))
	} else if m.notice != "" {
		sections = append(sections, ui.NoticeStyle.Render(m.notice))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("RECUT")
	if name := m.ctrl.SessionName(); name != "" {
		title += ui.DimStyle.Render(" · " + name)
	}
	if ref := m.ctrl.MediaRef(); ref != "" {
		title += ui.DimStyle.Render("  " + filepath.Base(ref))
	}
	return title
}

func (m Model) renderStatusBar() string {
	job := m.ctrl.Job()
	var status string
	switch job.Status {
	case jobs.Uploading, jobs.Processing:
		status = m.spinner.View() + " " + string(job.Status)
		if job.JobID != "" {
			status += ui.DimStyle.Render(" " + job.JobID)
		}
	case jobs.Completed:
		status = ui.JobDoneStyle.Render("● " + m.ctrl.Phase().String())
	case jobs.Error:
		status = ui.JobFailedStyle.Render("● job failed")
	default:
		status = ui.StatusStyle.Render("○ " + m.ctrl.Phase().String())
	}

	var busy []string
	for _, op := range []editor.Op{editor.OpSave, editor.OpLoad, editor.OpTrim, editor.OpMinutes} {
		if m.ctrl.Busy(op) {
			busy = append(busy, op.String())
		}
	}
	if len(busy) > 0 {
		status += "  " + m.spinner.View() + " " + ui.StatusStyle.Render(strings.Join(busy, ", "))
	}

	if m.markStart != nil || m.markEnd != nil {
		status += "  " + ui.MarkStyle.Render("trim "+m.markedWindow())
	}
	return status
}

func (m Model) renderTranscript() string {
	height := m.transcriptVisibleLines()
	header := ui.PanelTitleStyle.Render(fmt.Sprintf("TRANSCRIPT (%d)", m.ctrl.Len()))
	lines := []string{header}

	if m.ctrl.Len() == 0 {
		lines = append(lines, "", ui.DimStyle.Render("  No transcript yet"))
	} else {
		end := min(m.ctrl.Len(), m.scroll+height-1)
		for i := m.scroll; i < end; i++ {
			lines = append(lines, m.renderSegment(i))
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSegment(i int) string {
	seg, _ := m.ctrl.Segment(i)
	name := m.ctrl.DisplayName(i)

	var styled string
	switch {
	case seg.Manual:
		styled = ui.ManualSpeakerStyle.Render(name)
	case name == seg.Speaker:
		styled = ui.UnresolvedSpeakerStyle.Render(name)
	default:
		styled = ui.SpeakerStyle.Render(name)
	}

	ts := ui.TimestampStyle.Render(fmt.Sprintf("[%s-%s]", transcript.Clock(seg.Start), transcript.Clock(seg.End)))
	prefix := "  "
	if i == m.selected {
		prefix = ui.SelectedStyle.Render("> ")
	}

	used := lipgloss.Width(prefix+ts+" "+styled+": ")
	text := truncateToWidth(seg.Text, max(10, m.width-used))
	return prefix + ts + " " + styled + ": " + text
}

func (m Model) renderMinutes() string {
	height := m.transcriptVisibleLines()
	lines := []string{ui.PanelTitleStyle.Render("MINUTES")}
	for _, l := range wrapText(m.ctrl.Minutes(), max(10, m.width-4)) {
		lines = append(lines, "  "+l)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPicker() string {
	height := m.transcriptVisibleLines()
	lines := []string{ui.PanelTitleStyle.Render(fmt.Sprintf("SESSIONS (%d)", len(m.listing)))}
	for i, info := range m.listing {
		line := fmt.Sprintf("%s  %s", info.Name, ui.DimStyle.Render(info.Time().Format("2006-01-02 15:04")))
		if i == m.listIndex {
			line = ui.SelectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPrompt() string {
	var label string
	switch m.mode {
	case modeUpload:
		label = "Video path[, attendees]: "
	case modeRenameGlobal:
		label = "Rename " + m.renameID + " everywhere: "
	case modeRenameSegment:
		label = fmt.Sprintf("Rename segment %d only: ", m.selected+1)
	case modeTrimWindow:
		label = "Keep from/to (start end): "
	case modeTrimName:
		label = "Trimmed file name: "
	case modeSave:
		label = "Save session as: "
	}
	return ui.PromptStyle.Render(label) + m.input.View()
}

func (m Model) renderFooter() string {
	key := func(k, desc string) string {
		return ui.FooterKeyStyle.Render(k) + ui.FooterDescStyle.Render(" "+desc)
	}

	var parts []string
	switch m.mode {
	case modeBrowse:
		parts = append(parts, key("u", "Upload"), key("j/k", "Nav"))
		if m.ctrl.Len() > 0 {
			parts = append(parts,
				key("r", "Rename"), key("R", "Rename one"),
				key("[ ]", "Mark"), key("t", "Trim"),
				key("s", "Save"), key("m", "Minutes"), key("x", "Export"),
			)
		}
		parts = append(parts, key("l", "Load"))
		if m.ctrl.Minutes() != "" {
			parts = append(parts, key("v", "Minutes view"))
		}
		parts = append(parts, key("q", "Quit"))
	case modePickSession:
		parts = append(parts, key("j/k", "Nav"), key("Enter", "Load"), key("Esc", "Cancel"))
	default:
		parts = append(parts, key("Enter", "OK"), key("Tab", "Suggest"), key("Esc", "Cancel"))
	}
	return strings.Join(parts, "  ")
}

// Helpers

func truncateToWidth(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
