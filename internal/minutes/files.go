package minutes

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/jwulff/recut/internal/session"
)

// URLPrefix is where the backend serves the minutes directory.
const URLPrefix = "/minutes/"

// Files links to the stored documents. Empty means not produced.
type Files struct {
	Markdown string
	PDF      string
}

// Store writes minutes documents into Dir.
type Store struct {
	Dir    string
	Pandoc string
	log    logrus.FieldLogger
}

// NewStore returns a store writing into dir. Pandoc is looked up on PATH.
func NewStore(dir string, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Store{Dir: dir, Pandoc: "pandoc", log: log}
}

// BaseName is the file stem used for the minutes of a session.
func BaseName(sessionName string) string {
	return "minutes_" + session.SafeName(sessionName, "untitled")
}

// Save writes minutes_<name>.md and tries to convert it to PDF. A failed PDF
// conversion is logged and leaves Files.PDF empty.
func (s *Store) Save(ctx context.Context, sessionName, markdown string) (Files, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create minutes dir: %w", err)
	}
	base := BaseName(sessionName)
	mdPath := filepath.Join(s.Dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return Files{}, fmt.Errorf("write minutes: %w", err)
	}
	files := Files{Markdown: URLPrefix + base + ".md"}
	s.log.WithField("path", mdPath).Info("minutes saved")

	if _, err := exec.LookPath(s.Pandoc); err != nil {
		s.log.Warn("pandoc not found, skipping PDF")
		return files, nil
	}
	pdfPath := filepath.Join(s.Dir, base+".pdf")
	cmd := exec.CommandContext(ctx, s.Pandoc, mdPath,
		"-o", pdfPath,
		"--pdf-engine=xelatex",
		"-V", "geometry:margin=2.5cm",
		"-V", "mainfont:DejaVu Sans",
		"-V", "fontsize=11pt",
		"--toc",
		"--toc-depth=2",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		s.log.WithError(err).WithField("output", string(out)).Error("pandoc conversion failed")
		return files, nil
	}
	files.PDF = URLPrefix + base + ".pdf"
	return files, nil
}

// Lookup returns links to whichever minutes documents exist for a session.
func (s *Store) Lookup(sessionName string) Files {
	base := BaseName(sessionName)
	var files Files
	if fileExists(filepath.Join(s.Dir, base+".md")) {
		files.Markdown = URLPrefix + base + ".md"
	}
	if fileExists(filepath.Join(s.Dir, base+".pdf")) {
		files.PDF = URLPrefix + base + ".pdf"
	}
	return files
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
