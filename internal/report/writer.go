package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatGitHub = "github"
)

// Summary describes the tree a set of diagnostics came from. It carries no
// run id or timing, so the same tree always yields the same document.
type Summary struct {
	Root  string `json:"root,omitempty"`
	Files int    `json:"files"`
}

// Writer emits diagnostics in one output format.
type Writer interface {
	Write(ds []Diagnostic, summary Summary) error
}

// NewWriter returns the writer for a format.
func NewWriter(format string, out io.Writer) (Writer, error) {
	switch format {
	case "", FormatText:
		return &TextWriter{out: out, color: isTerminal(out)}, nil
	case FormatJSON:
		return &JSONWriter{out: out}, nil
	case FormatGitHub:
		return &GitHubWriter{out: out}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TextWriter prints `path:line:col: error[code]: message` lines and nothing
// at all when there are no diagnostics.
type TextWriter struct {
	out   io.Writer
	color bool
}

var (
	locationStyle = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	codeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func (w *TextWriter) Write(ds []Diagnostic, _ Summary) error {
	for _, d := range ds {
		location, label, code := d.Location.String(), "error", "["+string(d.Code)+"]"
		if w.color {
			location = locationStyle.Render(location)
			label = errorStyle.Render(label)
			code = codeStyle.Render(code)
		}
		if _, err := fmt.Fprintf(w.out, "%s: %s%s: %s\n", location, label, code, d.Message); err != nil {
			return err
		}
	}
	return nil
}

// JSONWriter prints one document with the run summary and all diagnostics.
type JSONWriter struct {
	out io.Writer
}

type jsonReport struct {
	Summary     Summary      `json:"summary"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (w *JSONWriter) Write(ds []Diagnostic, summary Summary) error {
	if ds == nil {
		ds = []Diagnostic{}
	}
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Summary: summary, Diagnostics: ds})
}

// GitHubWriter prints workflow commands that annotate pull requests.
type GitHubWriter struct {
	out io.Writer
}

var githubEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
var githubPropertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")

func (w *GitHubWriter) Write(ds []Diagnostic, _ Summary) error {
	for _, d := range ds {
		_, err := fmt.Fprintf(w.out, "::error file=%s,line=%d,col=%d::%s\n",
			githubPropertyEscaper.Replace(d.Location.File), d.Location.Line, d.Location.Column,
			githubEscaper.Replace(d.Message))
		if err != nil {
			return err
		}
	}
	return nil
}
