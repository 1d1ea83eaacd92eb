// Package report writes lint results in the supported output formats.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/metalagman/playlint/internal/lint"
)

// Format is an output format name.
type Format string

const (
	FormatDefault   Format = "default"
	FormatParseable Format = "parseable"
	FormatJSON      Format = "json"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatDefault, FormatParseable, FormatJSON}

// ParseFormat validates a format name. An empty name selects the default.
func ParseFormat(name string) (Format, error) {
	if name == "" {
		return FormatDefault, nil
	}
	for _, f := range Formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of %v)", name, Formats)
}

// ColorEnabled reports whether f is a terminal that should get colors.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var (
	ruleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	pathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	taskStyle = lipgloss.NewStyle().Faint(true)
)

// Writer renders results to an io.Writer.
type Writer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewWriter creates a writer. color only affects the default format.
func NewWriter(out io.Writer, format Format, color bool) *Writer {
	return &Writer{out: out, format: format, color: color}
}

// Write renders res.
func (w *Writer) Write(res *lint.Result) error {
	switch w.format {
	case FormatJSON:
		return w.writeJSON(res)
	case FormatParseable:
		for _, m := range res.Matches {
			if _, err := fmt.Fprintf(w.out, "%s:%d: [%s] %s\n", m.File, m.Line, m.RuleID, m.Message); err != nil {
				return fmt.Errorf("write match: %w", err)
			}
		}
	default:
		for _, m := range res.Matches {
			if _, err := fmt.Fprintf(w.out, "%s %s\n%s\nTask/Handler: %s\n\n",
				w.style(ruleStyle, "["+m.RuleID+"]"), m.Message,
				w.style(pathStyle, fmt.Sprintf("%s:%d", m.File, m.Line)),
				w.style(taskStyle, m.Task)); err != nil {
				return fmt.Errorf("write match: %w", err)
			}
		}
	}
	for _, e := range res.Errors {
		if _, err := fmt.Fprintf(w.out, "%s: error: %v\n", location(e.File, e.Line), e.Err); err != nil {
			return fmt.Errorf("write file error: %w", err)
		}
	}
	return nil
}

func (w *Writer) style(s lipgloss.Style, text string) string {
	if !w.color {
		return text
	}
	return s.Render(text)
}

type jsonError struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

type jsonReport struct {
	Matches []lint.Match `json:"matches"`
	Errors  []jsonError  `json:"errors"`
}

func (w *Writer) writeJSON(res *lint.Result) error {
	doc := jsonReport{Matches: res.Matches, Errors: []jsonError{}}
	if doc.Matches == nil {
		doc.Matches = []lint.Match{}
	}
	for _, e := range res.Errors {
		doc.Errors = append(doc.Errors, jsonError{File: e.File, Line: e.Line, Message: e.Err.Error()})
	}
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

func location(file string, line int) string {
	if line > 0 {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return file
}
