// Package report reads and appends analysis entries to the flat report file.
// Each entry is a YAML frontmatter block followed by the model's markdown.
package report

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"subreddit-insights/internal/markdown"

	"gopkg.in/yaml.v3"
)

// Entry is one analysis appended by a collector run.
type Entry struct {
	RunID       string    `yaml:"run_id"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Model       string    `yaml:"model"`
	Subreddit   string    `yaml:"subreddit"`
	Query       string    `yaml:"query,omitempty"`
	Year        int       `yaml:"year,omitempty"`
	Posts       int       `yaml:"posts"`
	InputTokens int       `yaml:"input_tokens"`
	Truncated   bool      `yaml:"truncated"`
	Body        string    `yaml:"-"`
}

//go:embed entry.tmpl
var entryTpl string

var compiled = template.Must(template.New("entry").Parse(entryTpl))

// Render formats an entry for the report file.
func Render(e Entry) (string, error) {
	fm, err := yaml.Marshal(e)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = compiled.Execute(&buf, struct {
		Frontmatter string
		Body        string
	}{
		Frontmatter: string(fm),
		Body:        strings.TrimSpace(markdown.EscapeBody(e.Body)),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Append writes e to the end of the report at path, creating it if needed.
func Append(path string, e Entry) error {
	out, err := Render(e)
	if err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: create dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: open: %w", err)
	}
	if st, err := f.Stat(); err == nil && st.Size() > 0 {
		out = "\n" + out
	}
	if _, err := f.WriteString(out); err != nil {
		f.Close()
		return fmt.Errorf("report: write: %w", err)
	}
	return f.Close()
}

// Read returns all entries in file order. A missing file yields
// os.ErrNotExist so callers can tell "not generated yet" apart from errors.
func Read(path string) ([]Entry, error) {
	docs, err := markdown.ParseFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("report: parse %s: %w", path, err)
	}
	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		var e Entry
		if err := d.Decode(&e); err != nil {
			return nil, fmt.Errorf("report: decode entry: %w", err)
		}
		e.Body = strings.TrimSpace(d.Body)
		entries = append(entries, e)
	}
	return entries, nil
}

// Latest returns up to n entries, newest first.
func Latest(entries []Entry, n int) []Entry {
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out
}
