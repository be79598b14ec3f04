package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "analysis.md")
	first := Entry{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Model:       "gpt-4o-mini",
		Subreddit:   "oscp",
		Query:       "exam: tips",
		Posts:       4,
		InputTokens: 1200,
		Body:        "## Themes\n\n- buffer overflow\n---\n- privesc",
	}
	second := first
	second.RunID = "run-2"
	second.Truncated = true
	second.Body = "Second analysis."

	if err := Append(path, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := Append(path, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	e := entries[0]
	if e.RunID != "run-1" || e.Query != "exam: tips" || e.Posts != 4 || e.InputTokens != 1200 {
		t.Errorf("unexpected first entry: %+v", e)
	}
	if !e.GeneratedAt.Equal(first.GeneratedAt) {
		t.Errorf("generated_at = %v", e.GeneratedAt)
	}
	if !strings.Contains(e.Body, "- privesc") || strings.Contains(e.Body, "\n---\n") {
		t.Errorf("body not preserved/escaped: %q", e.Body)
	}
	if !entries[1].Truncated || entries[1].Body != "Second analysis." {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}

	latest := Latest(entries, 1)
	if len(latest) != 1 || latest[0].RunID != "run-2" {
		t.Errorf("latest: %+v", latest)
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.md"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestReadLegacyPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.txt")
	if err := os.WriteFile(path, []byte("A plain analysis without metadata.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 1 || entries[0].RunID != "" || entries[0].Body != "A plain analysis without metadata." {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
