package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseMultipleDocuments(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "report.md")
	content := "" +
		"---\n" +
		"run_id: first\n" +
		"posts: 3\n" +
		"---\n\n" +
		"## Themes\n\nBody one.\n" +
		"---\n" +
		"run_id: second\n" +
		"---\n" +
		"Body two.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	docs, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Frontmatter["run_id"] != "first" {
		t.Errorf("first run_id: %v", docs[0].Frontmatter["run_id"])
	}
	if docs[0].Frontmatter["posts"] != 3 {
		t.Errorf("posts: %#v", docs[0].Frontmatter["posts"])
	}
	if !strings.Contains(docs[0].Body, "## Themes") {
		t.Errorf("first body: %q", docs[0].Body)
	}
	if docs[1].Body != "Body two.\n" {
		t.Errorf("second body: %q", docs[1].Body)
	}

	var meta struct {
		RunID string `yaml:"run_id"`
	}
	if err := docs[1].Decode(&meta); err != nil || meta.RunID != "second" {
		t.Errorf("decode: %+v err=%v", meta, err)
	}
}

func TestParseWithoutFrontmatter(t *testing.T) {
	body := "# Hello\n\nNo frontmatter here.\n"
	docs, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	if len(docs[0].Frontmatter) != 0 {
		t.Fatalf("expected empty frontmatter, got: %+v", docs[0].Frontmatter)
	}
	if docs[0].Body != body {
		t.Errorf("body mismatch.\nwant: %q\n got: %q", body, docs[0].Body)
	}
}

func TestParseEmpty(t *testing.T) {
	docs, err := Parse(strings.NewReader("\n\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}

func TestEscapeBodyKeepsDocumentsApart(t *testing.T) {
	body := EscapeBody("intro\n---\noutro")
	if body != "intro\n***\noutro" {
		t.Fatalf("escape: %q", body)
	}
	docs, err := Parse(strings.NewReader("---\nrun_id: x\n---\n" + body + "\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("escaped body split into %d documents", len(docs))
	}
}

func TestParseBadYAML(t *testing.T) {
	_, err := Parse(strings.NewReader("---\nkey: [unclosed\n---\nbody\n"))
	if err == nil {
		t.Fatalf("expected yaml error")
	}
}
