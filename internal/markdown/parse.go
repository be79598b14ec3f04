package markdown

import (
	"bufio"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter is the line that opens and closes a frontmatter block.
const Delimiter = "---"

// Document is one Markdown section, optionally preceded by YAML frontmatter.
type Document struct {
	Frontmatter map[string]any
	Raw         string // frontmatter text between the delimiters
	Body        string
}

// Decode unmarshals the frontmatter into v.
func (d Document) Decode(v any) error {
	if strings.TrimSpace(d.Raw) == "" {
		return nil
	}
	return yaml.Unmarshal([]byte(d.Raw), v)
}

// ParseFile reads a file made of one or more frontmatter+body documents.
func ParseFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse splits r into documents. Every line equal to "---" outside a
// frontmatter block starts a new document; text before the first delimiter
// becomes a document without frontmatter. Blank leading text is dropped.
func Parse(r io.Reader) ([]Document, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		docs   []Document
		fm     strings.Builder
		body   strings.Builder
		inFM   bool
		hasFM  bool
		opened bool
	)
	flush := func() error {
		if !opened && strings.TrimSpace(body.String()) == "" {
			body.Reset()
			return nil
		}
		d := Document{Frontmatter: map[string]any{}, Raw: fm.String(), Body: body.String()}
		if hasFM {
			m := map[string]any{}
			if err := yaml.Unmarshal([]byte(d.Raw), &m); err != nil {
				return err
			}
			if m != nil {
				d.Frontmatter = m
			}
		}
		docs = append(docs, d)
		fm.Reset()
		body.Reset()
		hasFM = false
		return nil
	}

	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == Delimiter {
			if inFM {
				inFM = false
				continue
			}
			if err := flush(); err != nil {
				return nil, err
			}
			inFM, hasFM, opened = true, true, true
			continue
		}
		if inFM {
			fm.WriteString(line)
			fm.WriteByte('\n')
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return docs, nil
}

// EscapeBody rewrites body lines that would be read as a delimiter into the
// equivalent "***" thematic break.
func EscapeBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) == Delimiter {
			lines[i] = "***"
		}
	}
	return strings.Join(lines, "\n")
}
