package filter

import (
	"strings"
	"testing"
	"time"

	"subreddit-insights/internal/model"
)

var groups = map[string][]string{
	"technical_terms": {"Buffer Overflow", "privesc", "  "},
	"study":           {"proving grounds"},
	"empty":           {},
}

func TestMatcherCaseInsensitive(t *testing.T) {
	m := NewMatcher(groups)
	cases := []struct {
		text string
		want bool
	}{
		{"my BUFFER overflow notes", true},
		{"linux PrivEsc checklist", true},
		{"Proving Grounds practice", true},
		{"nothing relevant here", false},
		{"buffer-overflow", false},
	}
	for _, tc := range cases {
		if got := m.Match(tc.text); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestMatcherDropsEmptyCategories(t *testing.T) {
	m := NewMatcher(groups)
	cats := m.Categories()
	if len(cats) != 2 || cats[0] != "study" || cats[1] != "technical_terms" {
		t.Fatalf("unexpected categories %v", cats)
	}
	if kws := m.Keywords("technical_terms"); len(kws) != 2 {
		t.Fatalf("blank keyword should be dropped, got %v", kws)
	}
}

func TestMatcherHits(t *testing.T) {
	m := NewMatcher(groups)
	hits := m.Hits("Privesc after a buffer overflow in proving grounds")
	if len(hits["technical_terms"]) != 2 {
		t.Errorf("technical hits: %v", hits)
	}
	if len(hits["study"]) != 1 {
		t.Errorf("study hits: %v", hits)
	}
}

func TestFilterMinLengthUsesCombinedText(t *testing.T) {
	f := Filter{MinLength: 20, Matcher: NewMatcher(groups)}
	// title (7) + space + body (12) == 20 runes
	p := model.Post{Title: "privesc", Body: strings.Repeat("x", 12)}
	if r := f.Check(p); r != Accepted {
		t.Fatalf("expected accepted at exact minimum, got %q", r)
	}
	p.Body = p.Body[:11]
	if r := f.Check(p); r != TooShort {
		t.Fatalf("expected too_short, got %q", r)
	}
}

func TestFilterCountsRunes(t *testing.T) {
	f := Filter{MinLength: 5}
	p := model.Post{Title: "été", Body: "à"} // 5 runes, 8 bytes
	if r := f.Check(p); r != Accepted {
		t.Fatalf("expected rune-based length to accept")
	}
}

func TestFilterKeywordRule(t *testing.T) {
	f := Filter{MinLength: 1, Matcher: NewMatcher(groups)}
	if r := f.Check(model.Post{Title: "hello", Body: "world"}); r != NoKeyword {
		t.Fatalf("expected no_keyword, got %q", r)
	}
	// no keywords configured: the rule is off
	f.Matcher = NewMatcher(nil)
	if r := f.Check(model.Post{Title: "hello", Body: "world"}); r != Accepted {
		t.Fatalf("empty matcher should accept")
	}
}

func TestFilterYear(t *testing.T) {
	f := Filter{MinLength: 1, Year: 2024}
	in := model.Post{Title: "a", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	out := model.Post{Title: "a", CreatedAt: time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)}
	if r := f.Check(in); r != Accepted {
		t.Errorf("2024 post should pass")
	}
	if r := f.Check(out); r != WrongYear {
		t.Errorf("2023 post: got %q", r)
	}
}
