// Package filter decides which fetched posts are worth keeping.
package filter

import (
	"sort"
	"strings"
	"unicode/utf8"

	"subreddit-insights/internal/model"
)

// Matcher does case-insensitive substring matching against keyword lists
// grouped by category.
type Matcher struct {
	categories []string
	keywords   map[string][]string // category -> lowercased keywords
}

// NewMatcher builds a matcher. Blank keywords are dropped.
func NewMatcher(groups map[string][]string) *Matcher {
	m := &Matcher{keywords: make(map[string][]string, len(groups))}
	for cat, kws := range groups {
		list := make([]string, 0, len(kws))
		for _, k := range kws {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			list = append(list, k)
		}
		if len(list) == 0 {
			continue
		}
		m.keywords[cat] = list
		m.categories = append(m.categories, cat)
	}
	sort.Strings(m.categories)
	return m
}

// Empty reports whether no keyword is configured.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.categories) == 0
}

// Categories returns configured category names in sorted order.
func (m *Matcher) Categories() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.categories...)
}

// Keywords returns the lowercased keywords for a category.
func (m *Matcher) Keywords(category string) []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keywords[category]...)
}

// Match reports whether any keyword of any category occurs in text.
func (m *Matcher) Match(text string) bool {
	if m.Empty() {
		return false
	}
	lower := strings.ToLower(text)
	for _, cat := range m.categories {
		for _, k := range m.keywords[cat] {
			if strings.Contains(lower, k) {
				return true
			}
		}
	}
	return false
}

// Hits returns every keyword found in text, keyed by category.
func (m *Matcher) Hits(text string) map[string][]string {
	out := map[string][]string{}
	if m.Empty() {
		return out
	}
	lower := strings.ToLower(text)
	for _, cat := range m.categories {
		for _, k := range m.keywords[cat] {
			if strings.Contains(lower, k) {
				out[cat] = append(out[cat], k)
			}
		}
	}
	return out
}

// Reason explains why a post was rejected. The zero value means accepted.
type Reason string

const (
	Accepted  Reason = ""
	TooShort  Reason = "too_short"
	NoKeyword Reason = "no_keyword"
	WrongYear Reason = "wrong_year"
)

// Filter combines the minimum-length, keyword and optional year rules.
type Filter struct {
	MinLength int      // minimum rune count of title + " " + body
	Matcher   *Matcher // an empty matcher accepts every post
	Year      int      // 0 disables the year rule
}

// Check returns the first rule the post fails, or Accepted.
func (f Filter) Check(p model.Post) Reason {
	text := p.Text()
	if utf8.RuneCountInString(text) < f.MinLength {
		return TooShort
	}
	if f.Year > 0 && p.CreatedAt.UTC().Year() != f.Year {
		return WrongYear
	}
	if !f.Matcher.Empty() && !f.Matcher.Match(text) {
		return NoKeyword
	}
	return Accepted
}
