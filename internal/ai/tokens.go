package ai

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// runesPerToken approximates English text when no BPE encoding is available.
const runesPerToken = 4

// Budget counts and trims text in model tokens.
type Budget struct {
	enc *tiktoken.Tiktoken
}

// NewBudget loads the BPE encoding for model, falling back to cl100k_base and
// then to a rune-based estimate. Loading may download the BPE ranks on first use.
func NewBudget(model string) *Budget {
	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return &Budget{enc: enc}
	}
	slog.Warn("tokens: no encoding for model, trying cl100k_base", "model", model, "err", err)
	enc, err = tiktoken.GetEncoding("cl100k_base")
	if err == nil {
		return &Budget{enc: enc}
	}
	slog.Warn("tokens: falling back to estimated token counts", "err", err)
	return &Budget{}
}

// Exact reports whether counts come from a real tokenizer.
func (b *Budget) Exact() bool { return b != nil && b.enc != nil }

// Count returns the number of tokens in text.
func (b *Budget) Count(text string) int {
	if b.Exact() {
		return len(b.enc.Encode(text, nil, nil))
	}
	n := utf8.RuneCountInString(text)
	return (n + runesPerToken - 1) / runesPerToken
}

// Truncate cuts text to at most max tokens. It returns the kept text, its
// token count and whether anything was dropped.
func (b *Budget) Truncate(text string, max int) (string, int, bool) {
	if max <= 0 {
		return text, b.Count(text), false
	}
	if b.Exact() {
		toks := b.enc.Encode(text, nil, nil)
		if len(toks) <= max {
			return text, len(toks), false
		}
		kept, n := decodePrefix(b.enc.Decode, toks, max)
		return kept, n, true
	}
	limit := max * runesPerToken
	if utf8.RuneCountInString(text) <= limit {
		return text, b.Count(text), false
	}
	r := []rune(text)[:limit]
	return string(r), max, true
}

// maxRuneSplit is how many tokens a single UTF-8 rune can span in a byte-level BPE.
const maxRuneSplit = 3

// decodePrefix decodes the first max tokens, dropping trailing tokens that
// would end the text inside a multi-byte rune.
func decodePrefix(decode func([]int) string, toks []int, max int) (string, int) {
	for n := max; n > 0 && n >= max-maxRuneSplit; n-- {
		if s := decode(toks[:n]); utf8.ValidString(s) {
			return s, n
		}
	}
	return strings.ToValidUTF8(decode(toks[:max]), ""), max
}
