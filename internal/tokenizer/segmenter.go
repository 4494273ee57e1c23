package tokenizer

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Segmenter names accepted by SegmenterByName.
const (
	SegmenterRunes = "runes"
	SegmenterWords = "words"
)

// DefaultWordPattern splits text like the GPT-2 pre-tokenizer: contractions,
// letter runs, digit runs and punctuation runs each keep one leading space,
// and trailing whitespace stays separate from the next word.
const DefaultWordPattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// RuneSegmenter makes one symbol per Unicode code point.
type RuneSegmenter struct{}

// Split returns the runes of text as strings.
func (RuneSegmenter) Split(text string) ([]string, error) {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out, nil
}

// Join concatenates symbols.
func (RuneSegmenter) Join(symbols []string) string {
	return strings.Join(symbols, "")
}

// Name returns "runes".
func (RuneSegmenter) Name() string {
	return SegmenterRunes
}

// RegexSegmenter makes one symbol per match of a regular expression. Text
// between matches becomes a symbol of its own, so no input is lost.
//
// The pattern is compiled with regexp2 to allow lookaround.
type RegexSegmenter struct {
	re      *regexp2.Regexp
	pattern string
}

// NewRegexSegmenter compiles pattern. An empty pattern selects
// DefaultWordPattern.
func NewRegexSegmenter(pattern string) (*RegexSegmenter, error) {
	if pattern == "" {
		pattern = DefaultWordPattern
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compile segmenter pattern: %w", err)
	}
	return &RegexSegmenter{re: re, pattern: pattern}, nil
}

// Split returns the matches of the pattern in text.
func (s *RegexSegmenter) Split(text string) ([]string, error) {
	runes := []rune(text)
	var out []string

	pos := 0
	m, err := s.re.FindRunesMatch(runes)
	for m != nil && err == nil {
		if m.Length == 0 {
			m, err = s.re.FindNextMatch(m)
			continue
		}
		if m.Index > pos {
			out = append(out, string(runes[pos:m.Index]))
		}
		out = append(out, m.String())
		pos = m.Index + m.Length
		m, err = s.re.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("segment text: %w", err)
	}
	if pos < len(runes) {
		out = append(out, string(runes[pos:]))
	}
	return out, nil
}

// Join concatenates symbols.
func (s *RegexSegmenter) Join(symbols []string) string {
	return strings.Join(symbols, "")
}

// Name returns "words" for the default pattern, else the pattern.
func (s *RegexSegmenter) Name() string {
	if s.pattern == DefaultWordPattern {
		return SegmenterWords
	}
	return s.pattern
}

// SegmenterByName returns the segmenter for name:
//   - "" or "runes": RuneSegmenter
//   - "words": RegexSegmenter with DefaultWordPattern
//   - a tiktoken encoding ("cl100k_base", "p50k_base", "r50k_base"): TikToken
func SegmenterByName(name string) (Segmenter, error) {
	switch name {
	case "", SegmenterRunes:
		return RuneSegmenter{}, nil
	case SegmenterWords:
		return NewRegexSegmenter("")
	case encodingCL100kBase, encodingP50kBase, encodingR50kBase:
		return NewTikToken(name)
	default:
		return nil, fmt.Errorf("unknown segmenter %q", name)
	}
}
