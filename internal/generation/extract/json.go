package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z]*\\s*(.*?)\\s*```")

// JSON decodes text into a fresh T. It tries the text as-is, then the
// contents of the first code fence, then the outermost {...} span and the
// first balanced {...} or [...] span. It reports false when nothing parses.
func JSON[T any](text string) (T, bool) {
	var zero T
	s := strings.TrimSpace(text)
	if s == "" {
		return zero, false
	}

	for _, candidate := range jsonCandidates(s) {
		var v T
		if err := json.Unmarshal([]byte(candidate), &v); err == nil {
			return v, true
		}
	}
	return zero, false
}

func jsonCandidates(s string) []string {
	out := []string{s}
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); i >= 0 && j > i {
		out = append(out, s[i:j+1])
	}
	if span := balancedSpan(s, '{', '}'); span != "" {
		out = append(out, span)
	}
	if span := balancedSpan(s, '[', ']'); span != "" {
		out = append(out, span)
	}
	return out
}

// balancedSpan returns the first open...close span with matched nesting,
// ignoring delimiters inside JSON strings.
func balancedSpan(s string, open, closing byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
