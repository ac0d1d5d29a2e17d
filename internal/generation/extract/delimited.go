package extract

import (
	"regexp"
	"strings"
	"sync"
)

// Markers of the delimited-field grammar:
//
//	===FIELD===NAME: value===END===
const (
	FieldOpen  = "===FIELD==="
	FieldClose = "===END==="
	ListSep    = "|"
)

var (
	fieldPatterns sync.Map
	anyFieldRe    = regexp.MustCompile(`(?s)===FIELD===\s*([A-Za-z][A-Za-z0-9_ ]*?)\s*:\s*(.*?)\s*===END===`)
	bulletRe      = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
)

func fieldPattern(name string) *regexp.Regexp {
	if re, ok := fieldPatterns.Load(name); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?s)===FIELD===\s*(?i:` + regexp.QuoteMeta(name) + `)\s*:\s*(.*?)\s*===END===`)
	actual, _ := fieldPatterns.LoadOrStore(name, re)
	return actual.(*regexp.Regexp)
}

// Field returns the first well-formed value of the named field. A match
// whose value swallowed another opening marker (a missing END) is skipped.
func Field(text, name string) (string, bool) {
	for _, m := range fieldPattern(name).FindAllStringSubmatch(text, -1) {
		v := strings.TrimSpace(m[1])
		if v == "" || strings.Contains(v, FieldOpen) {
			continue
		}
		return v, true
	}
	return "", false
}

// ListField splits a field value on "|" and drops blank items and list
// bullets.
func ListField(text, name string) ([]string, bool) {
	raw, ok := Field(text, name)
	if !ok {
		return nil, false
	}
	items := splitList(raw)
	return items, len(items) > 0
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ListSep) {
		item := strings.TrimSpace(bulletRe.ReplaceAllString(part, ""))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Fields returns every well-formed field in the text keyed by upper-cased
// name. The first occurrence of a name wins.
func Fields(text string) map[string]string {
	out := make(map[string]string)
	for _, m := range anyFieldRe.FindAllStringSubmatch(text, -1) {
		name := strings.ToUpper(strings.TrimSpace(m[1]))
		v := strings.TrimSpace(m[2])
		if v == "" || strings.Contains(v, FieldOpen) {
			continue
		}
		if _, seen := out[name]; !seen {
			out[name] = v
		}
	}
	return out
}

// Blocks splits a multi-record reply on separator and returns the
// non-blank chunks in order.
func Blocks(text, separator string) []string {
	if separator == "" {
		if s := strings.TrimSpace(text); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, chunk := range strings.Split(text, separator) {
		if s := strings.TrimSpace(chunk); s != "" {
			out = append(out, s)
		}
	}
	return out
}
