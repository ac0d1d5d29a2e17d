package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	EmailSeparator = "===EMAIL==="

	FieldSubject = "SUBJECT"
	FieldBody    = "BODY"
	FieldDelay   = "DELAY"
	FieldTone    = "TONE"

	// MinSegmentableLength is the shortest reply worth segmenting
	// heuristically when no delimited block parsed.
	MinSegmentableLength = 50

	maxDerivedSubject = 60
)

// emailNamespace seeds name-based step IDs so re-parsing the same reply
// yields the same IDs.
var emailNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("crm-ai-workers/email-step"))

var (
	digitsRe       = regexp.MustCompile(`\d+`)
	subjectLineRe  = regexp.MustCompile(`(?im)^[ \t]*(?:\*\*)?subject(?:\s+line)?(?:\*\*)?\s*:\s*(?:\*\*)?\s*(.+)$`)
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?](\s|$)`)
)

// EmailDefaults fills the optional parts of a step the model left out.
type EmailDefaults struct {
	Tone string
	// CadenceDays is the gap between consecutive steps; step 1 waits 0.
	CadenceDays int
}

func (d EmailDefaults) delayFor(step int) int {
	if step <= 1 {
		return 0
	}
	cadence := d.CadenceDays
	if cadence <= 0 {
		cadence = 3
	}
	return (step - 1) * cadence
}

// EmailSequence parses ===EMAIL=== separated blocks. Blocks missing SUBJECT
// or BODY are skipped. When nothing parses and the reply is long enough it
// falls back to SegmentEmails; heuristic reports which path produced the
// steps. requested caps the number of steps when positive.
func EmailSequence(text string, requested int, defaults EmailDefaults) (steps []EmailStep, heuristic bool) {
	for _, block := range Blocks(text, EmailSeparator) {
		if requested > 0 && len(steps) >= requested {
			break
		}
		subject, ok := Field(block, FieldSubject)
		if !ok {
			continue
		}
		body, ok := Field(block, FieldBody)
		if !ok {
			continue
		}

		n := len(steps) + 1
		step := EmailStep{
			StepNumber: n,
			Subject:    subject,
			Body:       body,
			DelayDays:  defaults.delayFor(n),
			Tone:       defaults.Tone,
		}
		if raw, ok := Field(block, FieldDelay); ok {
			if d, err := strconv.Atoi(digitsRe.FindString(raw)); err == nil {
				step.DelayDays = d
			}
		}
		if tone, ok := Field(block, FieldTone); ok {
			step.Tone = tone
		}
		step.ID = stepID(step)
		steps = append(steps, step)
	}

	if len(steps) > 0 {
		return steps, false
	}
	return SegmentEmails(text, requested, defaults), true
}

// SegmentEmails builds a best-effort sequence from unstructured prose. It
// splits on "Subject:" lines when present and on paragraphs otherwise, and
// never returns more than requested steps.
func SegmentEmails(text string, requested int, defaults EmailDefaults) []EmailStep {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if utf8.RuneCountInString(text) < MinSegmentableLength || requested <= 0 {
		return nil
	}

	type draft struct{ subject, body string }
	var drafts []draft

	if locs := subjectLineRe.FindAllStringSubmatchIndex(text, -1); len(locs) > 0 {
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			subject := cleanInline(text[loc[2]:loc[3]])
			body := strings.TrimSpace(stripMarkers(text[loc[1]:end]))
			if body == "" {
				continue
			}
			drafts = append(drafts, draft{subject: subject, body: body})
		}
	}

	if len(drafts) == 0 {
		var paras []string
		for _, p := range paragraphSplit.Split(stripMarkers(text), -1) {
			if p = strings.TrimSpace(p); p != "" {
				paras = append(paras, p)
			}
		}
		for _, group := range groupInto(paras, requested) {
			body := strings.Join(group, "\n\n")
			drafts = append(drafts, draft{subject: deriveSubject(body), body: body})
		}
	}

	if len(drafts) > requested {
		drafts = drafts[:requested]
	}

	steps := make([]EmailStep, 0, len(drafts))
	for i, d := range drafts {
		n := i + 1
		subject := d.subject
		if subject == "" {
			subject = deriveSubject(d.body)
		}
		step := EmailStep{
			StepNumber: n,
			Subject:    subject,
			Body:       d.body,
			DelayDays:  defaults.delayFor(n),
			Tone:       defaults.Tone,
		}
		step.ID = stepID(step)
		steps = append(steps, step)
	}
	return steps
}

// groupInto spreads items over at most n consecutive groups.
func groupInto(items []string, n int) [][]string {
	if len(items) == 0 || n <= 0 {
		return nil
	}
	if len(items) <= n {
		out := make([][]string, len(items))
		for i, it := range items {
			out[i] = []string{it}
		}
		return out
	}
	size := (len(items) + n - 1) / n
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

func deriveSubject(body string) string {
	first := strings.TrimSpace(strings.SplitN(body, "\n", 2)[0])
	if loc := sentenceEnd.FindStringIndex(first); loc != nil {
		first = first[:loc[0]]
	}
	first = cleanInline(first)
	if utf8.RuneCountInString(first) > maxDerivedSubject {
		r := []rune(first)
		first = strings.TrimSpace(string(r[:maxDerivedSubject])) + "…"
	}
	if first == "" {
		return "Follow-up"
	}
	return first
}

func cleanInline(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*#\"'"))
}

// stripMarkers removes stray grammar markers so they never leak into a
// heuristic step body.
func stripMarkers(s string) string {
	r := strings.NewReplacer(EmailSeparator, "", FieldOpen, "", FieldClose, "")
	return r.Replace(s)
}

func stepID(s EmailStep) string {
	return uuid.NewSHA1(emailNamespace, []byte(fmt.Sprintf("%d\x00%s\x00%s", s.StepNumber, s.Subject, s.Body))).String()
}

// EmailSequenceGrammar binds the requested count and defaults.
func EmailSequenceGrammar(requested int, defaults EmailDefaults) Grammar[[]EmailStep] {
	return Grammar[[]EmailStep]{
		Name: "email_sequence",
		Parse: func(text string) ([]EmailStep, bool) {
			steps, _ := EmailSequence(text, requested, defaults)
			return steps, len(steps) > 0
		},
	}
}
