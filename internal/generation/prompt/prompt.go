// Package prompt assembles prompt text from a template, literal
// substitutions and optional context blocks. Nothing here performs I/O
// except the Store lookups made by Resolve.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"crm-ai-workers/internal/models"
)

// BlockKind orders context blocks. Blocks are always appended in ascending
// kind order regardless of how the caller passed them.
type BlockKind int

const (
	KindBusinessProfile BlockKind = iota
	KindLeadKnowledge
	KindConversation
)

func (k BlockKind) String() string {
	switch k {
	case KindBusinessProfile:
		return "business_profile"
	case KindLeadKnowledge:
		return "lead_knowledge"
	case KindConversation:
		return "conversation"
	default:
		return fmt.Sprintf("block(%d)", int(k))
	}
}

type ContextBlock struct {
	Kind  BlockKind
	Title string
	Body  string
}

func (b ContextBlock) empty() bool {
	return strings.TrimSpace(b.Body) == ""
}

// Build replaces the first occurrence of each {{key}} in template with its
// value, then appends the non-empty blocks. Placeholders without a
// substitution are left in the output untouched.
func Build(template string, substitutions map[string]string, blocks ...ContextBlock) string {
	out := substitute(template, substitutions)

	ordered := make([]ContextBlock, 0, len(blocks))
	for _, b := range blocks {
		if !b.empty() {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Kind < ordered[j].Kind })

	if len(ordered) == 0 {
		return out
	}

	var sb strings.Builder
	sb.WriteString(out)
	for _, b := range ordered {
		title := b.Title
		if title == "" {
			title = b.Kind.String()
		}
		sb.WriteString("\n\n--- ")
		sb.WriteString(strings.ToUpper(title))
		sb.WriteString(" ---\n")
		sb.WriteString(strings.TrimSpace(b.Body))
	}
	return sb.String()
}

// BusinessBlock renders the seller's profile. A nil or blank profile yields
// an empty block that Build skips.
func BusinessBlock(b *models.BusinessProfile) ContextBlock {
	block := ContextBlock{Kind: KindBusinessProfile, Title: "Business context"}
	if b.IsZero() {
		return block
	}

	var lines []string
	add := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Company", b.CompanyName)
	add("Industry", b.Industry)
	add("About", b.Description)
	add("Value proposition", b.ValueProp)
	add("Target audience", b.TargetAudience)
	add("Products", strings.Join(b.Products, ", "))
	add("Differentiators", strings.Join(b.Differentiators, ", "))
	add("Website", b.Website)
	add("Preferred tone", b.Tone)

	block.Body = strings.Join(lines, "\n")
	return block
}

// LeadKnowledgeBlock carries previously researched material about a lead.
func LeadKnowledgeBlock(l models.Lead) ContextBlock {
	block := ContextBlock{Kind: KindLeadKnowledge, Title: "What we know about " + l.FullName()}
	var parts []string
	if s := strings.TrimSpace(l.KnowledgeExcerpt); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(l.Notes); s != "" {
		parts = append(parts, "Notes: "+s)
	}
	block.Body = strings.Join(parts, "\n")
	return block
}

// ConversationBlock keeps the last limit turns, oldest first.
func ConversationBlock(turns []models.ConversationTurn, limit int) ContextBlock {
	block := ContextBlock{Kind: KindConversation, Title: "Previous conversation"}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	var sb strings.Builder
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		speaker := "User"
		if t.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		sb.WriteString(speaker)
		sb.WriteString(": ")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	block.Body = sb.String()
	return block
}

// LeadSummary is the one-paragraph lead description shared by several
// templates.
func LeadSummary(l models.Lead) string {
	var parts []string
	parts = append(parts, "Name: "+l.FullName())
	if l.Title != "" {
		parts = append(parts, "Title: "+l.Title)
	}
	if l.Company != "" {
		parts = append(parts, "Company: "+l.Company)
	}
	if l.Industry != "" {
		parts = append(parts, "Industry: "+l.Industry)
	}
	if l.Location != "" {
		parts = append(parts, "Location: "+l.Location)
	}
	if l.Website != "" {
		parts = append(parts, "Website: "+l.Website)
	}
	if l.Status != "" {
		parts = append(parts, "Stage: "+string(l.Status))
	}
	parts = append(parts, fmt.Sprintf("Score: %d (%s)", l.Score, l.Temperature()))
	if l.Value > 0 {
		parts = append(parts, fmt.Sprintf("Deal value: $%.0f", l.Value))
	}
	return strings.Join(parts, "\n")
}

var placeholder = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// substitute scans template once. Substituted values are never rescanned,
// so a value that itself contains {{key}} stays literal.
func substitute(template string, substitutions map[string]string) string {
	if len(substitutions) == 0 {
		return template
	}
	used := make(map[string]bool, len(substitutions))
	return placeholder.ReplaceAllStringFunc(template, func(token string) string {
		key := token[2 : len(token)-2]
		v, ok := substitutions[key]
		if !ok || used[key] {
			return token
		}
		used[key] = true
		return v
	})
}
