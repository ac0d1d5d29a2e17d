// Package fallback answers pipeline questions from local aggregates when the
// remote model cannot be used.
package fallback

import (
	"fmt"
	"regexp"
	"strings"

	"crm-ai-workers/internal/common/metrics"
	"crm-ai-workers/internal/models"
)

// Topic names, also used as the metric label.
const (
	TopicHealth     = "pipeline_health"
	TopicHotLeads   = "hot_leads"
	TopicStale      = "stale_leads"
	TopicBestTime   = "best_time"
	TopicConversion = "conversion"
	TopicValue      = "pipeline_value"
	TopicGeneral    = "general"
)

type rule struct {
	topic    string
	keywords []string
	render   func(models.PipelineStats) string
}

// Engine is a keyword dispatcher over a fixed rule list. The first rule
// with a matching keyword wins; TopicGeneral always matches last.
type Engine struct {
	rules []rule
}

func New() *Engine {
	return &Engine{rules: []rule{
		{TopicStale, []string{"stale", "going cold", "gone cold", "neglect", "follow up", "followup", "haven t contacted", "not contacted", "inactive"}, renderStale},
		{TopicBestTime, []string{"best time", "when to contact", "when should i", "what time", "which day", "best day", "timing"}, renderBestTime},
		{TopicHotLeads, []string{"hot lead", "hot leads", "hottest", "top lead", "top leads", "best lead", "best leads", "prioritize", "priority", "focus on"}, renderHot},
		{TopicConversion, []string{"conversion", "convert", "win rate", "close rate", "closing rate", "won", "lost"}, renderConversion},
		{TopicValue, []string{"pipeline value", "deal value", "revenue", "worth", "forecast", "how much"}, renderValue},
		{TopicHealth, []string{"pipeline health", "health", "how is my pipeline", "how s my pipeline", "overview", "summary", "status"}, renderHealth},
	}}
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

func normalize(s string) string {
	return " " + strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(s), " ")) + " "
}

// Topic returns the rule a request would be dispatched to.
func (e *Engine) Topic(signal string) string {
	topic, _ := e.match(signal)
	return topic.topic
}

func (e *Engine) match(signal string) (rule, bool) {
	norm := normalize(signal)
	for _, r := range e.rules {
		for _, kw := range r.keywords {
			if strings.Contains(norm, " "+kw+" ") {
				return r, true
			}
		}
	}
	return rule{topic: TopicGeneral, render: renderGeneral}, false
}

// Generate renders an answer for signal from stats alone. The result is
// never empty.
func (e *Engine) Generate(signal string, stats models.PipelineStats) string {
	r, _ := e.match(signal)
	metrics.FallbackAnswers.WithLabelValues(r.topic).Inc()

	text := strings.TrimSpace(r.render(stats))
	if text == "" {
		text = strings.TrimSpace(renderGeneral(stats))
	}
	return text
}

func renderHealth(s models.PipelineStats) string {
	if s.TotalLeads == 0 {
		return "Your pipeline is empty right now. Add or import leads and I can assess its health."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline health: %d leads in total, %d active.\n", s.TotalLeads, s.ActiveLeads)
	fmt.Fprintf(&b, "- Temperature: %d hot, %d warm, %d cold.\n", s.HotLeads, s.WarmLeads, s.ColdLeads)
	fmt.Fprintf(&b, "- Average lead score: %.1f.\n", s.AverageScore)
	if s.StaleLeads > 0 {
		fmt.Fprintf(&b, "- %d active leads have had no contact in over two weeks.\n", s.StaleLeads)
	}
	if s.NewThisWeek > 0 {
		fmt.Fprintf(&b, "- %d new leads this week.\n", s.NewThisWeek)
	}
	switch {
	case s.ActiveLeads > 0 && s.StaleLeads*2 > s.ActiveLeads:
		b.WriteString("More than half of your active pipeline is stale. Re-engaging those leads is the top priority.")
	case s.HotLeads == 0 && s.ActiveLeads > 0:
		b.WriteString("No leads are hot yet. Focus on qualifying your warm leads.")
	default:
		b.WriteString("Overall the pipeline looks balanced. Keep working your hot leads first.")
	}
	return b.String()
}

func renderHot(s models.PipelineStats) string {
	if s.HotLeads == 0 {
		if s.WarmLeads > 0 {
			return fmt.Sprintf("You have no hot leads right now, but %d warm leads could be moved up with a timely follow-up.", s.WarmLeads)
		}
		return "You have no hot leads right now. Start by qualifying your newest leads."
	}
	msg := fmt.Sprintf("You have %d hot leads (score 70 or above).", s.HotLeads)
	if len(s.TopLeads) > 0 {
		msg += " Start with: " + strings.Join(s.TopLeads, ", ") + "."
	}
	return msg
}

func renderStale(s models.PipelineStats) string {
	if s.StaleLeads == 0 {
		return "No active leads have gone more than two weeks without contact. Nice work staying on top of follow-ups."
	}
	msg := fmt.Sprintf("%d active leads have had no contact in over two weeks.", s.StaleLeads)
	if len(s.StaleLeadNames) > 0 {
		msg += " The longest-waiting are: " + strings.Join(s.StaleLeadNames, ", ") + "."
	}
	return msg + " A short check-in email is a low-effort way to re-open the conversation."
}

func renderBestTime(s models.PipelineStats) string {
	if s.ContactedSamples == 0 || s.BestContactHour < 0 {
		return "There isn't enough contact history yet to pick a best time. Mid-morning on Tuesday to Thursday is a common starting point."
	}
	return fmt.Sprintf("Based on %d recorded contacts, your leads are most often reached on %s around %s.",
		s.ContactedSamples, s.BestContactDay, hourLabel(s.BestContactHour))
}

func renderConversion(s models.PipelineStats) string {
	closed := s.WonLeads + s.LostLeads
	if closed == 0 {
		return "No leads have been closed yet, so there is no conversion rate to report."
	}
	return fmt.Sprintf("You have won %d of %d closed leads, a conversion rate of %.1f%%.", s.WonLeads, closed, s.ConversionRate)
}

func renderValue(s models.PipelineStats) string {
	msg := fmt.Sprintf("Open pipeline value is %s across %d active leads.", money(s.PipelineValue), s.ActiveLeads)
	if s.WonValue > 0 {
		msg += fmt.Sprintf(" Closed-won value so far is %s.", money(s.WonValue))
	}
	return msg
}

func renderGeneral(s models.PipelineStats) string {
	if s.TotalLeads == 0 {
		return "I can't reach the AI assistant right now. Once you add leads I can summarise your pipeline, highlight hot leads and flag stale ones."
	}
	return fmt.Sprintf("I can't reach the AI assistant right now, but here is a quick snapshot: %d active leads (%d hot), %d stale, open value %s. Ask about pipeline health, hot leads, stale leads or the best time to contact for more detail.",
		s.ActiveLeads, s.HotLeads, s.StaleLeads, money(s.PipelineValue))
}

func hourLabel(h int) string {
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}

func money(v float64) string {
	whole := int64(v + 0.5)
	s := fmt.Sprintf("%d", whole)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 && s[i-1] != '-' {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return "$" + string(out)
}
