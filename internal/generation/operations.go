package generation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"crm-ai-workers/internal/generation/extract"
	"crm-ai-workers/internal/generation/fallback"
	"crm-ai-workers/internal/generation/prompt"
	"crm-ai-workers/internal/generation/stream"
	"crm-ai-workers/internal/models"
)

const (
	DefaultSequenceSteps = 5
	MaxSequenceSteps     = 10
	DefaultCadenceDays   = 3
	DefaultHorizonDays   = 14
	DefaultOutreachWords = 150
	DefaultBlogWords     = 800

	notSpecified = "not specified"
)

// Common carries the inputs every operation accepts.
type Common struct {
	AccountID string
	Business  *models.BusinessProfile
}

type OutreachRequest struct {
	Common
	Lead     models.Lead
	Channel  string
	Goal     string
	Tone     string
	MaxWords int
}

type EmailSequenceRequest struct {
	Common
	Lead        models.Lead
	Steps       int
	CadenceDays int
	Goal        string
	Tone        string
}

type LeadResearchRequest struct {
	Common
	Lead models.Lead
}

type BusinessAnalysisRequest struct {
	Common
	Website     string
	Description string
}

// ChatRequest is a command-center question. Stats is computed from Leads
// when nil.
type ChatRequest struct {
	Common
	Question string
	Leads    []models.Lead
	Stats    *models.PipelineStats
	History  []models.ConversationTurn
}

type PipelineStrategyRequest struct {
	Common
	Leads       []models.Lead
	Stats       *models.PipelineStats
	Goal        string
	HorizonDays int
}

type BlogRequest struct {
	Common
	Topic    string
	Audience string
	Tone     string
	Keywords []string
	Words    int
}

type ContentImprovementRequest struct {
	Common
	Content     string
	ContentType string
	Goal        string
}

// GenerateOutreachMessage writes a single first-touch message.
func (s *Service) GenerateOutreachMessage(ctx context.Context, req OutreachRequest) AIResponse {
	c := call{
		kind:    KindOutreachMessage,
		account: req.AccountID,
		subs: map[string]string{
			"channel":   orDefault(req.Channel, "email"),
			"goal":      orDefault(req.Goal, "book a short intro call"),
			"tone":      orDefault(req.Tone, businessTone(req.Business)),
			"max_words": strconv.Itoa(positiveOr(req.MaxWords, DefaultOutreachWords)),
			"lead":      prompt.LeadSummary(req.Lead),
		},
		blocks: []prompt.ContextBlock{prompt.BusinessBlock(req.Business), prompt.LeadKnowledgeBlock(req.Lead)},
	}

	resp, err := s.generate(ctx, c, s.unary())
	if err != nil {
		return s.unavailable(ctx, c, resp, err)
	}
	return s.finish(resp)
}

type emailParse struct {
	steps     []extract.EmailStep
	heuristic bool
}

// GenerateEmailSequence writes a multi-step cadence. When the reply holds
// no delimited blocks the steps are segmented heuristically and the
// envelope is marked low confidence.
func (s *Service) GenerateEmailSequence(ctx context.Context, req EmailSequenceRequest) (AIResponse, []extract.EmailStep) {
	steps := positiveOr(req.Steps, DefaultSequenceSteps)
	if steps > MaxSequenceSteps {
		steps = MaxSequenceSteps
	}
	defaults := extract.EmailDefaults{
		Tone:        orDefault(req.Tone, businessTone(req.Business)),
		CadenceDays: positiveOr(req.CadenceDays, DefaultCadenceDays),
	}

	c := call{
		kind:    KindEmailSequence,
		account: req.AccountID,
		subs: map[string]string{
			"steps":        strconv.Itoa(steps),
			"cadence_days": strconv.Itoa(defaults.CadenceDays),
			"goal":         orDefault(req.Goal, "book a short intro call"),
			"tone":         defaults.Tone,
			"lead":         prompt.LeadSummary(req.Lead),
		},
		blocks: []prompt.ContextBlock{prompt.BusinessBlock(req.Business), prompt.LeadKnowledgeBlock(req.Lead)},
	}

	resp, err := s.generate(ctx, c, s.unary())
	if err != nil {
		return s.unavailable(ctx, c, resp, err), nil
	}

	out, ok := extract.Extract(resp.Text, extract.Grammar[emailParse]{
		Name: "email_sequence",
		Parse: func(text string) (emailParse, bool) {
			st, h := extract.EmailSequence(text, steps, defaults)
			return emailParse{steps: st, heuristic: h}, len(st) > 0
		},
	})
	if ok && out.heuristic {
		resp.Confidence = ConfidenceLow
		resp.Notice = "The reply was not in the expected format, so the emails were split automatically. Review them before sending."
	}
	return s.parsed(resp, ok), out.steps
}

// ResearchLead builds a knowledge-base record for a lead using
// search-grounded generation.
func (s *Service) ResearchLead(ctx context.Context, req LeadResearchRequest) (AIResponse, *extract.KnowledgeBaseFields) {
	ourSite := notSpecified
	if req.Business != nil && req.Business.Website != "" {
		ourSite = req.Business.Website
	}
	lead := prompt.LeadSummary(req.Lead)
	if req.Lead.Email != "" {
		lead += "\nEmail: " + req.Lead.Email
	}
	if req.Lead.LinkedIn != "" {
		lead += "\nLinkedIn: " + req.Lead.LinkedIn
	}

	c := call{
		kind:    KindLeadResearch,
		account: req.AccountID,
		subs:    map[string]string{"lead": lead, "our_website": ourSite},
		blocks:  []prompt.ContextBlock{prompt.BusinessBlock(req.Business)},
	}

	resp, err := s.generate(ctx, c, s.unary())
	if err != nil {
		return s.unavailable(ctx, c, resp, err), nil
	}

	kb, ok := extract.Extract(resp.Text, extract.KnowledgeBaseGrammar)
	if !ok {
		return s.parsed(resp, false), nil
	}
	kb.ResearchedAt = s.now().UTC()
	return s.parsed(resp, true), &kb
}

// AnalyzeBusiness infers a business profile, with per-field confidence,
// from a website and/or description.
func (s *Service) AnalyzeBusiness(ctx context.Context, req BusinessAnalysisRequest) (AIResponse, *extract.BusinessAnalysisResult) {
	website, description := req.Website, req.Description
	if req.Business != nil {
		website = orDefault(website, req.Business.Website)
		description = orDefault(description, req.Business.Description)
	}

	c := call{
		kind:    KindBusinessAnalysis,
		account: req.AccountID,
		subs: map[string]string{
			"website":     orDefault(website, notSpecified),
			"description": orDefault(description, notSpecified),
		},
	}

	resp, err := s.generate(ctx, c, s.unary())
	if err != nil {
		return s.unavailable(ctx, c, resp, err), nil
	}

	res, ok := extract.Extract(resp.Text, extract.BusinessAnalysisGrammar)
	if !ok {
		return s.parsed(resp, false), nil
	}
	return s.parsed(resp, true), &res
}

// CommandCenterReply answers a pipeline question. It never returns a
// failure text: when the model is unavailable or credits are denied the
// answer comes from the local template engine.
func (s *Service) CommandCenterReply(ctx context.Context, req ChatRequest) AIResponse {
	c, stats := s.chatCall(req)
	resp, err := s.generate(ctx, c, s.unary())
	if err != nil {
		return s.localAnswer(resp, err, req.Question, stats)
	}
	return s.finish(resp)
}

// StreamCommandCenterReply is CommandCenterReply delivering partial text
// to onChunk as it arrives. After ctx is cancelled onChunk is not called
// again and the in-flight stream is closed.
func (s *Service) StreamCommandCenterReply(ctx context.Context, req ChatRequest, onChunk stream.ChunkFunc) AIResponse {
	c, stats := s.chatCall(req)
	resp, err := s.generate(ctx, c, s.streaming(onChunk))
	if err != nil {
		return s.localAnswer(resp, err, req.Question, stats)
	}
	return s.finish(resp)
}

func (s *Service) chatCall(req ChatRequest) (call, models.PipelineStats) {
	stats := s.stats(req.Stats, req.Leads)
	return call{
		kind:    KindCommandCenter,
		account: req.AccountID,
		subs: map[string]string{
			"question": orDefault(req.Question, "Give me an overview of my pipeline."),
			"pipeline": PipelineSnapshot(stats),
		},
		blocks: []prompt.ContextBlock{
			prompt.BusinessBlock(req.Business),
			prompt.ConversationBlock(req.History, s.historyTurns),
		},
	}, stats
}

// PipelineStrategy produces recommendations, sprint goals, risks and
// priority actions for the pipeline.
func (s *Service) PipelineStrategy(ctx context.Context, req PipelineStrategyRequest) (AIResponse, *extract.PipelineStrategyResult) {
	stats := s.stats(req.Stats, req.Leads)
	c := call{
		kind:    KindPipelineStrategy,
		account: req.AccountID,
		subs: map[string]string{
			"horizon_days": strconv.Itoa(positiveOr(req.HorizonDays, DefaultHorizonDays)),
			"goal":         orDefault(req.Goal, "grow closed-won revenue"),
			"pipeline":     PipelineSnapshot(stats),
		},
		blocks: []prompt.ContextBlock{prompt.BusinessBlock(req.Business)},
	}

	resp, err := s.generate(ctx, c, s.unary())
	if err != nil {
		return s.unavailable(ctx, c, resp, err), nil
	}

	res, ok := extract.Extract(resp.Text, extract.PipelineStrategyGrammar)
	if !ok {
		return s.parsed(resp, false), nil
	}
	return s.parsed(resp, true), &res
}

// GenerateBlogContent writes a Markdown blog post.
func (s *Service) GenerateBlogContent(ctx context.Context, req BlogRequest) AIResponse {
	keywords := notSpecified
	if len(req.Keywords) > 0 {
		keywords = strings.Join(req.Keywords, ", ")
	}
	c := call{
		kind:    KindBlogContent,
		account: req.AccountID,
		subs: map[string]string{
			"topic":    req.Topic,
			"audience": orDefault(req.Audience, businessAudience(req.Business)),
			"tone":     orDefault(req.Tone, businessTone(req.Business)),
			"words":    strconv.Itoa(positiveOr(req.Words, DefaultBlogWords)),
			"keywords": keywords,
		},
		blocks: []prompt.ContextBlock{prompt.BusinessBlock(req.Business)},
	}

	resp, err := s.generate(ctx, c, s.unary())
	if err != nil {
		return s.unavailable(ctx, c, resp, err)
	}
	return s.finish(resp)
}

// SuggestContentImprovements reviews a piece of content and returns
// concrete edits.
func (s *Service) SuggestContentImprovements(ctx context.Context, req ContentImprovementRequest) (AIResponse, []extract.ContentSuggestion) {
	c := call{
		kind:    KindContentImprovements,
		account: req.AccountID,
		subs: map[string]string{
			"content_type": orDefault(req.ContentType, "content"),
			"goal":         orDefault(req.Goal, "make it clearer and more persuasive"),
			"content":      req.Content,
		},
		blocks: []prompt.ContextBlock{prompt.BusinessBlock(req.Business)},
	}

	resp, err := s.generate(ctx, c, s.unary())
	if err != nil {
		return s.unavailable(ctx, c, resp, err), nil
	}

	list, ok := extract.Extract(resp.Text, extract.ContentSuggestionsGrammar)
	return s.parsed(resp, ok), list
}

func (s *Service) stats(given *models.PipelineStats, leads []models.Lead) models.PipelineStats {
	if given != nil {
		return *given
	}
	return fallback.Summarize(leads, s.now())
}

// PipelineSnapshot renders stats as the plain-text block used by the
// pipeline prompts.
func PipelineSnapshot(st models.PipelineStats) string {
	if st.TotalLeads == 0 {
		return "The pipeline has no leads."
	}

	lines := []string{
		fmt.Sprintf("Total leads: %d (%d active, %d won, %d lost)", st.TotalLeads, st.ActiveLeads, st.WonLeads, st.LostLeads),
		fmt.Sprintf("Temperature: %d hot, %d warm, %d cold", st.HotLeads, st.WarmLeads, st.ColdLeads),
		fmt.Sprintf("Stale (no contact in 14+ days): %d", st.StaleLeads),
		fmt.Sprintf("New this week: %d", st.NewThisWeek),
		fmt.Sprintf("Average score: %.1f", st.AverageScore),
		fmt.Sprintf("Conversion rate: %.1f%%", st.ConversionRate),
		fmt.Sprintf("Open pipeline value: $%.0f", st.PipelineValue),
	}
	if len(st.LeadsByStatus) > 0 {
		statuses := make([]string, 0, len(st.LeadsByStatus))
		for status := range st.LeadsByStatus {
			statuses = append(statuses, string(status))
		}
		sort.Strings(statuses)
		parts := make([]string, 0, len(statuses))
		for _, status := range statuses {
			parts = append(parts, fmt.Sprintf("%s=%d", status, st.LeadsByStatus[models.LeadStatus(status)]))
		}
		lines = append(lines, "By stage: "+strings.Join(parts, ", "))
	}
	if len(st.TopLeads) > 0 {
		lines = append(lines, "Top leads: "+strings.Join(st.TopLeads, ", "))
	}
	if len(st.StaleLeadNames) > 0 {
		lines = append(lines, "Longest without contact: "+strings.Join(st.StaleLeadNames, ", "))
	}
	if st.ContactedSamples > 0 {
		lines = append(lines, fmt.Sprintf("Most contacts happen on %s around %02d:00", st.BestContactDay, st.BestContactHour))
	}
	return strings.Join(lines, "\n")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func businessTone(b *models.BusinessProfile) string {
	if b != nil && b.Tone != "" {
		return b.Tone
	}
	return "professional"
}

func businessAudience(b *models.BusinessProfile) string {
	if b != nil && b.TargetAudience != "" {
		return b.TargetAudience
	}
	return "B2B decision makers"
}
