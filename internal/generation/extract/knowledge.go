package extract

import "strings"

// Field names used by the lead research and pipeline strategy templates.
const (
	FieldTitle              = "TITLE"
	FieldIndustry           = "INDUSTRY"
	FieldEmployeeCount      = "EMPLOYEE_COUNT"
	FieldLocation           = "LOCATION"
	FieldCompanyOverview    = "COMPANY_OVERVIEW"
	FieldTalkingPoints      = "TALKING_POINTS"
	FieldOutreachAngle      = "OUTREACH_ANGLE"
	FieldRiskFactors        = "RISK_FACTORS"
	FieldMentionedOnWebsite = "MENTIONED_ON_WEBSITE"
	FieldResearchBrief      = "RESEARCH_BRIEF"

	FieldRecommendations = "RECOMMENDATIONS"
	FieldSprintGoals     = "SPRINT_GOALS"
	FieldRisks           = "RISKS"
	FieldPriorityActions = "PRIORITY_ACTIONS"
)

type fieldSetter[T any] struct {
	name string
	set  func(rec *T, text string) bool
}

func scalar[T any](name string, dst func(*T) *string) fieldSetter[T] {
	return fieldSetter[T]{name: name, set: func(rec *T, text string) bool {
		v, ok := Field(text, name)
		if ok {
			*dst(rec) = v
		}
		return ok
	}}
}

func list[T any](name string, dst func(*T) *[]string) fieldSetter[T] {
	return fieldSetter[T]{name: name, set: func(rec *T, text string) bool {
		v, ok := ListField(text, name)
		if ok {
			*dst(rec) = v
		}
		return ok
	}}
}

func applyFields[T any](text string, setters []fieldSetter[T]) (T, bool) {
	var rec T
	matched := false
	for _, s := range setters {
		if s.set(&rec, text) {
			matched = true
		}
	}
	return rec, matched
}

var knowledgeBaseSetters = []fieldSetter[KnowledgeBaseFields]{
	scalar(FieldTitle, func(k *KnowledgeBaseFields) *string { return &k.Title }),
	scalar(FieldIndustry, func(k *KnowledgeBaseFields) *string { return &k.Industry }),
	scalar(FieldEmployeeCount, func(k *KnowledgeBaseFields) *string { return &k.EmployeeCount }),
	scalar(FieldLocation, func(k *KnowledgeBaseFields) *string { return &k.Location }),
	scalar(FieldCompanyOverview, func(k *KnowledgeBaseFields) *string { return &k.CompanyOverview }),
	list(FieldTalkingPoints, func(k *KnowledgeBaseFields) *[]string { return &k.TalkingPoints }),
	scalar(FieldOutreachAngle, func(k *KnowledgeBaseFields) *string { return &k.OutreachAngle }),
	list(FieldRiskFactors, func(k *KnowledgeBaseFields) *[]string { return &k.RiskFactors }),
	{name: FieldMentionedOnWebsite, set: func(k *KnowledgeBaseFields, text string) bool {
		v, ok := Field(text, FieldMentionedOnWebsite)
		if !ok {
			return false
		}
		b, ok := parseYesNo(v)
		if ok {
			k.MentionedOnWebsite = &b
		}
		return ok
	}},
	scalar(FieldResearchBrief, func(k *KnowledgeBaseFields) *string { return &k.ResearchBrief }),
}

// KnowledgeBase parses a lead research reply. ResearchedAt is left for the
// caller to stamp.
func KnowledgeBase(text string) (KnowledgeBaseFields, bool) {
	return applyFields(text, knowledgeBaseSetters)
}

var pipelineStrategySetters = []fieldSetter[PipelineStrategyResult]{
	list(FieldRecommendations, func(p *PipelineStrategyResult) *[]string { return &p.Recommendations }),
	list(FieldSprintGoals, func(p *PipelineStrategyResult) *[]string { return &p.SprintGoals }),
	list(FieldRisks, func(p *PipelineStrategyResult) *[]string { return &p.Risks }),
	list(FieldPriorityActions, func(p *PipelineStrategyResult) *[]string { return &p.PriorityActions }),
}

func PipelineStrategy(text string) (PipelineStrategyResult, bool) {
	return applyFields(text, pipelineStrategySetters)
}

func parseYesNo(v string) (bool, bool) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(v), ".!")) {
	case "yes", "true", "y":
		return true, true
	case "no", "false", "n":
		return false, true
	default:
		return false, false
	}
}

var (
	KnowledgeBaseGrammar    = Grammar[KnowledgeBaseFields]{Name: "knowledge_base", Parse: KnowledgeBase}
	PipelineStrategyGrammar = Grammar[PipelineStrategyResult]{Name: "pipeline_strategy", Parse: PipelineStrategy}
)
