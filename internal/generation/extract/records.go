package extract

import "time"

// EmailStep is one message of a generated outreach sequence.
type EmailStep struct {
	ID         string `json:"id"`
	StepNumber int    `json:"stepNumber"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	DelayDays  int    `json:"delayDays"`
	Tone       string `json:"tone,omitempty"`
}

// KnowledgeBaseFields is the research record kept against a lead. Empty
// strings and nil slices mean the model did not supply the field.
type KnowledgeBaseFields struct {
	Title              string    `json:"title,omitempty"`
	Industry           string    `json:"industry,omitempty"`
	EmployeeCount      string    `json:"employeeCount,omitempty"`
	Location           string    `json:"location,omitempty"`
	CompanyOverview    string    `json:"companyOverview,omitempty"`
	TalkingPoints      []string  `json:"talkingPoints,omitempty"`
	OutreachAngle      string    `json:"outreachAngle,omitempty"`
	RiskFactors        []string  `json:"riskFactors,omitempty"`
	MentionedOnWebsite *bool     `json:"mentionedOnWebsite,omitempty"`
	ResearchBrief      string    `json:"researchBrief,omitempty"`
	ResearchedAt       time.Time `json:"researchedAt"`
}

// ScoredField is a value the model inferred together with its confidence.
type ScoredField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type ScoredList struct {
	Value      []string `json:"value"`
	Confidence float64  `json:"confidence"`
}

// BusinessAnalysisResult is what the model could infer about a business
// from its website or description. Nil fields were not inferred.
type BusinessAnalysisResult struct {
	CompanyName       *ScoredField      `json:"companyName,omitempty"`
	Industry          *ScoredField      `json:"industry,omitempty"`
	Description       *ScoredField      `json:"description,omitempty"`
	TargetAudience    *ScoredField      `json:"targetAudience,omitempty"`
	ValueProposition  *ScoredField      `json:"valueProposition,omitempty"`
	Location          *ScoredField      `json:"location,omitempty"`
	Tone              *ScoredField      `json:"tone,omitempty"`
	Products          *ScoredList       `json:"products,omitempty"`
	SocialLinks       map[string]string `json:"socialLinks,omitempty"`
	FollowUpQuestions []string          `json:"followUpQuestions,omitempty"`
}

type ContentSuggestion struct {
	Type          string `json:"type"`
	Category      string `json:"category"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	OriginalText  string `json:"originalText,omitempty"`
	Replacement   string `json:"replacement,omitempty"`
	ImpactLabel   string `json:"impactLabel,omitempty"`
	ImpactPercent int    `json:"impactPercent"`
}

type PipelineStrategyResult struct {
	Recommendations []string `json:"recommendations,omitempty"`
	SprintGoals     []string `json:"sprintGoals,omitempty"`
	Risks           []string `json:"risks,omitempty"`
	PriorityActions []string `json:"priorityActions,omitempty"`
}
