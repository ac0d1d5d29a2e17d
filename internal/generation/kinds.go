package generation

import (
	"fmt"
	"time"
)

// Kind identifies a generation operation. Template, system instruction,
// resilience class, retry policy and credit cost all come from the switch in
// Kind.spec, so a new kind needs exactly one new case there.
type Kind int

const (
	KindOutreachMessage Kind = iota + 1
	KindEmailSequence
	KindLeadResearch
	KindBusinessAnalysis
	KindCommandCenter
	KindPipelineStrategy
	KindBlogContent
	KindContentImprovements
)

// AllKinds lists every operation kind in declaration order.
var AllKinds = []Kind{
	KindOutreachMessage,
	KindEmailSequence,
	KindLeadResearch,
	KindBusinessAnalysis,
	KindCommandCenter,
	KindPipelineStrategy,
	KindBlogContent,
	KindContentImprovements,
}

// Resilience is what an operation returns once the remote call is
// unavailable.
type Resilience int

const (
	// ExplainUnavailable returns a sentinel-prefixed failure text and no
	// payload.
	ExplainUnavailable Resilience = iota
	// LocalFallback answers from local pipeline statistics instead.
	LocalFallback
)

const (
	singleShotTimeout = 15 * time.Second
	chatTimeout       = 20 * time.Second
	researchTimeout   = 30 * time.Second
)

type kindSpec struct {
	name        string
	template    string
	system      string
	resilience  Resilience
	timeout     time.Duration
	cost        int
	temperature float32
	maxTokens   int
	search      bool
	jsonReply   bool
}

func (k Kind) spec() kindSpec {
	switch k {
	case KindOutreachMessage:
		return kindSpec{
			name: "outreach_message", template: outreachTemplate, system: systemCopywriter,
			resilience: ExplainUnavailable, timeout: singleShotTimeout, cost: 1,
			temperature: 0.8, maxTokens: 1024,
		}
	case KindEmailSequence:
		return kindSpec{
			name: "email_sequence", template: emailSequenceTemplate, system: systemCopywriter,
			resilience: ExplainUnavailable, timeout: singleShotTimeout, cost: 2,
			temperature: 0.7, maxTokens: 4096,
		}
	case KindLeadResearch:
		return kindSpec{
			name: "lead_research", template: leadResearchTemplate, system: systemResearcher,
			resilience: ExplainUnavailable, timeout: researchTimeout, cost: 3,
			temperature: 0.3, maxTokens: 2048, search: true,
		}
	case KindBusinessAnalysis:
		return kindSpec{
			name: "business_analysis", template: businessAnalysisTemplate, system: systemAnalyst,
			resilience: ExplainUnavailable, timeout: researchTimeout, cost: 2,
			temperature: 0.2, maxTokens: 2048, search: true,
		}
	case KindCommandCenter:
		return kindSpec{
			name: "command_center", template: commandCenterTemplate, system: systemAdvisor,
			resilience: LocalFallback, timeout: chatTimeout, cost: 1,
			temperature: 0.5, maxTokens: 1024,
		}
	case KindPipelineStrategy:
		return kindSpec{
			name: "pipeline_strategy", template: pipelineStrategyTemplate, system: systemAdvisor,
			resilience: ExplainUnavailable, timeout: chatTimeout, cost: 2,
			temperature: 0.4, maxTokens: 2048,
		}
	case KindBlogContent:
		return kindSpec{
			name: "blog_content", template: blogTemplate, system: systemCopywriter,
			resilience: ExplainUnavailable, timeout: researchTimeout, cost: 3,
			temperature: 0.8, maxTokens: 4096,
		}
	case KindContentImprovements:
		return kindSpec{
			name: "content_improvements", template: contentImprovementsTemplate, system: systemEditor,
			resilience: ExplainUnavailable, timeout: singleShotTimeout, cost: 1,
			temperature: 0.3, maxTokens: 2048, jsonReply: true,
		}
	default:
		panic(fmt.Sprintf("generation: unknown kind %d", int(k)))
	}
}

func (k Kind) String() string {
	if k < KindOutreachMessage || k > KindContentImprovements {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return k.spec().name
}

// PromptName is the key used to look the template up in the prompt store.
func (k Kind) PromptName() string { return k.String() }

func (k Kind) Resilience() Resilience { return k.spec().resilience }

// Cost is the default number of credits the operation consumes.
func (k Kind) Cost() int { return k.spec().cost }

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown generation kind %q", s)
}
