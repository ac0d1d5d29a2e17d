package generateemailsequence

import (
	"crm-ai-workers/internal/generation/extract"
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

type Input struct {
	aicontent.Common
	LeadID      string       `json:"leadId,omitempty"`
	Lead        *models.Lead `json:"lead,omitempty"`
	Steps       int          `json:"steps,omitempty"`
	CadenceDays int          `json:"cadenceDays,omitempty"`
	Goal        string       `json:"goal,omitempty"`
	Tone        string       `json:"tone,omitempty"`
}

type Sequence struct {
	LeadID string              `json:"leadId"`
	Steps  []extract.EmailStep `json:"steps"`
	// Segmented is set when the steps were split from unstructured text and
	// need a review before sending.
	Segmented bool `json:"segmented"`
}

type Output = aicontent.Output[*Sequence]
