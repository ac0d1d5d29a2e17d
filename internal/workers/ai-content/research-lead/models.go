package researchlead

import (
	"crm-ai-workers/internal/generation/extract"
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

type Input struct {
	aicontent.Common
	LeadID string       `json:"leadId,omitempty"`
	Lead   *models.Lead `json:"lead,omitempty"`
}

type Research struct {
	LeadID    string                       `json:"leadId"`
	Knowledge *extract.KnowledgeBaseFields `json:"knowledge"`
	// Excerpt is a short text the process can store on the lead and feed
	// back into later prompts.
	Excerpt string `json:"excerpt,omitempty"`
}

type Output = aicontent.Output[*Research]
