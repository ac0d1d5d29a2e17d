package analyzebusiness

import (
	"crm-ai-workers/internal/generation/extract"
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

type Input struct {
	aicontent.Common
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
	// MinConfidence overrides the threshold for the suggested profile.
	MinConfidence float64 `json:"minConfidence,omitempty"`
}

type Analysis struct {
	Result *extract.BusinessAnalysisResult `json:"result"`
	// Profile holds the confidently inferred fields, ready to review and
	// save as the account's business profile.
	Profile *models.BusinessProfile `json:"profile,omitempty"`
}

type Output = aicontent.Output[*Analysis]
