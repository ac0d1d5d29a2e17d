package generatepipelinestrategy

import (
	"crm-ai-workers/internal/generation/extract"
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

type Input struct {
	aicontent.Common
	Leads       []models.Lead         `json:"leads,omitempty"`
	Stats       *models.PipelineStats `json:"stats,omitempty"`
	Goal        string                `json:"goal,omitempty"`
	HorizonDays int                   `json:"horizonDays,omitempty"`
}

type Strategy struct {
	*extract.PipelineStrategyResult
	// Stats is the snapshot the strategy was built from.
	Stats models.PipelineStats `json:"stats"`
}

type Output = aicontent.Output[*Strategy]
