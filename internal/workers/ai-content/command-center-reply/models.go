package commandcenterreply

import (
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

type Input struct {
	aicontent.Common
	Question string                    `json:"question"`
	Leads    []models.Lead             `json:"leads,omitempty"`
	Stats    *models.PipelineStats     `json:"stats,omitempty"`
	History  []models.ConversationTurn `json:"history,omitempty"`
	// Stream asks the model for a streamed reply.
	Stream bool `json:"stream,omitempty"`
}

type Answer struct {
	Text string `json:"text"`
	// Source is "model" or "template" for locally computed answers.
	Source string `json:"source"`
	Chunks int    `json:"chunks,omitempty"`
}

const (
	SourceModel    = "model"
	SourceTemplate = "template"
)

type Output = aicontent.Output[*Answer]
