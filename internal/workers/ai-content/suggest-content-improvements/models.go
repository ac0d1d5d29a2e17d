package suggestcontentimprovements

import (
	"crm-ai-workers/internal/generation/extract"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

type Input struct {
	aicontent.Common
	Content     string `json:"content"`
	ContentType string `json:"contentType,omitempty"`
	Goal        string `json:"goal,omitempty"`
	// ApplyRewrites produces a revised draft with every rewrite whose
	// original text was found applied.
	ApplyRewrites bool `json:"applyRewrites,omitempty"`
}

type Improvements struct {
	// Suggestions are ordered by impact, highest first.
	Suggestions []extract.ContentSuggestion `json:"suggestions"`
	Revised     string                      `json:"revised,omitempty"`
	Applied     int                         `json:"applied,omitempty"`
}

type Output = aicontent.Output[*Improvements]
