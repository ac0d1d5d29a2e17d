package generateoutreachmessage

import (
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

type Input struct {
	aicontent.Common
	LeadID   string       `json:"leadId,omitempty"`
	Lead     *models.Lead `json:"lead,omitempty"`
	Channel  string       `json:"channel,omitempty"`
	Goal     string       `json:"goal,omitempty"`
	Tone     string       `json:"tone,omitempty"`
	MaxWords int          `json:"maxWords,omitempty"`
}

// Message is the generated first touch, ready to hand to a sender.
type Message struct {
	LeadID    string `json:"leadId"`
	Channel   string `json:"channel"`
	Body      string `json:"body"`
	WordCount int    `json:"wordCount"`
}

type Output = aicontent.Output[*Message]
