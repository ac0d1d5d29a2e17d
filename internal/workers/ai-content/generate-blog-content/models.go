package generateblogcontent

import aicontent "crm-ai-workers/internal/workers/ai-content"

type Input struct {
	aicontent.Common
	Topic    string   `json:"topic"`
	Audience string   `json:"audience,omitempty"`
	Tone     string   `json:"tone,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Words    int      `json:"words,omitempty"`
}

type Post struct {
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
	WordCount int    `json:"wordCount"`
	// MissingKeywords lists requested keywords the post never mentions.
	MissingKeywords []string `json:"missingKeywords,omitempty"`
}

type Output = aicontent.Output[*Post]
