package suggestcontentimprovements

import "crm-ai-workers/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["accountId", "content"],
	"properties": {
		"accountId": {"type": "string", "minLength": 1},
		"content": {"type": "string", "minLength": 1, "maxLength": 50000},
		"contentType": {"type": "string", "enum": ["email", "blog", "landing_page", "social_post", "content"]},
		"goal": {"type": "string", "maxLength": 500},
		"applyRewrites": {"type": "boolean"},
		"business": {"type": "object"}
	}
}`)
