package commandcenterreply

import "crm-ai-workers/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["accountId", "question"],
	"properties": {
		"accountId": {"type": "string", "minLength": 1},
		"question": {"type": "string", "minLength": 1, "maxLength": 4000},
		"leads": {"type": "array", "items": {"type": "object"}},
		"stats": {"type": "object"},
		"business": {"type": "object"},
		"history": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["role", "text"],
				"properties": {
					"role": {"type": "string", "enum": ["user", "assistant"]},
					"text": {"type": "string"}
				}
			}
		},
		"stream": {"type": "boolean"}
	}
}`)
