package generateblogcontent

import "crm-ai-workers/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["accountId", "topic"],
	"properties": {
		"accountId": {"type": "string", "minLength": 1},
		"topic": {"type": "string", "minLength": 3, "maxLength": 300},
		"audience": {"type": "string", "maxLength": 300},
		"tone": {"type": "string", "maxLength": 50},
		"keywords": {"type": "array", "items": {"type": "string", "minLength": 1}, "maxItems": 20},
		"words": {"type": "integer", "minimum": 200, "maximum": 3000},
		"business": {"type": "object"}
	}
}`)
