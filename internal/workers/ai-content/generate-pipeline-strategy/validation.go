package generatepipelinestrategy

import "crm-ai-workers/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["accountId"],
	"properties": {
		"accountId": {"type": "string", "minLength": 1},
		"leads": {"type": "array", "items": {"type": "object"}},
		"stats": {"type": "object"},
		"business": {"type": "object"},
		"goal": {"type": "string", "maxLength": 500},
		"horizonDays": {"type": "integer", "minimum": 1, "maximum": 365}
	}
}`)
