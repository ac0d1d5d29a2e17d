package analyzebusiness

import "crm-ai-workers/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["accountId"],
	"anyOf": [
		{"required": ["website"]},
		{"required": ["description"]},
		{"required": ["business"]}
	],
	"properties": {
		"accountId": {"type": "string", "minLength": 1},
		"website": {"type": "string", "minLength": 4, "maxLength": 2048},
		"description": {"type": "string", "minLength": 1, "maxLength": 10000},
		"business": {"type": "object"},
		"minConfidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`)
