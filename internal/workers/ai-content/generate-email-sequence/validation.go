package generateemailsequence

import "crm-ai-workers/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["accountId"],
	"anyOf": [{"required": ["leadId"]}, {"required": ["lead"]}],
	"properties": {
		"accountId": {"type": "string", "minLength": 1},
		"leadId": {"type": "string", "minLength": 1},
		"lead": {"type": "object"},
		"business": {"type": "object"},
		"steps": {"type": "integer", "minimum": 1, "maximum": 10},
		"cadenceDays": {"type": "integer", "minimum": 1, "maximum": 30},
		"goal": {"type": "string", "maxLength": 500},
		"tone": {"type": "string", "maxLength": 50}
	}
}`)
