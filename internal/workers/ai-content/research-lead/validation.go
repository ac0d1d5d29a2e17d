package researchlead

import "crm-ai-workers/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["accountId"],
	"anyOf": [{"required": ["leadId"]}, {"required": ["lead"]}],
	"properties": {
		"accountId": {"type": "string", "minLength": 1},
		"leadId": {"type": "string", "minLength": 1},
		"lead": {"type": "object", "required": ["id"]},
		"business": {"type": "object"}
	}
}`)
