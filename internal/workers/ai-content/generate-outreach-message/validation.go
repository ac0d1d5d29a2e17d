package generateoutreachmessage

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
		"channel": {"type": "string", "enum": ["email", "linkedin", "sms"]},
		"goal": {"type": "string", "maxLength": 500},
		"tone": {"type": "string", "maxLength": 50},
		"maxWords": {"type": "integer", "minimum": 20, "maximum": 1000}
	}
}`)
