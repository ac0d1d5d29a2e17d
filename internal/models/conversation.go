package models

// ConversationRole identifies the speaker of a prior conversation turn.
type ConversationRole string

const (
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
)

type ConversationTurn struct {
	Role ConversationRole `json:"role"`
	Text string           `json:"text"`
}
