package generation

import "strings"

// FailureKind classifies why an envelope does not carry a normal answer.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureTransport  FailureKind = "transport"
	FailureQuota      FailureKind = "quota"
	FailureEmptyReply FailureKind = "empty_reply"
	FailureParse      FailureKind = "parse"
)

const (
	ConfidenceNormal = "normal"
	ConfidenceLow    = "low"
)

// Sentinels prefixing the text of an unavailable Class A response.
const (
	SentinelPrefix     = "AI_UNAVAILABLE["
	SentinelOverloaded = SentinelPrefix + "overloaded]"
	SentinelFailed     = SentinelPrefix + "failed]"
	SentinelQuota      = SentinelPrefix + "quota]"
)

// AIResponse is the envelope every operation returns, whatever happened.
type AIResponse struct {
	Text          string      `json:"text"`
	TokensUsed    int         `json:"tokensUsed"`
	ModelName     string      `json:"modelName"`
	PromptName    string      `json:"promptName"`
	PromptVersion int         `json:"promptVersion"`
	Kind          Kind        `json:"kind"`
	Failure       FailureKind `json:"failure,omitempty"`
	// Notice is a user-presentable explanation attached to degraded or
	// denied responses, e.g. the ledger's denial message.
	Notice     string `json:"notice,omitempty"`
	Degraded   bool   `json:"degraded"`
	Confidence string `json:"confidence"`
}

// OK reports whether the envelope carries a model answer that parsed.
func (r AIResponse) OK() bool {
	return r.Failure == FailureNone && !r.Degraded
}

// IsUnavailable reports whether r is a Class A "unavailable" envelope.
// Callers must not render such a response as an answer.
func IsUnavailable(r AIResponse) bool {
	return strings.HasPrefix(r.Text, SentinelPrefix)
}
