package generation

import (
	"context"
	"errors"
	"iter"
	"time"

	"crm-ai-workers/internal/generation/stream"
)

var (
	// ErrEmptyReply is returned for a call that succeeded without usable
	// text. It is retried like a transport failure.
	ErrEmptyReply = errors.New("model returned an empty reply")

	// ErrOverloaded is wrapped by model adapters for rate-limit and
	// capacity errors so failures can be labelled as overload.
	ErrOverloaded = errors.New("model overloaded")
)

// Request is the provider-neutral remote generation call.
type Request struct {
	Kind              Kind
	Prompt            string
	SystemInstruction string
	// Temperature and MaxOutputTokens are hints; zero values leave the
	// provider's configured defaults in place.
	Temperature     *float32
	MaxOutputTokens int
	// GoogleSearch asks the provider to ground the reply in web search
	// where it supports that.
	GoogleSearch bool
	// JSON asks for a JSON reply where the provider supports it.
	JSON bool
}

type Reply struct {
	Text        string
	TotalTokens int
	Model       string
}

// Model is the remote LLM. Implementations must honour ctx on both calls;
// the stream must stop and release its connection once the consumer stops
// ranging.
type Model interface {
	Name() string
	Generate(ctx context.Context, req Request) (Reply, error)
	GenerateStream(ctx context.Context, req Request) iter.Seq2[stream.Chunk, error]
}

// LedgerResult is the outcome of a credit check. Message explains a denial.
type LedgerResult struct {
	Success   bool
	Message   string
	Remaining int
}

// Ledger is the external credit store consulted once before a quota-gated
// call.
type Ledger interface {
	Consume(ctx context.Context, accountID string, cost int) (LedgerResult, error)
}

// Alert describes a Class A operation that could not be served.
type Alert struct {
	Kind      Kind
	AccountID string
	Attempts  int
	Reason    string
	At        time.Time
}

type Alerter interface {
	Unavailable(ctx context.Context, alert Alert) error
}
