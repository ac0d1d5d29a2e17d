// Package generationtest provides a scripted generation.Model and a Service
// constructor for tests outside the generation package.
package generationtest

import (
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/executor"
	"crm-ai-workers/internal/generation/stream"
)

// Step is one scripted model response.
type Step struct {
	Text   string
	Tokens int
	Err    error
}

// Model replays Steps in order and repeats the last one once they run out.
type Model struct {
	mu       sync.Mutex
	steps    []Step
	requests []generation.Request
}

func NewModel(steps ...Step) *Model {
	return &Model{steps: steps}
}

// Reply scripts a model that always answers text.
func Reply(text string) *Model {
	return NewModel(Step{Text: text, Tokens: 42})
}

// Failing scripts a model that always returns err.
func Failing(err error) *Model {
	return NewModel(Step{Err: err})
}

func (m *Model) Name() string { return "test-model" }

func (m *Model) next(req generation.Request) Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.steps) == 0 {
		return Step{}
	}
	i := len(m.requests) - 1
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	return m.steps[i]
}

func (m *Model) Generate(ctx context.Context, req generation.Request) (generation.Reply, error) {
	st := m.next(req)
	if st.Err != nil {
		return generation.Reply{}, st.Err
	}
	return generation.Reply{Text: st.Text, TotalTokens: st.Tokens, Model: m.Name()}, nil
}

// GenerateStream delivers the step's text as a single chunk.
func (m *Model) GenerateStream(ctx context.Context, req generation.Request) iter.Seq2[stream.Chunk, error] {
	st := m.next(req)
	if st.Err != nil {
		return stream.Error(st.Err)
	}
	return stream.FromSlice(stream.Chunk{Text: st.Text, TotalTokens: st.Tokens})
}

// Calls returns how many requests the model has received.
func (m *Model) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or the zero value.
func (m *Model) LastRequest() generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return generation.Request{}
	}
	return m.requests[len(m.requests)-1]
}

// Now is the fixed clock used by NewService.
var Now = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

// NewService builds a Service with a test logger, a fixed clock and no
// backoff waits. Fields already set in opts are kept.
func NewService(t *testing.T, model generation.Model, opts generation.Options) *generation.Service {
	t.Helper()
	log := logger.NewTestLogger(t)
	if opts.Logger == nil {
		opts.Logger = log
	}
	if opts.Executor == nil {
		opts.Executor = executor.New(log, executor.WithSleep(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}))
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return Now }
	}
	return generation.NewService(model, opts)
}
