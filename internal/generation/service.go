// Package generation turns CRM data into prompts, runs them against a
// remote model under a retry policy and converts the replies into typed
// records. Every operation returns an AIResponse; none returns an error.
package generation

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/metrics"
	"crm-ai-workers/internal/generation/executor"
	"crm-ai-workers/internal/generation/fallback"
	"crm-ai-workers/internal/generation/prompt"
	"crm-ai-workers/internal/generation/stream"
	"crm-ai-workers/internal/models"
)

const (
	// FallbackModelName is reported for answers produced locally.
	FallbackModelName = "template-fallback"

	defaultHistoryTurns = 10
	alertTimeout        = 5 * time.Second

	msgOverloaded   = "The AI service is busy right now. Please try again in a minute."
	msgFailed       = "The AI service could not complete this request. Please try again later."
	msgLedgerError  = "Your AI credit balance could not be checked. Please try again shortly."
	msgNoCredits    = "You have run out of AI credits."
	msgLocalAnswer  = "The AI assistant is unavailable, so this answer was computed from your pipeline data."
	msgUnparsedText = "The reply did not match the expected format. The raw text is included."
)

var errQuotaDenied = errors.New("credit precondition failed")

type Options struct {
	Prompts  prompt.Store
	Ledger   Ledger
	Fallback *fallback.Engine
	Logger   logger.Logger
	Alerts   Alerter
	// Policies overrides the retry policy per kind. Zero fields keep the
	// kind's defaults.
	Policies map[Kind]executor.Policy
	// Costs overrides the credit cost per kind. A cost of 0 skips the
	// ledger for that kind.
	Costs        map[Kind]int
	Executor     *executor.Executor
	Now          func() time.Time
	HistoryTurns int
}

// Service is safe for concurrent use. It holds no per-call state.
type Service struct {
	model        Model
	prompts      prompt.Store
	ledger       Ledger
	fallback     *fallback.Engine
	logger       logger.Logger
	alerts       Alerter
	policies     map[Kind]executor.Policy
	costs        map[Kind]int
	exec         *executor.Executor
	now          func() time.Time
	historyTurns int
}

func NewService(model Model, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Service{
		model:        model,
		prompts:      opts.Prompts,
		ledger:       opts.Ledger,
		fallback:     opts.Fallback,
		logger:       log.WithFields(map[string]interface{}{"component": "generation"}),
		alerts:       opts.Alerts,
		policies:     opts.Policies,
		costs:        opts.Costs,
		exec:         opts.Executor,
		now:          opts.Now,
		historyTurns: opts.HistoryTurns,
	}
	if s.fallback == nil {
		s.fallback = fallback.New()
	}
	if s.exec == nil {
		s.exec = executor.New(log)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.historyTurns <= 0 {
		s.historyTurns = defaultHistoryTurns
	}
	return s
}

// Policy returns the effective retry policy for k.
func (s *Service) Policy(k Kind) executor.Policy {
	p := executor.Policy{
		Name:        k.String(),
		MaxAttempts: executor.DefaultMaxAttempts,
		Timeout:     k.spec().timeout,
		Backoff:     executor.DefaultBackoff,
	}
	if o, ok := s.policies[k]; ok {
		if o.MaxAttempts > 0 {
			p.MaxAttempts = o.MaxAttempts
		}
		if o.Timeout > 0 {
			p.Timeout = o.Timeout
		}
		if o.Backoff != 0 {
			p.Backoff = o.Backoff
		}
	}
	return p
}

func (s *Service) cost(k Kind) int {
	if c, ok := s.costs[k]; ok {
		return c
	}
	return k.Cost()
}

// call is one operation ready to be rendered.
type call struct {
	kind    Kind
	account string
	subs    map[string]string
	blocks  []prompt.ContextBlock
}

type fetchFunc func(ctx context.Context, req Request) (Reply, error)

func (s *Service) prepare(ctx context.Context, c call) (AIResponse, Request) {
	sp := c.kind.spec()
	tpl, err := prompt.Resolve(ctx, s.prompts, c.kind.PromptName(), sp.template)
	if err != nil {
		s.logger.Warn("prompt store lookup failed, using default template", map[string]interface{}{
			"kind":  c.kind.String(),
			"error": err.Error(),
		})
	}

	resp := AIResponse{
		Kind:          c.kind,
		ModelName:     s.model.Name(),
		PromptName:    tpl.Name,
		PromptVersion: tpl.Version,
		Confidence:    ConfidenceNormal,
	}
	temperature := sp.temperature
	req := Request{
		Kind:              c.kind,
		Prompt:            prompt.Build(tpl.Text, c.subs, c.blocks...),
		SystemInstruction: sp.system,
		Temperature:       &temperature,
		MaxOutputTokens:   sp.maxTokens,
		GoogleSearch:      sp.search,
		JSON:              sp.jsonReply,
	}
	return resp, req
}

// admit consults the ledger. A ledger error denies the call.
func (s *Service) admit(ctx context.Context, c call) (string, bool) {
	cost := s.cost(c.kind)
	if s.ledger == nil || cost <= 0 {
		return "", true
	}

	res, err := s.ledger.Consume(ctx, c.account, cost)
	if err != nil {
		s.logger.Error("credit ledger check failed", map[string]interface{}{
			"kind":      c.kind.String(),
			"accountId": c.account,
			"error":     err.Error(),
		})
		return msgLedgerError, false
	}
	if !res.Success {
		if strings.TrimSpace(res.Message) == "" {
			return msgNoCredits, false
		}
		return res.Message, false
	}
	return "", true
}

// generate renders c, checks credits and runs fetch under the kind's
// policy. On error resp carries the prompt metadata and, for a quota
// denial, Failure and Notice.
func (s *Service) generate(ctx context.Context, c call, fetch fetchFunc) (AIResponse, error) {
	resp, req := s.prepare(ctx, c)

	if msg, ok := s.admit(ctx, c); !ok {
		resp.Failure = FailureQuota
		resp.Notice = msg
		return resp, errQuotaDenied
	}

	reply, err := executor.Run(ctx, s.exec, s.Policy(c.kind), func(ctx context.Context) (Reply, error) {
		r, err := fetch(ctx, req)
		if err != nil {
			return Reply{}, err
		}
		if strings.TrimSpace(r.Text) == "" {
			return Reply{}, ErrEmptyReply
		}
		return r, nil
	})
	if err != nil {
		return resp, err
	}

	resp.Text = strings.TrimSpace(reply.Text)
	resp.TokensUsed = reply.TotalTokens
	if reply.Model != "" {
		resp.ModelName = reply.Model
	}
	return resp, nil
}

// unavailable completes a Class A envelope after generate failed.
func (s *Service) unavailable(ctx context.Context, c call, resp AIResponse, err error) AIResponse {
	if errors.Is(err, errQuotaDenied) {
		resp.Text = SentinelQuota + " " + resp.Notice
		return s.finish(resp)
	}

	resp.Failure = failureKind(err)
	if overloaded(err) {
		resp.Text = SentinelOverloaded + " " + msgOverloaded
	} else {
		resp.Text = SentinelFailed + " " + msgFailed
	}
	s.alert(ctx, c, err)
	return s.finish(resp)
}

// localAnswer completes a Class B envelope from pipeline statistics.
func (s *Service) localAnswer(resp AIResponse, err error, question string, stats models.PipelineStats) AIResponse {
	if !errors.Is(err, errQuotaDenied) {
		resp.Failure = failureKind(err)
		resp.Notice = msgLocalAnswer
	}
	resp.Text = s.fallback.Generate(question, stats)
	resp.TokensUsed = 0
	resp.ModelName = FallbackModelName
	resp.Degraded = true
	resp.Confidence = ConfidenceLow
	return s.finish(resp)
}

// parsed records the outcome of the single extraction attempt.
func (s *Service) parsed(resp AIResponse, ok bool) AIResponse {
	if !ok {
		resp.Failure = FailureParse
		resp.Notice = msgUnparsedText
	}
	return s.finish(resp)
}

func (s *Service) finish(resp AIResponse) AIResponse {
	failure := string(resp.Failure)
	if failure == "" {
		failure = "none"
	}
	metrics.GenerationOutcomes.WithLabelValues(resp.Kind.String(), failure).Inc()
	if resp.TokensUsed > 0 {
		metrics.GenerationTokens.WithLabelValues(resp.Kind.String()).Add(float64(resp.TokensUsed))
	}

	fields := map[string]interface{}{
		"kind":          resp.Kind.String(),
		"promptVersion": resp.PromptVersion,
		"tokensUsed":    resp.TokensUsed,
		"model":         resp.ModelName,
	}
	if resp.Failure != FailureNone || resp.Degraded {
		fields["failure"] = failure
		fields["degraded"] = resp.Degraded
		s.logger.Warn("generation degraded", fields)
	} else {
		s.logger.Info("generation completed", fields)
	}
	return resp
}

func (s *Service) alert(ctx context.Context, c call, err error) {
	if s.alerts == nil {
		return
	}
	f, _ := executor.AsFailure(err)
	if f != nil && f.Cancelled {
		return
	}

	a := Alert{Kind: c.kind, AccountID: c.account, Reason: err.Error(), At: s.now()}
	if f != nil {
		a.Attempts = f.Attempts
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()
	if aerr := s.alerts.Unavailable(actx, a); aerr != nil {
		s.logger.Warn("failed to publish degradation alert", map[string]interface{}{
			"kind":  c.kind.String(),
			"error": aerr.Error(),
		})
	}
}

func (s *Service) unary() fetchFunc {
	return s.model.Generate
}

// streaming delivers deltas to onChunk. Once anything has been delivered
// a failure is not retried, so the caller never sees text twice.
func (s *Service) streaming(onChunk stream.ChunkFunc) fetchFunc {
	var delivered atomic.Bool
	return func(ctx context.Context, req Request) (Reply, error) {
		if delivered.Load() {
			return Reply{}, executor.Permanent(errors.New("stream already delivered partial output"))
		}
		res, err := stream.Run(ctx, s.model.GenerateStream(ctx, req), func(delta, acc string) {
			delivered.Store(true)
			if onChunk != nil {
				onChunk(delta, acc)
			}
		})
		if err != nil {
			if delivered.Load() {
				return Reply{}, executor.Permanent(err)
			}
			return Reply{}, err
		}
		return Reply{Text: res.Text, TotalTokens: res.TokensUsed}, nil
	}
}

func failureKind(err error) FailureKind {
	if errors.Is(err, ErrEmptyReply) {
		return FailureEmptyReply
	}
	return FailureTransport
}

var overloadMarkers = []string{
	"429", "503", "529", "overloaded", "rate limit", "rate_limit",
	"resource_exhausted", "resource exhausted", "too many requests", "unavailable",
}

func overloaded(err error) bool {
	if f, ok := executor.AsFailure(err); ok && f.TimedOut {
		return true
	}
	if errors.Is(err, ErrOverloaded) || errors.Is(err, executor.ErrAttemptTimeout) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range overloadMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
