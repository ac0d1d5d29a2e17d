package generation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation/executor"
	"crm-ai-workers/internal/generation/prompt"
	"crm-ai-workers/internal/generation/stream"
	"crm-ai-workers/internal/models"
)

// ==========================
// Fakes
// ==========================

type step func(ctx context.Context) (Reply, error)

type fakeModel struct {
	mu      sync.Mutex
	calls   atomic.Int32
	steps   []step
	chunks  [][]stream.Chunk
	lastReq Request
}

func (m *fakeModel) Name() string { return "fake-model" }

func (m *fakeModel) next() int {
	return int(m.calls.Add(1)) - 1
}

func (m *fakeModel) Generate(ctx context.Context, req Request) (Reply, error) {
	i := m.next()
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if len(m.steps) == 0 {
		return Reply{}, errors.New("no scripted reply")
	}
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	return m.steps[i](ctx)
}

func (m *fakeModel) GenerateStream(ctx context.Context, req Request) iter.Seq2[stream.Chunk, error] {
	i := m.next()
	if len(m.chunks) == 0 {
		return stream.Error(errors.New("no scripted stream"))
	}
	if i >= len(m.chunks) {
		i = len(m.chunks) - 1
	}
	return stream.FromSlice(m.chunks[i]...)
}

func (m *fakeModel) request() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

func replyWith(text string, tokens int) step {
	return func(context.Context) (Reply, error) { return Reply{Text: text, TotalTokens: tokens}, nil }
}

func failWith(err error) step {
	return func(context.Context) (Reply, error) { return Reply{}, err }
}

func hang() step {
	return func(ctx context.Context) (Reply, error) {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	}
}

type fakeLedger struct {
	result LedgerResult
	err    error
	calls  atomic.Int32
	cost   atomic.Int32
}

func (l *fakeLedger) Consume(_ context.Context, _ string, cost int) (LedgerResult, error) {
	l.calls.Add(1)
	l.cost.Store(int32(cost))
	return l.result, l.err
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []Alert
}

func (a *fakeAlerter) Unavailable(_ context.Context, alert Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

type fakeStore struct {
	tpl   prompt.Template
	found bool
	err   error
}

func (f fakeStore) Lookup(context.Context, string) (prompt.Template, bool, error) {
	return f.tpl, f.found, f.err
}

var testNow = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func createTestService(t *testing.T, m Model, opts Options) *Service {
	t.Helper()
	log := logger.NewTestLogger(t)
	opts.Logger = log
	if opts.Executor == nil {
		opts.Executor = executor.New(log, executor.WithSleep(noSleep))
	}
	opts.Now = func() time.Time { return testNow }
	return NewService(m, opts)
}

func testLead() models.Lead {
	return models.Lead{
		ID: "lead-1", FirstName: "Dana", LastName: "Scully", Company: "Acme Freight",
		Title: "VP Operations", Status: models.LeadStatusContacted, Score: 72, Value: 15000,
		KnowledgeExcerpt: "Opened a Reno warehouse in January.",
	}
}

func testBusiness() *models.BusinessProfile {
	return &models.BusinessProfile{CompanyName: "RouteIQ", Industry: "Logistics software", Tone: "friendly", Website: "https://routeiq.example"}
}

type operation struct {
	name  string
	kind  Kind
	run   func(s *Service) AIResponse
	class Resilience
}

func allOperations() []operation {
	ctx := context.Background()
	common := Common{AccountID: "acct-1", Business: testBusiness()}
	leads := []models.Lead{testLead()}
	return []operation{
		{"outreach", KindOutreachMessage, func(s *Service) AIResponse {
			return s.GenerateOutreachMessage(ctx, OutreachRequest{Common: common, Lead: testLead()})
		}, ExplainUnavailable},
		{"email sequence", KindEmailSequence, func(s *Service) AIResponse {
			r, _ := s.GenerateEmailSequence(ctx, EmailSequenceRequest{Common: common, Lead: testLead(), Steps: 3})
			return r
		}, ExplainUnavailable},
		{"lead research", KindLeadResearch, func(s *Service) AIResponse {
			r, _ := s.ResearchLead(ctx, LeadResearchRequest{Common: common, Lead: testLead()})
			return r
		}, ExplainUnavailable},
		{"business analysis", KindBusinessAnalysis, func(s *Service) AIResponse {
			r, _ := s.AnalyzeBusiness(ctx, BusinessAnalysisRequest{Common: common, Website: "https://acme.example"})
			return r
		}, ExplainUnavailable},
		{"command center", KindCommandCenter, func(s *Service) AIResponse {
			return s.CommandCenterReply(ctx, ChatRequest{Common: common, Question: "How many hot leads?", Leads: leads})
		}, LocalFallback},
		{"command center stream", KindCommandCenter, func(s *Service) AIResponse {
			return s.StreamCommandCenterReply(ctx, ChatRequest{Common: common, Question: "How many hot leads?", Leads: leads}, nil)
		}, LocalFallback},
		{"pipeline strategy", KindPipelineStrategy, func(s *Service) AIResponse {
			r, _ := s.PipelineStrategy(ctx, PipelineStrategyRequest{Common: common, Leads: leads})
			return r
		}, ExplainUnavailable},
		{"blog", KindBlogContent, func(s *Service) AIResponse {
			return s.GenerateBlogContent(ctx, BlogRequest{Common: common, Topic: "Warehouse automation"})
		}, ExplainUnavailable},
		{"content improvements", KindContentImprovements, func(s *Service) AIResponse {
			r, _ := s.SuggestContentImprovements(ctx, ContentImprovementRequest{Common: common, Content: "We sell software."})
			return r
		}, ExplainUnavailable},
	}
}

// ==========================
// Envelope totality
// ==========================

func TestOperations_AlwaysFailingModel_ReturnEnvelope(t *testing.T) {
	for _, op := range allOperations() {
		t.Run(op.name, func(t *testing.T) {
			m := &fakeModel{steps: []step{failWith(errors.New("connection refused"))}}
			s := createTestService(t, m, Options{})

			resp := op.run(s)

			assert.NotEmpty(t, resp.Text)
			assert.Equal(t, op.kind, resp.Kind)
			assert.Equal(t, op.kind.PromptName(), resp.PromptName)
			assert.Equal(t, FailureTransport, resp.Failure)
			assert.Equal(t, int32(3), m.calls.Load())

			switch op.class {
			case ExplainUnavailable:
				assert.True(t, IsUnavailable(resp))
				assert.True(t, strings.HasPrefix(resp.Text, SentinelFailed))
				assert.False(t, resp.Degraded)
			case LocalFallback:
				assert.False(t, IsUnavailable(resp))
				assert.NotContains(t, resp.Text, "connection refused")
				assert.True(t, resp.Degraded)
				assert.Equal(t, ConfidenceLow, resp.Confidence)
				assert.Equal(t, FallbackModelName, resp.ModelName)
			}
		})
	}
}

func TestOperations_PanickingModel_ReturnEnvelope(t *testing.T) {
	for _, op := range allOperations() {
		t.Run(op.name, func(t *testing.T) {
			m := &fakeModel{steps: []step{func(context.Context) (Reply, error) { panic("provider bug") }}}
			s := createTestService(t, m, Options{})

			var resp AIResponse
			require.NotPanics(t, func() { resp = op.run(s) })
			assert.NotEmpty(t, resp.Text)
		})
	}
}

func TestOperations_OverloadedModel_UsesOverloadSentinel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"wrapped sentinel", fmt.Errorf("gemini: %w", ErrOverloaded)},
		{"rate limit text", errors.New("status 429: too many requests")},
		{"service unavailable", errors.New("503 Service Unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{steps: []step{failWith(tt.err)}}
			s := createTestService(t, m, Options{})

			resp := s.GenerateBlogContent(context.Background(), BlogRequest{Topic: "x"})

			assert.True(t, strings.HasPrefix(resp.Text, SentinelOverloaded))
		})
	}
}

func TestOperations_Exhaustion_PublishesAlert(t *testing.T) {
	m := &fakeModel{steps: []step{failWith(errors.New("boom"))}}
	alerts := &fakeAlerter{}
	s := createTestService(t, m, Options{Alerts: alerts})

	s.GenerateOutreachMessage(context.Background(), OutreachRequest{Common: Common{AccountID: "acct-9"}, Lead: testLead()})
	s.CommandCenterReply(context.Background(), ChatRequest{Question: "health"})

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, KindOutreachMessage, alerts.alerts[0].Kind)
	assert.Equal(t, "acct-9", alerts.alerts[0].AccountID)
	assert.Equal(t, 3, alerts.alerts[0].Attempts)
	assert.Equal(t, testNow, alerts.alerts[0].At)
}

// ==========================
// Quota short-circuit
// ==========================

func TestOperations_QuotaDenied_NeverCallModel(t *testing.T) {
	for _, op := range allOperations() {
		t.Run(op.name, func(t *testing.T) {
			m := &fakeModel{steps: []step{replyWith("should not be used", 10)}}
			ledger := &fakeLedger{result: LedgerResult{Success: false, Message: "Monthly AI credits used up."}}
			s := createTestService(t, m, Options{Ledger: ledger})

			resp := op.run(s)

			assert.Zero(t, m.calls.Load())
			assert.Equal(t, int32(1), ledger.calls.Load())
			assert.Equal(t, FailureQuota, resp.Failure)
			assert.Equal(t, "Monthly AI credits used up.", resp.Notice)
			assert.Zero(t, resp.TokensUsed)

			if op.class == ExplainUnavailable {
				assert.Equal(t, SentinelQuota+" Monthly AI credits used up.", resp.Text)
			} else {
				assert.True(t, resp.Degraded)
				assert.NotEmpty(t, resp.Text)
				assert.False(t, IsUnavailable(resp))
			}
		})
	}
}

func TestOperations_LedgerError_FailsClosed(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith("hello", 1)}}
	ledger := &fakeLedger{err: errors.New("redis: connection refused")}
	s := createTestService(t, m, Options{Ledger: ledger})

	resp := s.GenerateOutreachMessage(context.Background(), OutreachRequest{Lead: testLead()})

	assert.Zero(t, m.calls.Load())
	assert.Equal(t, FailureQuota, resp.Failure)
	assert.Equal(t, msgLedgerError, resp.Notice)
}

func TestOperations_CostOverride(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith("hello", 1)}}
	ledger := &fakeLedger{result: LedgerResult{Success: true}}

	s := createTestService(t, m, Options{Ledger: ledger, Costs: map[Kind]int{KindBlogContent: 7, KindOutreachMessage: 0}})

	s.GenerateBlogContent(context.Background(), BlogRequest{Topic: "x"})
	assert.Equal(t, int32(7), ledger.cost.Load())

	s.GenerateOutreachMessage(context.Background(), OutreachRequest{Lead: testLead()})
	assert.Equal(t, int32(1), ledger.calls.Load(), "zero cost skips the ledger")
	assert.Equal(t, int32(2), m.calls.Load())
}

// ==========================
// Retries and parsing
// ==========================

func TestResearchLead_TwoTimeoutsThenSuccess_UsesThirdReply(t *testing.T) {
	m := &fakeModel{steps: []step{
		hang(),
		hang(),
		replyWith("===FIELD===TITLE: VP Operations===END===", 42),
	}}
	s := createTestService(t, m, Options{
		Policies: map[Kind]executor.Policy{KindLeadResearch: {Timeout: 20 * time.Millisecond}},
	})

	resp, kb := s.ResearchLead(context.Background(), LeadResearchRequest{Lead: testLead()})

	assert.Equal(t, int32(3), m.calls.Load())
	assert.Equal(t, 42, resp.TokensUsed)
	assert.Equal(t, FailureNone, resp.Failure)
	assert.True(t, resp.OK())
	require.NotNil(t, kb)
	assert.Equal(t, "VP Operations", kb.Title)
	assert.Equal(t, testNow, kb.ResearchedAt)
}

func TestResearchLead_MalformedReply_ParsedOnceNotRetried(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith("I could not find anything about this person.", 9)}}
	s := createTestService(t, m, Options{})

	resp, kb := s.ResearchLead(context.Background(), LeadResearchRequest{Lead: testLead()})

	assert.Equal(t, int32(1), m.calls.Load())
	assert.Nil(t, kb)
	assert.Equal(t, FailureParse, resp.Failure)
	assert.Equal(t, "I could not find anything about this person.", resp.Text)
	assert.False(t, IsUnavailable(resp))
}

func TestOperations_EmptyReply_IsRetriedThenReported(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith("   ", 3)}}
	s := createTestService(t, m, Options{})

	resp := s.GenerateOutreachMessage(context.Background(), OutreachRequest{Lead: testLead()})

	assert.Equal(t, int32(3), m.calls.Load())
	assert.Equal(t, FailureEmptyReply, resp.Failure)
	assert.True(t, IsUnavailable(resp))
}

func TestGenerateEmailSequence(t *testing.T) {
	var blocks strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&blocks, "===EMAIL===\n===FIELD===SUBJECT: Subject %d===END===\n===FIELD===BODY: Body %d===END===\n", i, i)
	}
	prose := "Hi Dana, congratulations on the Reno opening. We help teams like yours onboard carriers faster.\n\n" +
		"Following up on my note last week about carrier onboarding."

	tests := []struct {
		name          string
		reply         string
		requested     int
		expectedSteps int
		confidence    string
		failure       FailureKind
	}{
		{"five delimited blocks", blocks.String(), 5, 5, ConfidenceNormal, FailureNone},
		{"request caps delimited blocks", blocks.String(), 2, 2, ConfidenceNormal, FailureNone},
		{"prose is segmented heuristically", prose, 3, 2, ConfidenceLow, FailureNone},
		{"short unusable reply", "Sorry.", 3, 0, ConfidenceNormal, FailureParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{steps: []step{replyWith(tt.reply, 100)}}
			s := createTestService(t, m, Options{})

			resp, steps := s.GenerateEmailSequence(context.Background(), EmailSequenceRequest{Lead: testLead(), Steps: tt.requested})

			assert.Equal(t, int32(1), m.calls.Load())
			assert.Len(t, steps, tt.expectedSteps)
			assert.Equal(t, tt.confidence, resp.Confidence)
			assert.Equal(t, tt.failure, resp.Failure)
			for i, st := range steps {
				assert.Equal(t, i+1, st.StepNumber)
				assert.NotEmpty(t, st.Body)
			}
		})
	}
}

func TestAnalyzeBusiness_FencedJSON(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith("```json\n{\"companyName\":{\"value\":\"Acme\",\"confidence\":0.9}}\n```", 12)}}
	s := createTestService(t, m, Options{})

	resp, res := s.AnalyzeBusiness(context.Background(), BusinessAnalysisRequest{Website: "https://acme.example"})

	assert.True(t, resp.OK())
	require.NotNil(t, res)
	require.NotNil(t, res.CompanyName)
	assert.Equal(t, "Acme", res.CompanyName.Value)
	assert.True(t, m.request().GoogleSearch)
	assert.Contains(t, m.request().Prompt, "https://acme.example")
}

func TestSuggestContentImprovements_RequestsJSON(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith(`[{"title":"Lead with the outcome","description":"Open with the result"}]`, 5)}}
	s := createTestService(t, m, Options{})

	resp, list := s.SuggestContentImprovements(context.Background(), ContentImprovementRequest{Content: "We sell software."})

	assert.True(t, resp.OK())
	assert.Len(t, list, 1)
	assert.True(t, m.request().JSON)
}

func TestPipelineStrategy_UsesSnapshot(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith("===FIELD===RECOMMENDATIONS: Call Dana | Clean stale deals===END===", 30)}}
	s := createTestService(t, m, Options{})

	resp, res := s.PipelineStrategy(context.Background(), PipelineStrategyRequest{Leads: []models.Lead{testLead()}})

	assert.True(t, resp.OK())
	require.NotNil(t, res)
	assert.Equal(t, []string{"Call Dana", "Clean stale deals"}, res.Recommendations)
	assert.Contains(t, m.request().Prompt, "Total leads: 1")
}

// ==========================
// Prompt resolution
// ==========================

func TestOperations_PromptVersion(t *testing.T) {
	tests := []struct {
		name     string
		store    prompt.Store
		version  int
		contains string
	}{
		{"no store", nil, 0, "outreach message"},
		{"stored template", fakeStore{tpl: prompt.Template{Name: "outreach_message", Text: "V7 {{lead}}", Version: 7}, found: true}, 7, "V7 Name: Dana Scully"},
		{"store miss", fakeStore{}, 0, "outreach message"},
		{"store error", fakeStore{err: errors.New("db down")}, 0, "outreach message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{steps: []step{replyWith("Hi Dana", 5)}}
			s := createTestService(t, m, Options{Prompts: tt.store})

			resp := s.GenerateOutreachMessage(context.Background(), OutreachRequest{Lead: testLead(), Common: Common{Business: testBusiness()}})

			assert.Equal(t, tt.version, resp.PromptVersion)
			assert.Equal(t, "Hi Dana", resp.Text)
			assert.Contains(t, m.request().Prompt, tt.contains)
			assert.Contains(t, m.request().Prompt, "--- BUSINESS CONTEXT ---")
		})
	}
}

// ==========================
// Command center
// ==========================

func TestCommandCenterReply_Success(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith("You have one hot lead: Dana.", 25)}}
	s := createTestService(t, m, Options{})

	resp := s.CommandCenterReply(context.Background(), ChatRequest{
		Question: "hot leads?",
		Leads:    []models.Lead{testLead()},
		History:  []models.ConversationTurn{{Role: models.RoleUser, Text: "hi"}, {Role: models.RoleAssistant, Text: "hello"}},
	})

	assert.True(t, resp.OK())
	assert.Equal(t, 25, resp.TokensUsed)
	assert.Equal(t, "fake-model", resp.ModelName)
	assert.Contains(t, m.request().Prompt, "Assistant: hello")
}

func TestStreamCommandCenterReply(t *testing.T) {
	m := &fakeModel{chunks: [][]stream.Chunk{{{Text: "You have "}, {Text: "one hot lead.", TotalTokens: 11}}}}
	s := createTestService(t, m, Options{})
	var partials []string

	resp := s.StreamCommandCenterReply(context.Background(), ChatRequest{Question: "hot?"}, func(_, acc string) {
		partials = append(partials, acc)
	})

	assert.True(t, resp.OK())
	assert.Equal(t, "You have one hot lead.", resp.Text)
	assert.Equal(t, 11, resp.TokensUsed)
	assert.Equal(t, []string{"You have ", "You have one hot lead."}, partials)
}

type brokenStreamModel struct {
	fakeModel
}

func (m *brokenStreamModel) GenerateStream(context.Context, Request) iter.Seq2[stream.Chunk, error] {
	m.next()
	return func(yield func(stream.Chunk, error) bool) {
		if !yield(stream.Chunk{Text: "Partial "}, nil) {
			return
		}
		yield(stream.Chunk{}, errors.New("connection reset"))
	}
}

func TestStreamCommandCenterReply_FailureAfterOutput_NotRetried(t *testing.T) {
	m := &brokenStreamModel{}
	s := createTestService(t, m, Options{})
	var chunks int

	resp := s.StreamCommandCenterReply(context.Background(), ChatRequest{Question: "pipeline health"}, func(string, string) { chunks++ })

	assert.Equal(t, int32(1), m.calls.Load())
	assert.Equal(t, 1, chunks)
	assert.True(t, resp.Degraded)
	assert.Equal(t, FailureTransport, resp.Failure)
	assert.NotContains(t, resp.Text, "connection reset")
}

func TestStreamCommandCenterReply_StreamErrorBeforeOutput_IsRetried(t *testing.T) {
	m := &fakeModel{}
	s := createTestService(t, m, Options{})

	resp := s.StreamCommandCenterReply(context.Background(), ChatRequest{Question: "stale"}, nil)

	assert.Equal(t, int32(3), m.calls.Load())
	assert.True(t, resp.Degraded)
}

// ==========================
// Concurrency
// ==========================

func TestService_ConcurrentCalls(t *testing.T) {
	m := &fakeModel{steps: []step{replyWith("===FIELD===TITLE: CTO===END===", 1)}}
	s := createTestService(t, m, Options{})

	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, kb := s.ResearchLead(context.Background(), LeadResearchRequest{Lead: testLead()})
			if kb != nil {
				results[i] = kb.Title
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "CTO", r)
	}
	assert.Equal(t, int32(20), m.calls.Load())
}
