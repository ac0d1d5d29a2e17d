package aicontent_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/errors"
	"crm-ai-workers/internal/common/zoho"
	"crm-ai-workers/internal/generation"
	aicontent "crm-ai-workers/internal/workers/ai-content"
	"crm-ai-workers/internal/workers/ai-content/aicontenttest"
)

// ==========================
// Config
// ==========================

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name      string
		appConfig *config.Config
		want      aicontent.Config
	}{
		{
			name:      "nil app config keeps defaults",
			appConfig: nil,
			want:      aicontent.Config{Enabled: true, MaxJobsActive: 5, Timeout: 20 * time.Second},
		},
		{
			name:      "missing worker section keeps defaults",
			appConfig: &config.Config{Workers: map[string]config.WorkerConfig{}},
			want:      aicontent.Config{Enabled: true, MaxJobsActive: 5, Timeout: 20 * time.Second},
		},
		{
			name: "worker section overrides",
			appConfig: &config.Config{Workers: map[string]config.WorkerConfig{
				"research-lead": {Enabled: true, MaxJobsActive: 2, Timeout: 45000, FailOnUnavailable: true},
			}},
			want: aicontent.Config{Enabled: true, MaxJobsActive: 2, Timeout: 45 * time.Second, FailOnUnavailable: true},
		},
		{
			name: "disabled worker with zero values",
			appConfig: &config.Config{Workers: map[string]config.WorkerConfig{
				"research-lead": {Enabled: false},
			}},
			want: aicontent.Config{Enabled: false, MaxJobsActive: 5, Timeout: 20 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := aicontent.LoadConfig(tt.appConfig, "research-lead", 20*time.Second)
			assert.Equal(t, tt.want, *cfg)
		})
	}
}

// ==========================
// Output
// ==========================

func TestNewOutput(t *testing.T) {
	ok := aicontent.NewOutput(generation.AIResponse{Text: "hello"}, "payload")
	assert.True(t, ok.Available)
	assert.Equal(t, "payload", ok.Payload)

	down := aicontent.NewOutput[*string](generation.AIResponse{Text: generation.SentinelFailed + " sorry"}, nil)
	assert.False(t, down.Available)
	assert.Nil(t, down.Payload)
}

func TestUnavailableError(t *testing.T) {
	tests := []struct {
		name string
		resp generation.AIResponse
		code errors.ErrorCode
	}{
		{
			name: "quota",
			resp: generation.AIResponse{Failure: generation.FailureQuota, Notice: "no credits", Text: generation.SentinelQuota + " no credits"},
			code: errors.ErrCodeCreditsExhausted,
		},
		{
			name: "overloaded",
			resp: generation.AIResponse{Failure: generation.FailureTransport, Text: generation.SentinelOverloaded + " busy"},
			code: errors.ErrCodeLLMTimeout,
		},
		{
			name: "failed",
			resp: generation.AIResponse{Failure: generation.FailureTransport, Text: generation.SentinelFailed + " broken"},
			code: errors.ErrCodeLLMSynthesisFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.resp.Kind = generation.KindBlogContent
			err := aicontent.UnavailableError(tt.resp)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, "blog_content", err.Metadata["kind"])
		})
	}
}

func TestFinish(t *testing.T) {
	deps := &aicontent.Dependencies{}
	down := generation.AIResponse{Kind: generation.KindOutreachMessage, Text: generation.SentinelFailed + " broken"}

	out, err := aicontent.Finish(context.Background(), deps, aicontenttest.Config(false), "t", down, "")
	require.NoError(t, err)
	assert.False(t, out.Available)

	out, err = aicontent.Finish(context.Background(), deps, aicontenttest.Config(true), "t", down, "")
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, errors.ErrCodeLLMSynthesisFailed, errors.Normalize(err).Code)

	out, err = aicontent.Finish(context.Background(), deps, aicontenttest.Config(true), "t", generation.AIResponse{Text: "hi"}, "p")
	require.NoError(t, err)
	assert.True(t, out.Available)
}

// ==========================
// Collaborator Resolution
// ==========================

func TestResolveLead(t *testing.T) {
	inline := aicontenttest.Lead()

	t.Run("inline lead wins", func(t *testing.T) {
		src := new(aicontenttest.MockLeadSource)
		lead, err := aicontent.ResolveLead(context.Background(), src, &inline, "other")
		require.NoError(t, err)
		assert.Equal(t, "lead-1", lead.ID)
		src.AssertNotCalled(t, "GetLead", mock.Anything, mock.Anything)
	})

	t.Run("fetched from CRM", func(t *testing.T) {
		src := new(aicontenttest.MockLeadSource)
		src.On("GetLead", mock.Anything, "lead-1").Return(&inline, nil)

		lead, err := aicontent.ResolveLead(context.Background(), src, nil, "lead-1")
		require.NoError(t, err)
		assert.Equal(t, "Dana Scully", lead.FullName())
		src.AssertExpectations(t)
	})

	tests := []struct {
		name   string
		src    aicontent.LeadSource
		leadID string
		code   errors.ErrorCode
	}{
		{"no id", nil, " ", errors.ErrCodeValidationFailed},
		{"no source", nil, "lead-1", errors.ErrCodeLeadLookupFailed},
		{"not found", failingLeads(fmt.Errorf("lookup: %w", zoho.ErrLeadNotFound)), "lead-9", errors.ErrCodeLeadNotFound},
		{"crm down", failingLeads(stderrors.New("503")), "lead-9", errors.ErrCodeLeadLookupFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := aicontent.ResolveLead(context.Background(), tt.src, nil, tt.leadID)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.Normalize(err).Code)
		})
	}
}

func failingLeads(err error) aicontent.LeadSource {
	src := new(aicontenttest.MockLeadSource)
	src.On("GetLead", mock.Anything, mock.Anything).Return(nil, err)
	return src
}

func TestResolvePipeline(t *testing.T) {
	t.Run("inline leads", func(t *testing.T) {
		leads, err := aicontent.ResolvePipeline(context.Background(), nil, "acct-1", aicontenttest.Pipeline())
		require.NoError(t, err)
		assert.Len(t, leads, 3)
	})

	t.Run("no index", func(t *testing.T) {
		leads, err := aicontent.ResolvePipeline(context.Background(), nil, "acct-1", nil)
		require.NoError(t, err)
		assert.NotNil(t, leads)
		assert.Empty(t, leads)
	})

	t.Run("from index", func(t *testing.T) {
		src := new(aicontenttest.MockPipelineSource)
		src.On("ListAccountLeads", mock.Anything, "acct-1").Return(aicontenttest.Pipeline(), nil)

		leads, err := aicontent.ResolvePipeline(context.Background(), src, "acct-1", nil)
		require.NoError(t, err)
		assert.Len(t, leads, 3)
		src.AssertExpectations(t)
	})

	t.Run("index error", func(t *testing.T) {
		src := new(aicontenttest.MockPipelineSource)
		src.On("ListAccountLeads", mock.Anything, "acct-1").Return(nil, stderrors.New("cluster red"))

		_, err := aicontent.ResolvePipeline(context.Background(), src, "acct-1", nil)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodePipelineLookupFailed, errors.Normalize(err).Code)
	})
}
