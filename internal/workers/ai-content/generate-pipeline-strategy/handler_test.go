package generatepipelinestrategy

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crm-ai-workers/internal/common/errors"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/generationtest"
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
	"crm-ai-workers/internal/workers/ai-content/aicontenttest"
)

const strategyReply = `===FIELD===RECOMMENDATIONS: Call Dana this week | Re-engage Walter===END===
===FIELD===SPRINT_GOALS: Two proposals out===END===
===FIELD===RISKS: One stale lead===END===
===FIELD===PRIORITY_ACTIONS: Book a demo with Quantico===END===`

func createTestHandler(t *testing.T, model generation.Model, pipeline aicontent.PipelineSource, failOnUnavailable bool) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: aicontenttest.Config(failOnUnavailable),
		Deps:         aicontenttest.Dependencies(t, model, nil, pipeline),
	})
	require.NoError(t, err)
	h.now = func() time.Time { return generationtest.Now }
	return h
}

func TestHandler_Execute(t *testing.T) {
	src := new(aicontenttest.MockPipelineSource)
	src.On("ListAccountLeads", mock.Anything, "acct-1").Return(aicontenttest.Pipeline(), nil)
	model := generationtest.Reply(strategyReply)
	h := createTestHandler(t, model, src, false)

	out, err := h.Execute(context.Background(), &Input{
		Common:      aicontent.Common{AccountID: "acct-1", Business: aicontenttest.Business()},
		HorizonDays: 30,
	})

	require.NoError(t, err)
	assert.True(t, out.Available)
	require.NotNil(t, out.Payload)
	assert.Equal(t, []string{"Call Dana this week", "Re-engage Walter"}, out.Payload.Recommendations)
	assert.Equal(t, []string{"Book a demo with Quantico"}, out.Payload.PriorityActions)
	assert.Equal(t, 3, out.Payload.Stats.TotalLeads)
	assert.Equal(t, 1, out.Payload.Stats.WonLeads)

	prompt := model.LastRequest().Prompt
	assert.Contains(t, prompt, "next 30 days")
	assert.Contains(t, prompt, "Total leads: 3")
	src.AssertExpectations(t)
}

func TestHandler_Execute_InlineStats(t *testing.T) {
	model := generationtest.Reply(strategyReply)
	h := createTestHandler(t, model, nil, false)
	stats := &models.PipelineStats{TotalLeads: 40, ActiveLeads: 30, WonLeads: 5}

	out, err := h.Execute(context.Background(), &Input{Common: aicontent.Common{AccountID: "acct-1"}, Stats: stats})

	require.NoError(t, err)
	assert.Equal(t, 40, out.Payload.Stats.TotalLeads)
	assert.Contains(t, model.LastRequest().Prompt, "Total leads: 40")
}

func TestHandler_Execute_EmptyPipeline(t *testing.T) {
	model := generationtest.Reply(strategyReply)
	h := createTestHandler(t, model, nil, false)

	out, err := h.Execute(context.Background(), &Input{Common: aicontent.Common{AccountID: "acct-1"}})

	require.NoError(t, err)
	assert.Zero(t, out.Payload.Stats.TotalLeads)
	assert.Contains(t, model.LastRequest().Prompt, "The pipeline has no leads.")
}

func TestHandler_Execute_Unavailable(t *testing.T) {
	h := createTestHandler(t, generationtest.Failing(stderrors.New("deadline exceeded")), nil, false)

	out, err := h.Execute(context.Background(), &Input{Common: aicontent.Common{AccountID: "acct-1"}, Leads: aicontenttest.Pipeline()})

	require.NoError(t, err)
	assert.False(t, out.Available)
	assert.Nil(t, out.Payload)
}

func TestHandler_Decode(t *testing.T) {
	h := createTestHandler(t, generationtest.Reply(strategyReply), nil, false)

	var in Input
	err := h.runner.Decode(aicontenttest.CreateMockJob(6, TaskType, map[string]interface{}{
		"accountId":   "acct-1",
		"horizonDays": 0,
	}), &in)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.Normalize(err).Code)
}
