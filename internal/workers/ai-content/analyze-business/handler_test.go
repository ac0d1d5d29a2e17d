package analyzebusiness

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-ai-workers/internal/common/errors"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/extract"
	"crm-ai-workers/internal/generation/generationtest"
	aicontent "crm-ai-workers/internal/workers/ai-content"
	"crm-ai-workers/internal/workers/ai-content/aicontenttest"
)

const analysisReply = "```json\n" + `{
	"companyName": {"value": "Lone Gunmen Software", "confidence": 0.95},
	"industry": {"value": "Logistics SaaS", "confidence": 0.8},
	"targetAudience": {"value": "regional carriers", "confidence": 0.4},
	"tone": "plainspoken",
	"products": {"value": ["RoutePilot", " "], "confidence": 0.7},
	"socialLinks": {"LinkedIn": "https://linkedin.example/lgs"},
	"followUpQuestions": ["Who is your largest customer?"]
}` + "\n```"

func createTestHandler(t *testing.T, model generation.Model, failOnUnavailable bool) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: aicontenttest.Config(failOnUnavailable),
		Deps:         aicontenttest.Dependencies(t, model, nil, nil),
	})
	require.NoError(t, err)
	return h
}

func TestHandler_Execute(t *testing.T) {
	model := generationtest.Reply(analysisReply)
	h := createTestHandler(t, model, false)

	out, err := h.Execute(context.Background(), &Input{
		Common:  aicontent.Common{AccountID: "acct-1"},
		Website: "https://lonegunmen.example",
	})

	require.NoError(t, err)
	assert.True(t, out.Available)
	require.NotNil(t, out.Payload)

	res := out.Payload.Result
	assert.Equal(t, 0.95, res.CompanyName.Confidence)
	assert.Equal(t, 0.5, res.Tone.Confidence)
	assert.Equal(t, []string{"RoutePilot"}, res.Products.Value)
	assert.Equal(t, map[string]string{"linkedin": "https://linkedin.example/lgs"}, res.SocialLinks)

	profile := out.Payload.Profile
	require.NotNil(t, profile)
	assert.Equal(t, "Lone Gunmen Software", profile.CompanyName)
	assert.Equal(t, "Logistics SaaS", profile.Industry)
	assert.Empty(t, profile.TargetAudience)
	assert.Empty(t, profile.Tone)
	assert.Equal(t, []string{"RoutePilot"}, profile.Products)
	assert.Equal(t, "https://lonegunmen.example", profile.Website)

	assert.Contains(t, model.LastRequest().Prompt, "https://lonegunmen.example")
}

func TestHandler_Execute_MinConfidence(t *testing.T) {
	h := createTestHandler(t, generationtest.Reply(analysisReply), false)

	out, err := h.Execute(context.Background(), &Input{
		Common:        aicontent.Common{AccountID: "acct-1"},
		Description:   "We build routing software.",
		MinConfidence: 0.3,
	})

	require.NoError(t, err)
	assert.Equal(t, "regional carriers", out.Payload.Profile.TargetAudience)
	assert.Equal(t, "plainspoken", out.Payload.Profile.Tone)
}

func TestHandler_Execute_NotJSON(t *testing.T) {
	h := createTestHandler(t, generationtest.Reply("The site looks like a logistics company."), false)

	out, err := h.Execute(context.Background(), &Input{Common: aicontent.Common{AccountID: "acct-1"}, Website: "https://x.example"})

	require.NoError(t, err)
	assert.Nil(t, out.Payload)
	assert.Equal(t, generation.FailureParse, out.Response.Failure)
}

func TestHandler_Execute_Overloaded(t *testing.T) {
	h := createTestHandler(t, generationtest.Failing(stderrors.New("429 too many requests")), true)

	_, err := h.Execute(context.Background(), &Input{Common: aicontent.Common{AccountID: "acct-1"}, Website: "https://x.example"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLLMTimeout, errors.Normalize(err).Code)
}

func TestSuggestProfile_NothingConfident(t *testing.T) {
	res := &extract.BusinessAnalysisResult{
		Industry: &extract.ScoredField{Value: "Retail", Confidence: 0.2},
	}
	assert.Nil(t, suggestProfile(res, "https://x.example", defaultMinConfidence))
}

func TestHandler_Decode(t *testing.T) {
	h := createTestHandler(t, generationtest.Reply(analysisReply), false)

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{"website", map[string]interface{}{"accountId": "a", "website": "https://x.example"}, false},
		{"description", map[string]interface{}{"accountId": "a", "description": "We sell boats"}, false},
		{"business only", map[string]interface{}{"accountId": "a", "business": map[string]interface{}{"companyName": "X"}}, false},
		{"nothing to analyze", map[string]interface{}{"accountId": "a"}, true},
		{"confidence out of range", map[string]interface{}{"accountId": "a", "website": "https://x.example", "minConfidence": 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Input
			err := h.runner.Decode(aicontenttest.CreateMockJob(4, TaskType, tt.variables), &in)
			assert.Equal(t, tt.wantErr, err != nil, "err: %v", err)
		})
	}
}
