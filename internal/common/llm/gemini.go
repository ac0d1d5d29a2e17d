package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/stream"
)

// GeminiModel calls the Gemini API through the genai SDK.
type GeminiModel struct {
	client *genai.Client
	cfg    Config
	logger logger.Logger
}

func NewGemini(ctx context.Context, cfg Config, log logger.Logger) (*GeminiModel, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &GeminiModel{
		client: client,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"provider": ProviderGemini, "model": cfg.Model}),
	}, nil
}

func (g *GeminiModel) Name() string { return g.cfg.Model }

func (g *GeminiModel) Generate(ctx context.Context, req generation.Request) (generation.Reply, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents(req), g.config(req))
	if err != nil {
		return generation.Reply{}, classifyGemini(err)
	}

	reply := generation.Reply{Text: resp.Text(), Model: resp.ModelVersion}
	if resp.UsageMetadata != nil {
		reply.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return reply, nil
}

// GenerateStream ranges over the SDK stream; breaking out of the range
// closes the underlying HTTP response.
func (g *GeminiModel) GenerateStream(ctx context.Context, req generation.Request) iter.Seq2[stream.Chunk, error] {
	return func(yield func(stream.Chunk, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.cfg.Model, contents(req), g.config(req)) {
			if err != nil {
				yield(stream.Chunk{}, classifyGemini(err))
				return
			}
			chunk := stream.Chunk{Text: resp.Text()}
			if resp.UsageMetadata != nil {
				chunk.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func contents(req generation.Request) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
}

func (g *GeminiModel) config(req generation.Request) *genai.GenerateContentConfig {
	return buildGeminiConfig(g.cfg, req)
}

func buildGeminiConfig(cfg Config, req generation.Request) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(cfg.temperature(req)),
	}
	if n := cfg.maxTokens(req); n > 0 {
		gc.MaxOutputTokens = int32(n)
	}
	if req.SystemInstruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	// Search grounding cannot be combined with a JSON response type.
	switch {
	case req.GoogleSearch:
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case req.JSON:
		gc.ResponseMIMEType = "application/json"
	}
	return gc
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classify(ProviderGemini, apiErr.Code, err)
	}
	return classify(ProviderGemini, 0, err)
}
