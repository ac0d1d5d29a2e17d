package llm

import (
	"context"
	"errors"
	"io"
	"iter"

	openai "github.com/sashabaranov/go-openai"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/stream"
)

// OpenAIModel calls the chat completions API.
type OpenAIModel struct {
	client *openai.Client
	cfg    Config
	logger logger.Logger
}

func NewOpenAI(cfg Config, log logger.Logger) *OpenAIModel {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &OpenAIModel{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"provider": ProviderOpenAI, "model": cfg.Model}),
	}
}

func (o *OpenAIModel) Name() string { return o.cfg.Model }

func (o *OpenAIModel) Generate(ctx context.Context, req generation.Request) (generation.Reply, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(req))
	if err != nil {
		return generation.Reply{}, classifyOpenAI(err)
	}

	reply := generation.Reply{TotalTokens: resp.Usage.TotalTokens, Model: resp.Model}
	if len(resp.Choices) > 0 {
		reply.Text = resp.Choices[0].Message.Content
	}
	return reply, nil
}

func (o *OpenAIModel) GenerateStream(ctx context.Context, req generation.Request) iter.Seq2[stream.Chunk, error] {
	return func(yield func(stream.Chunk, error) bool) {
		r := o.request(req)
		r.Stream = true
		r.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

		s, err := o.client.CreateChatCompletionStream(ctx, r)
		if err != nil {
			yield(stream.Chunk{}, classifyOpenAI(err))
			return
		}
		defer s.Close()

		for {
			resp, err := s.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(stream.Chunk{}, classifyOpenAI(err))
				return
			}

			var chunk stream.Chunk
			if len(resp.Choices) > 0 {
				chunk.Text = resp.Choices[0].Delta.Content
			}
			if resp.Usage != nil {
				chunk.TotalTokens = resp.Usage.TotalTokens
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (o *OpenAIModel) request(req generation.Request) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemInstruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemInstruction})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	r := openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    msgs,
		Temperature: o.cfg.temperature(req),
		MaxTokens:   o.cfg.maxTokens(req),
	}
	if req.JSON {
		r.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	if req.GoogleSearch {
		o.logger.Debug("search grounding not supported, sending plain completion", map[string]interface{}{
			"kind": req.Kind.String(),
		})
	}
	return r
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classify(ProviderOpenAI, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classify(ProviderOpenAI, reqErr.HTTPStatusCode, err)
	}
	return classify(ProviderOpenAI, 0, err)
}
