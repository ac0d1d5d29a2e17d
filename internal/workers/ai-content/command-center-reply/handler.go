package commandcenterreply

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-ai-workers/internal/common/camunda"
	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const TaskType = "command-center-reply"

type Handler struct {
	config *aicontent.Config
	deps   *aicontent.Dependencies
	runner *camunda.JobRunner
	logger logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *aicontent.Config
	Deps         *aicontent.Dependencies
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Deps == nil || opts.Deps.Service == nil {
		return nil, fmt.Errorf("invalid dependencies for %s: generation service is required", TaskType)
	}
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	log := opts.Deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	runner := camunda.NewJobRunner(TaskType, cfg.Timeout, inputSchema, log, opts.Deps.Obs)

	return &Handler{config: cfg, deps: opts.Deps, runner: runner, logger: runner.Logger}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

// Execute always produces an answer. When the model cannot be used the
// answer is computed from the pipeline statistics instead.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	req := generation.ChatRequest{
		Common:   input.Generation(),
		Question: input.Question,
		Stats:    input.Stats,
		History:  input.History,
	}
	if input.Stats == nil {
		leads, err := aicontent.ResolvePipeline(ctx, h.deps.Pipeline, input.AccountID, input.Leads)
		if err != nil {
			return nil, err
		}
		req.Leads = leads
	}

	var (
		resp   generation.AIResponse
		chunks atomic.Int32
	)
	if input.Stream {
		resp = h.deps.Service.StreamCommandCenterReply(ctx, req, func(delta, _ string) {
			n := chunks.Add(1)
			h.logger.Debug("reply chunk received", map[string]interface{}{
				"chunk": n,
				"bytes": len(delta),
			})
		})
	} else {
		resp = h.deps.Service.CommandCenterReply(ctx, req)
	}

	answer := &Answer{Text: resp.Text, Source: SourceModel, Chunks: int(chunks.Load())}
	if resp.Degraded {
		// Partial model chunks are not part of a template answer.
		answer.Source = SourceTemplate
		answer.Chunks = 0
	}
	return aicontent.Finish(ctx, h.deps, h.config, TaskType, resp, answer)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *aicontent.Config {
	return h.config
}
