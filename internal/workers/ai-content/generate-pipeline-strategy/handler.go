package generatepipelinestrategy

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-ai-workers/internal/common/camunda"
	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/fallback"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const TaskType = "generate-pipeline-strategy"

type Handler struct {
	config *aicontent.Config
	deps   *aicontent.Dependencies
	runner *camunda.JobRunner
	logger logger.Logger
	now    func() time.Time
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

	return &Handler{config: cfg, deps: opts.Deps, runner: runner, logger: runner.Logger, now: time.Now}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	stats := input.Stats
	if stats == nil {
		leads, err := aicontent.ResolvePipeline(ctx, h.deps.Pipeline, input.AccountID, input.Leads)
		if err != nil {
			return nil, err
		}
		s := fallback.Summarize(leads, h.now())
		stats = &s
	}

	resp, res := h.deps.Service.PipelineStrategy(ctx, generation.PipelineStrategyRequest{
		Common:      input.Generation(),
		Stats:       stats,
		Goal:        input.Goal,
		HorizonDays: input.HorizonDays,
	})

	var strategy *Strategy
	if res != nil {
		strategy = &Strategy{PipelineStrategyResult: res, Stats: *stats}
	}
	return aicontent.Finish(ctx, h.deps, h.config, TaskType, resp, strategy)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *aicontent.Config {
	return h.config
}
