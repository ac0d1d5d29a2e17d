package generateemailsequence

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-ai-workers/internal/common/camunda"
	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const TaskType = "generate-email-sequence"

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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	lead, err := aicontent.ResolveLead(ctx, h.deps.Leads, input.Lead, input.LeadID)
	if err != nil {
		return nil, err
	}

	resp, steps := h.deps.Service.GenerateEmailSequence(ctx, generation.EmailSequenceRequest{
		Common:      input.Generation(),
		Lead:        lead,
		Steps:       input.Steps,
		CadenceDays: input.CadenceDays,
		Goal:        input.Goal,
		Tone:        input.Tone,
	})

	var seq *Sequence
	if len(steps) > 0 {
		seq = &Sequence{
			LeadID:    lead.ID,
			Steps:     steps,
			Segmented: resp.Confidence == generation.ConfidenceLow,
		}
		h.logger.Info("email sequence generated", map[string]interface{}{
			"leadId":    lead.ID,
			"steps":     len(steps),
			"segmented": seq.Segmented,
		})
	}
	return aicontent.Finish(ctx, h.deps, h.config, TaskType, resp, seq)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *aicontent.Config {
	return h.config
}
