package generateoutreachmessage

import (
	"context"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-ai-workers/internal/common/camunda"
	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const TaskType = "generate-outreach-message"

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

	return &Handler{
		config: cfg,
		deps:   opts.Deps,
		runner: runner,
		logger: runner.Logger,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	lead, err := aicontent.ResolveLead(ctx, h.deps.Leads, input.Lead, input.LeadID)
	if err != nil {
		return nil, err
	}

	channel := input.Channel
	if channel == "" {
		channel = "email"
	}
	resp := h.deps.Service.GenerateOutreachMessage(ctx, generation.OutreachRequest{
		Common:   input.Generation(),
		Lead:     lead,
		Channel:  channel,
		Goal:     input.Goal,
		Tone:     input.Tone,
		MaxWords: input.MaxWords,
	})

	var msg *Message
	if resp.OK() {
		msg = &Message{
			LeadID:    lead.ID,
			Channel:   channel,
			Body:      resp.Text,
			WordCount: len(strings.Fields(resp.Text)),
		}
	}
	return aicontent.Finish(ctx, h.deps, h.config, TaskType, resp, msg)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *aicontent.Config {
	return h.config
}
