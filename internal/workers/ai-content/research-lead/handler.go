package researchlead

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
	"crm-ai-workers/internal/generation/extract"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const (
	TaskType = "research-lead"

	maxExcerptRunes = 600
)

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

	resp, kb := h.deps.Service.ResearchLead(ctx, generation.LeadResearchRequest{
		Common: input.Generation(),
		Lead:   lead,
	})

	var research *Research
	if kb != nil {
		research = &Research{LeadID: lead.ID, Knowledge: kb, Excerpt: excerpt(kb)}
	}
	return aicontent.Finish(ctx, h.deps, h.config, TaskType, resp, research)
}

// excerpt condenses the record into the text kept on the lead.
func excerpt(kb *extract.KnowledgeBaseFields) string {
	var parts []string
	if kb.ResearchBrief != "" {
		parts = append(parts, kb.ResearchBrief)
	} else if kb.CompanyOverview != "" {
		parts = append(parts, kb.CompanyOverview)
	}
	if kb.OutreachAngle != "" {
		parts = append(parts, "Angle: "+kb.OutreachAngle)
	}
	if len(kb.TalkingPoints) > 0 {
		parts = append(parts, "Talking points: "+strings.Join(kb.TalkingPoints, "; "))
	}

	text := strings.Join(parts, "\n")
	if r := []rune(text); len(r) > maxExcerptRunes {
		text = strings.TrimSpace(string(r[:maxExcerptRunes])) + "…"
	}
	return text
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *aicontent.Config {
	return h.config
}
