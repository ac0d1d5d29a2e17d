package analyzebusiness

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-ai-workers/internal/common/camunda"
	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/extract"
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const TaskType = "analyze-business"

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
	resp, res := h.deps.Service.AnalyzeBusiness(ctx, generation.BusinessAnalysisRequest{
		Common:      input.Generation(),
		Website:     input.Website,
		Description: input.Description,
	})

	var analysis *Analysis
	if res != nil {
		threshold := input.MinConfidence
		if threshold <= 0 {
			threshold = defaultMinConfidence
		}
		analysis = &Analysis{Result: res, Profile: suggestProfile(res, input.Website, threshold)}
	}
	return aicontent.Finish(ctx, h.deps, h.config, TaskType, resp, analysis)
}

// suggestProfile keeps the fields inferred with at least minConfidence.
// It returns nil when no field qualifies.
func suggestProfile(res *extract.BusinessAnalysisResult, website string, minConfidence float64) *models.BusinessProfile {
	p := &models.BusinessProfile{Website: website}
	take := func(f *extract.ScoredField, dst *string) {
		if f != nil && f.Confidence >= minConfidence {
			*dst = f.Value
		}
	}
	take(res.CompanyName, &p.CompanyName)
	take(res.Industry, &p.Industry)
	take(res.Description, &p.Description)
	take(res.TargetAudience, &p.TargetAudience)
	take(res.ValueProposition, &p.ValueProp)
	take(res.Tone, &p.Tone)
	if res.Products != nil && res.Products.Confidence >= minConfidence {
		p.Products = res.Products.Value
	}

	if p.CompanyName == "" && p.Industry == "" && p.Description == "" && p.TargetAudience == "" &&
		p.ValueProp == "" && p.Tone == "" && len(p.Products) == 0 {
		return nil
	}
	return p
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *aicontent.Config {
	return h.config
}
