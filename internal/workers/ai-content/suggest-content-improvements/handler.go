package suggestcontentimprovements

import (
	"context"
	"fmt"
	"sort"
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

const TaskType = "suggest-content-improvements"

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
	resp, suggestions := h.deps.Service.SuggestContentImprovements(ctx, generation.ContentImprovementRequest{
		Common:      input.Generation(),
		Content:     input.Content,
		ContentType: input.ContentType,
		Goal:        input.Goal,
	})

	var imp *Improvements
	if len(suggestions) > 0 {
		sort.SliceStable(suggestions, func(i, j int) bool {
			return suggestions[i].ImpactPercent > suggestions[j].ImpactPercent
		})
		imp = &Improvements{Suggestions: suggestions}
		if input.ApplyRewrites {
			imp.Revised, imp.Applied = applyRewrites(input.Content, suggestions)
		}
	}
	return aicontent.Finish(ctx, h.deps, h.config, TaskType, resp, imp)
}

// applyRewrites replaces the first occurrence of each suggestion's original
// text. Suggestions whose original text is no longer present are skipped.
func applyRewrites(content string, suggestions []extract.ContentSuggestion) (string, int) {
	applied := 0
	for _, s := range suggestions {
		if s.OriginalText == "" || s.Replacement == "" {
			continue
		}
		if !strings.Contains(content, s.OriginalText) {
			continue
		}
		content = strings.Replace(content, s.OriginalText, s.Replacement, 1)
		applied++
	}
	return content, applied
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *aicontent.Config {
	return h.config
}
