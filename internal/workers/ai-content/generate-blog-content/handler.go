package generateblogcontent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"crm-ai-workers/internal/common/camunda"
	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const TaskType = "generate-blog-content"

var headingRe = regexp.MustCompile(`(?m)^#{1,2}[ \t]+(.+?)[ \t#]*$`)

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
	resp := h.deps.Service.GenerateBlogContent(ctx, generation.BlogRequest{
		Common:   input.Generation(),
		Topic:    input.Topic,
		Audience: input.Audience,
		Tone:     input.Tone,
		Keywords: input.Keywords,
		Words:    input.Words,
	})

	var post *Post
	if resp.OK() {
		post = &Post{
			Title:           title(resp.Text, input.Topic),
			Markdown:        resp.Text,
			WordCount:       len(strings.Fields(resp.Text)),
			MissingKeywords: missingKeywords(resp.Text, input.Keywords),
		}
		if len(post.MissingKeywords) > 0 {
			h.logger.Warn("blog post is missing keywords", map[string]interface{}{
				"missing": post.MissingKeywords,
			})
		}
	}
	return aicontent.Finish(ctx, h.deps, h.config, TaskType, resp, post)
}

// title is the first level one or two heading, or the topic.
func title(markdown, topic string) string {
	if m := headingRe.FindStringSubmatch(markdown); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(topic)
}

func missingKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var missing []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k != "" && !strings.Contains(lower, strings.ToLower(k)) {
			missing = append(missing, k)
		}
	}
	return missing
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) GetConfig() *aicontent.Config {
	return h.config
}
