// Package aicontent holds what the content workers share: collaborator
// lookups, per-worker configuration and the variables a job completes with.
package aicontent

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/errors"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/observability"
	"crm-ai-workers/internal/common/zoho"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/models"
)

// LeadSource looks a single lead up in the CRM.
type LeadSource interface {
	GetLead(ctx context.Context, leadID string) (*models.Lead, error)
}

// PipelineSource lists the leads of an account.
type PipelineSource interface {
	ListAccountLeads(ctx context.Context, accountID string) ([]models.Lead, error)
}

// Dependencies are shared by every content worker. Leads and Pipeline may
// be nil, in which case jobs must carry the records inline.
type Dependencies struct {
	Service  *generation.Service
	Leads    LeadSource
	Pipeline PipelineSource
	Logger   logger.Logger
	Obs      *observability.Observability
}

type Config struct {
	Enabled           bool
	MaxJobsActive     int
	Timeout           time.Duration
	FailOnUnavailable bool
}

// LoadConfig reads the worker section for taskType. A missing section or
// timeout keeps defaultTimeout.
func LoadConfig(appConfig *config.Config, taskType string, defaultTimeout time.Duration) *Config {
	cfg := &Config{Enabled: true, MaxJobsActive: 5, Timeout: defaultTimeout}
	if appConfig == nil {
		return cfg
	}
	wc, ok := appConfig.Workers[taskType]
	if !ok {
		return cfg
	}
	cfg.Enabled = wc.Enabled
	cfg.FailOnUnavailable = wc.FailOnUnavailable
	if wc.MaxJobsActive > 0 {
		cfg.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}

// Common identifies the account a job runs for.
type Common struct {
	AccountID string                  `json:"accountId"`
	Business  *models.BusinessProfile `json:"business,omitempty"`
}

func (c Common) Generation() generation.Common {
	return generation.Common{AccountID: c.AccountID, Business: c.Business}
}

// Output is what a content job completes with. Available is false when the
// response is an unavailable envelope; Payload is then the zero value.
type Output[P any] struct {
	Response  generation.AIResponse `json:"response"`
	Payload   P                     `json:"payload,omitempty"`
	Available bool                  `json:"available"`
}

func NewOutput[P any](resp generation.AIResponse, payload P) *Output[P] {
	return &Output[P]{
		Response:  resp,
		Payload:   payload,
		Available: !generation.IsUnavailable(resp),
	}
}

// Finish wraps resp for job completion. With FailOnUnavailable an
// unavailable envelope becomes a job error instead.
func Finish[P any](ctx context.Context, deps *Dependencies, cfg *Config, taskType string, resp generation.AIResponse, payload P) (*Output[P], error) {
	out := NewOutput(resp, payload)
	deps.Obs.RecordTokens(ctx, taskType, resp.TokensUsed)

	if !out.Available && cfg.FailOnUnavailable {
		return nil, UnavailableError(resp)
	}
	return out, nil
}

// UnavailableError maps an unavailable envelope to the job error raised
// when a worker is configured to fail on it.
func UnavailableError(resp generation.AIResponse) *errors.StandardError {
	var err *errors.StandardError
	switch {
	case resp.Failure == generation.FailureQuota:
		err = errors.NewCreditsExhaustedError(orText(resp.Notice, resp.Text))
	case strings.HasPrefix(resp.Text, generation.SentinelOverloaded):
		err = errors.NewLLMTimeoutError(resp.Text)
	default:
		err = errors.NewLLMSynthesisFailedError(resp.Text)
	}
	return err.WithMetadata("kind", resp.Kind.String())
}

// ResolveLead returns the inline lead when present and otherwise fetches
// leadID from the CRM.
func ResolveLead(ctx context.Context, src LeadSource, inline *models.Lead, leadID string) (models.Lead, error) {
	if inline != nil {
		return *inline, nil
	}
	if strings.TrimSpace(leadID) == "" {
		return models.Lead{}, errors.NewValidationFailedError("either lead or leadId is required")
	}
	if src == nil {
		return models.Lead{}, errors.NewLeadLookupFailedError(stderrors.New("no CRM client configured"))
	}

	lead, err := src.GetLead(ctx, leadID)
	if err != nil {
		if stderrors.Is(err, zoho.ErrLeadNotFound) {
			return models.Lead{}, errors.NewLeadNotFoundError(leadID)
		}
		return models.Lead{}, errors.NewLeadLookupFailedError(err)
	}
	return *lead, nil
}

// ResolvePipeline returns the inline leads when the job carries them and
// otherwise lists the account's leads from the search index. Without an
// index the pipeline is empty.
func ResolvePipeline(ctx context.Context, src PipelineSource, accountID string, inline []models.Lead) ([]models.Lead, error) {
	if inline != nil {
		return inline, nil
	}
	if src == nil {
		return []models.Lead{}, nil
	}

	leads, err := src.ListAccountLeads(ctx, accountID)
	if err != nil {
		return nil, errors.NewPipelineLookupFailedError(err)
	}
	return leads, nil
}

func orText(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
