// Package aicontenttest provides mocks and job fixtures for the content
// worker tests.
package aicontenttest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/mock"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/generationtest"
	"crm-ai-workers/internal/models"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

// ==========================
// Mock Collaborators
// ==========================

type MockLeadSource struct {
	mock.Mock
}

func (m *MockLeadSource) GetLead(ctx context.Context, leadID string) (*models.Lead, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

type MockPipelineSource struct {
	mock.Mock
}

func (m *MockPipelineSource) ListAccountLeads(ctx context.Context, accountID string) ([]models.Lead, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Lead), args.Error(1)
}

// ==========================
// Fixtures
// ==========================

// CreateMockJob builds an activated job carrying variables.
func CreateMockJob(key int64, taskType string, variables interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	activatedJob := &pb.ActivatedJob{
		Key:                      key,
		Type:                     taskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "crm-content",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_" + taskType,
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Variables:                string(variablesJSON),
	}
	return entities.Job{ActivatedJob: activatedJob}
}

// Lead is a qualified lead contacted a week before generationtest.Now.
func Lead() models.Lead {
	contacted := generationtest.Now.AddDate(0, 0, -7)
	return models.Lead{
		ID:              "lead-1",
		FirstName:       "Dana",
		LastName:        "Scully",
		Company:         "Quantico Analytics",
		Title:           "Head of Operations",
		Email:           "dana@quantico.example",
		Industry:        "Logistics",
		Status:          models.LeadStatusQualified,
		Score:           82,
		Value:           24000,
		LastContactedAt: &contacted,
		CreatedAt:       generationtest.Now.AddDate(0, -1, 0),
	}
}

// Pipeline is a small mixed pipeline around Lead.
func Pipeline() []models.Lead {
	cold := Lead()
	cold.ID, cold.FirstName, cold.LastName = "lead-2", "Walter", "Skinner"
	cold.Status, cold.Score, cold.Value = models.LeadStatusNew, 20, 5000
	stale := generationtest.Now.AddDate(0, 0, -30)
	cold.LastContactedAt = &stale

	won := Lead()
	won.ID, won.FirstName, won.LastName = "lead-3", "John", "Doggett"
	won.Status, won.Score, won.Value = models.LeadStatusWon, 95, 40000

	return []models.Lead{Lead(), cold, won}
}

func Business() *models.BusinessProfile {
	return &models.BusinessProfile{
		CompanyName:    "Lone Gunmen Software",
		Industry:       "B2B SaaS",
		Description:    "Route planning for regional carriers.",
		TargetAudience: "operations leaders at mid-size carriers",
		Website:        "https://lonegunmen.example",
		Tone:           "friendly",
	}
}

// Dependencies wires a scripted model into a Service with the given
// collaborators.
func Dependencies(t *testing.T, model generation.Model, leads aicontent.LeadSource, pipeline aicontent.PipelineSource) *aicontent.Dependencies {
	t.Helper()
	return &aicontent.Dependencies{
		Service:  generationtest.NewService(t, model, generation.Options{}),
		Leads:    leads,
		Pipeline: pipeline,
		Logger:   logger.NewTestLogger(t),
	}
}

// Config returns a worker config with a generous timeout.
func Config(failOnUnavailable bool) *aicontent.Config {
	return &aicontent.Config{
		Enabled:           true,
		MaxJobsActive:     5,
		Timeout:           5 * time.Second,
		FailOnUnavailable: failOnUnavailable,
	}
}
