package camunda

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-ai-workers/internal/common/errors"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/validation"
)

// ==========================
// Test Helpers
// ==========================

func createMockJob(key int64, variables interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               "generate-outreach-message",
		ProcessInstanceKey: key * 10,
		Retries:            3,
		CustomHeaders:      "{}",
		Variables:          string(variablesJSON),
	}}
}

var testSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["accountId"],
	"properties": {"accountId": {"type": "string", "minLength": 1}, "steps": {"type": "integer"}}
}`)

type testInput struct {
	AccountID string `json:"accountId"`
	Steps     int    `json:"steps"`
}

// ==========================
// Decode
// ==========================

func TestJobRunner_Decode(t *testing.T) {
	r := NewJobRunner("test-task", time.Second, testSchema, logger.NewTestLogger(t), nil)

	var in testInput
	err := r.Decode(createMockJob(1, map[string]interface{}{"accountId": "a1", "steps": 4}), &in)

	require.NoError(t, err)
	assert.Equal(t, testInput{AccountID: "a1", Steps: 4}, in)
}

func TestJobRunner_Decode_ValidationErrors(t *testing.T) {
	r := NewJobRunner("test-task", time.Second, testSchema, logger.NewTestLogger(t), nil)

	tests := []struct {
		name      string
		variables interface{}
		contains  string
	}{
		{"missing account", map[string]interface{}{"steps": 4}, "accountId"},
		{"wrong type", map[string]interface{}{"accountId": "a1", "steps": "four"}, "steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in testInput
			err := r.Decode(createMockJob(1, tt.variables), &in)

			require.Error(t, err)
			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
			assert.Contains(t, stdErr.Details, tt.contains)
		})
	}
}

func TestJobRunner_Decode_NoSchema(t *testing.T) {
	r := NewJobRunner("test-task", time.Second, nil, nil, nil)

	var in testInput
	job := createMockJob(1, nil)
	job.Variables = `{"accountId": 12}`

	err := r.Decode(job, &in)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.Normalize(err).Code)
}

// ==========================
// Retry
// ==========================

func TestWithRetry(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("transient then success", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), rc, logger.NewTestLogger(t), "op", func(context.Context) error {
			calls++
			if calls < 3 {
				return stderrors.New("rpc error: code = Unavailable")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error stops", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), rc, logger.NewTestLogger(t), "op", func(context.Context) error {
			calls++
			return stderrors.New("permission denied")
		})
		assert.EqualError(t, err, "permission denied")
		assert.Equal(t, 1, calls)
	})

	t.Run("budget exhausted", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), rc, logger.NewTestLogger(t), "op", func(context.Context) error {
			calls++
			return stderrors.New("connection refused")
		})
		assert.Error(t, err)
		assert.Equal(t, 4, calls)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
		err := withRetry(ctx, slow, logger.NewTestLogger(t), "op", func(context.Context) error {
			return stderrors.New("timeout")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
