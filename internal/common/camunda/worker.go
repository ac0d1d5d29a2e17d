package camunda

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/errors"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/metrics"
	"crm-ai-workers/internal/common/observability"
	"crm-ai-workers/internal/common/validation"
)

// JobRunner carries what every job handler does around its own logic:
// schema validation, decoding, a deadline, completion and error reporting.
type JobRunner struct {
	TaskType string
	Timeout  time.Duration
	Schema   *validation.Schema
	Logger   logger.Logger
	Obs      *observability.Observability

	errors *errors.ErrorHandler
}

func NewJobRunner(taskType string, timeout time.Duration, schema *validation.Schema, log logger.Logger, obs *observability.Observability) *JobRunner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	return &JobRunner{
		TaskType: taskType,
		Timeout:  timeout,
		Schema:   schema,
		Logger:   log,
		Obs:      obs,
		errors:   errors.NewErrorHandler(log),
	}
}

// Decode validates the job variables against the runner's schema and
// unmarshals them into in.
func (r *JobRunner) Decode(job entities.Job, in interface{}) error {
	if r.Schema != nil {
		var doc interface{}
		if err := json.Unmarshal([]byte(job.Variables), &doc); err != nil {
			return errors.NewValidationFailedError("variables are not valid JSON: " + err.Error())
		}
		if res := r.Schema.Validate(doc); !res.Valid {
			return errors.NewValidationFailedError(res.Summary())
		}
	}
	if err := json.Unmarshal([]byte(job.Variables), in); err != nil {
		return errors.NewValidationFailedError("variables do not match the expected shape: " + err.Error())
	}
	return nil
}

// Process runs exec for one job and completes or fails it. It is a function
// rather than a method so that handlers keep their typed input and output.
func Process[I any, O any](r *JobRunner, client worker.JobClient, job entities.Job, exec func(context.Context, *I) (*O, error)) {
	start := time.Now()
	r.Logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	var in I
	if err := r.Decode(job, &in); err != nil {
		r.fail(ctx, client, job, err, start)
		return
	}

	out, err := exec(ctx, &in)
	if err != nil {
		r.fail(ctx, client, job, err, start)
		return
	}

	r.complete(ctx, client, job, out, start)
}

func (r *JobRunner) complete(ctx context.Context, client worker.JobClient, job entities.Job, out interface{}, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(out)
	if err != nil {
		r.Logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		r.fail(ctx, client, job, errors.NewInternalError(err), start)
		return
	}

	// The job deadline may already be spent by the handler; completion gets
	// its own budget.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := cmd.Send(sendCtx); err != nil {
		r.Logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	elapsed := time.Since(start)
	metrics.WorkerJobsCompleted.WithLabelValues(r.TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.TaskType).Observe(elapsed.Seconds())
	r.Obs.RecordJobProcessed(ctx, r.TaskType, "completed")
	r.Obs.RecordJobDuration(ctx, r.TaskType, elapsed, "completed")

	r.Logger.Info("job completed", map[string]interface{}{
		"jobKey":     job.Key,
		"durationMs": elapsed.Milliseconds(),
	})
}

func (r *JobRunner) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := errors.Normalize(err)
	elapsed := time.Since(start)

	metrics.WorkerJobsFailed.WithLabelValues(r.TaskType, string(stdErr.Code)).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.TaskType).Observe(elapsed.Seconds())
	r.Obs.RecordJobProcessed(ctx, r.TaskType, "failed")
	r.Obs.RecordJobDuration(ctx, r.TaskType, elapsed, "failed")

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	r.errors.HandleJobError(sendCtx, client, job, stdErr)
}

// StartWorker opens a job worker for taskType when it is enabled.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	w := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
	return w
}
