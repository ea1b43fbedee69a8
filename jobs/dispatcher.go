package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"stock-hub/models"
	"stock-hub/observability"
)

// Dispatcher errors. The API layer maps ErrQueueUnavailable to a
// synchronous fallback and ErrJobNotFound to a 404.
var (
	ErrQueueUnavailable = errors.New("job queue unavailable")
	ErrJobNotFound      = errors.New("job not found")
)

// Dispatcher enqueues prediction tasks and reports their status. A nil
// Dispatcher means no queue is configured; Enqueue then fails with
// ErrQueueUnavailable so callers fall back to synchronous work.
type Dispatcher struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

// NewDispatcher connects to the queue's Redis backend. Returns nil when
// the URL is empty or malformed so, like the cache, the service degrades
// instead of failing to start.
func NewDispatcher(redisURL, queue string) *Dispatcher {
	if redisURL == "" {
		observability.Warn("Redis URL not configured, job queue disabled")
		return nil
	}

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		observability.WithError(err).Warn("Invalid Redis URL, job queue disabled")
		return nil
	}

	if queue == "" {
		queue = "default"
	}

	return &Dispatcher{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     queue,
	}
}

// EnqueuePredict queues a prediction task and returns its job ID.
func (d *Dispatcher) EnqueuePredict(ctx context.Context, symbol, modelVersion string) (string, error) {
	if d == nil {
		return "", ErrQueueUnavailable
	}

	task, err := NewPredictTask(symbol, modelVersion)
	if err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	info, err := d.client.EnqueueContext(ctx, task,
		asynq.Queue(d.queue),
		asynq.TaskID(jobID),
		asynq.MaxRetry(3),
		asynq.Retention(resultRetention),
	)
	if err != nil {
		observability.GetMetrics().RecordJobEnqueue(TypePredict, "error")
		return "", fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	observability.GetMetrics().RecordJobEnqueue(TypePredict, "ok")
	observability.WithJob(info.ID).Info("Enqueued prediction task", "symbol", symbol)
	return info.ID, nil
}

// JobStatus reports the current state of a job, including its result once
// done and its last error once failed.
func (d *Dispatcher) JobStatus(ctx context.Context, jobID string) (*models.Job, error) {
	if d == nil {
		return nil, ErrQueueUnavailable
	}

	info, err := d.inspector.GetTaskInfo(d.queue, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	job := &models.Job{
		ID:     jobID,
		Status: mapTaskState(info.State),
	}

	switch info.State {
	case asynq.TaskStateCompleted:
		if len(info.Result) > 0 {
			var result models.PredictionResult
			if err := json.Unmarshal(info.Result, &result); err == nil {
				job.Result = &result
			}
		}
	case asynq.TaskStateArchived:
		job.Error = info.LastErr
	}

	return job, nil
}

// mapTaskState folds asynq's task states into the four job statuses the
// API exposes. Unknown states pass through verbatim.
func mapTaskState(state asynq.TaskState) models.JobStatus {
	switch state {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateRetry:
		return models.JobQueued
	case asynq.TaskStateActive:
		return models.JobRunning
	case asynq.TaskStateCompleted:
		return models.JobDone
	case asynq.TaskStateArchived:
		return models.JobFailed
	default:
		return models.JobStatus(state.String())
	}
}

// Healthy reports whether the queue backend answers.
func (d *Dispatcher) Healthy(ctx context.Context) bool {
	if d == nil {
		return false
	}
	_, err := d.inspector.Queues()
	return err == nil
}

// Close releases the queue connections.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	ierr := d.inspector.Close()
	cerr := d.client.Close()
	if cerr != nil {
		return cerr
	}
	return ierr
}
