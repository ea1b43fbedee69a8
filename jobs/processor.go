package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"stock-hub/models"
	"stock-hub/observability"
)

// Forecaster computes a prediction for a symbol. The application's
// orchestrator implements it; the processor stays free of provider and
// cache wiring.
type Forecaster interface {
	PredictSymbol(ctx context.Context, symbol string) (*models.PredictionResult, error)
}

// Processor executes prediction tasks on the worker.
type Processor struct {
	forecaster Forecaster
}

// NewProcessor creates a task processor backed by the given forecaster.
func NewProcessor(forecaster Forecaster) *Processor {
	return &Processor{forecaster: forecaster}
}

// HandlePredict runs one prediction task: compute the forecast and write
// the result onto the task so JobStatus can return it.
func (p *Processor) HandlePredict(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePredictPayload(task)
	if err != nil {
		// A malformed payload never becomes valid; skip retries
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	timer := observability.GetMetrics().NewTimer()
	log := observability.WithSymbol(payload.Symbol)
	log.Info("Processing prediction task")

	result, err := p.forecaster.PredictSymbol(ctx, payload.Symbol)
	if err != nil {
		timer.ObserveJob(TypePredict, "error")
		log.Error("Prediction task failed", "error", err)
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		timer.ObserveJob(TypePredict, "error")
		return fmt.Errorf("failed to marshal prediction result: %w", err)
	}
	if _, err := task.ResultWriter().Write(data); err != nil {
		timer.ObserveJob(TypePredict, "error")
		return fmt.Errorf("failed to write prediction result: %w", err)
	}

	timer.ObserveJob(TypePredict, "done")
	log.Info("Prediction task complete", "predicted_price", result.Prediction.Price)
	return nil
}

// NewServeMux wires the processor's handlers into an asynq mux.
func NewServeMux(p *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePredict, p.HandlePredict)
	return mux
}
