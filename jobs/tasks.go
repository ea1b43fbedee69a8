// Package jobs wraps the asynq task queue: enqueueing prediction work,
// translating queue state into job status, and executing tasks on the
// worker side.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypePredict is the task type for background symbol predictions.
const TypePredict = "predict:symbol"

// resultRetention is how long a finished task, and with it the stored
// prediction result, stays queryable.
const resultRetention = 24 * time.Hour

// PredictPayload is the JSON body of a predict task.
type PredictPayload struct {
	Symbol       string `json:"symbol"`
	ModelVersion string `json:"model_version"`
}

// NewPredictTask builds a predict task for a symbol.
func NewPredictTask(symbol, modelVersion string) (*asynq.Task, error) {
	payload, err := json.Marshal(PredictPayload{Symbol: symbol, ModelVersion: modelVersion})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict payload: %w", err)
	}
	return asynq.NewTask(TypePredict, payload), nil
}

// ParsePredictPayload decodes a predict task's body.
func ParsePredictPayload(task *asynq.Task) (PredictPayload, error) {
	var p PredictPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal predict payload: %w", err)
	}
	if p.Symbol == "" {
		return p, fmt.Errorf("predict payload missing symbol")
	}
	return p, nil
}
