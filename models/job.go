package models

// JobStatus is the lifecycle state of a background job. Terminal states are
// done and failed; a backend status outside this enumeration is passed
// through verbatim.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is the polled view of a background computation.
type Job struct {
	ID     string            `json:"id"`
	Status JobStatus         `json:"status"`
	Result *PredictionResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// JobHandle is the opaque reference returned on enqueue.
type JobHandle struct {
	ID string `json:"job_id"`
}
