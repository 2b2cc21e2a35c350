package model

// JobStatus is the lifecycle state of a remote provider job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// IsTerminal reports whether the job will not change state again.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// ProviderJob is a remote prediction as reported by the job API.
type ProviderJob struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Output any       `json:"output,omitempty"`
	Error  any       `json:"error,omitempty"`
}
