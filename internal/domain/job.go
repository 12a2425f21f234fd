package domain

import "time"

// JobStatus enumerates job lifecycle states. Transitions are monotonic:
// queued -> processing -> completed|failed, never backwards.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one asynchronous batch through its lifecycle. Outcomes is nil
// until the runner finishes; once present its length always equals
// len(Records).
type Job struct {
	ID           string
	Status       JobStatus
	SubmittedAt  time.Time
	FinishedAt   time.Time
	Records      []Record
	Config       PromptConfig
	Outcomes     []Outcome
	ErrorMessage string
}
