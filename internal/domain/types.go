// Package domain holds the types shared by the store, the scheduler
// policy, and the worker loop: the job lifecycle's data model.
package domain

import "time"

// JobState is the lifecycle state of a Job row.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// ValidJobStates lists the states recognized by the admin API's list
// filter; anything else is ErrInvalidInput.
var ValidJobStates = []JobState{JobPending, JobProcessing, JobCompleted, JobFailed}

// IsValidJobState reports whether s is one of the recognized states.
func IsValidJobState(s string) bool {
	for _, v := range ValidJobStates {
		if string(v) == s {
			return true
		}
	}
	return false
}

// Job is the work item tracked by the queue. See the claim protocol in
// package sqlstore for the invariants that govern its transitions.
type Job struct {
	ID            string
	Command       string
	State         JobState
	Attempts      int
	MaxRetries    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	NextAttemptAt *time.Time
	LastError     *string
}

// DeadLetterEntry is a permanently failed job, retired from the Job
// table once attempts exceeded MaxRetries.
type DeadLetterEntry struct {
	ID         string
	Command    string
	Attempts   int
	MaxRetries int
	FailedAt   time.Time
	LastError  *string
}

// WorkerRecord tracks the liveness of a single worker process.
type WorkerRecord struct {
	WorkerID      int
	StartedAt     time.Time
	LastHeartbeat time.Time
}

// Config keys recognized by the core. Unknown keys are stored and
// returned unmodified.
const (
	ConfigBackoffBase       = "backoff_base"
	ConfigDefaultMaxRetries = "default_max_retries"
)

// Default values seeded by sqlstore.Open when the corresponding key is absent.
const (
	DefaultBackoffBase     = "2"
	DefaultMaxRetriesValue = "3"
)

// JobSpec is the caller-supplied shape for Enqueue; MaxRetries is a
// pointer so "omitted" (read from config) is distinguishable from "0".
type JobSpec struct {
	ID         string
	Command    string
	MaxRetries *int
}

// Status is the aggregate counts returned by the admin API's status op.
type Status struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Dead       int
	Workers    int
}

// TimeLayout is the ISO 8601 / RFC3339 form with a literal "Z" suffix
// and second precision that every persisted timestamp uses.
const TimeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders t per TimeLayout (UTC, second precision).
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeLayout)
}

// ParseTime parses a string produced by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
