package jobs

import "time"

// Job status constants. Transitions are strictly
// queued -> processing -> completed|failed.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job is the central record driven through the lifecycle state machine.
// Input image payloads live on disk under ImageDir, not in the record.
type Job struct {
	ID           string     `db:"job_id"`
	Status       string     `db:"status"`
	StatusDetail string     `db:"status_detail"`
	Style        string     `db:"style"`
	AspectRatio  string     `db:"aspect_ratio"`
	ImageCount   int        `db:"image_count"`
	ImageDir     string     `db:"image_dir"`
	OutputURL    string     `db:"output_url"`
	Error        string     `db:"error_message"`
	CreatedAt    time.Time  `db:"created_at"`
	ExpiresAt    *time.Time `db:"expires_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Expired reports whether a completed job's result is past its TTL.
// Jobs that never completed have no expiry.
func (j *Job) Expired(now time.Time) bool {
	return j.Status == StatusCompleted && j.ExpiresAt != nil && !now.Before(*j.ExpiresAt)
}

// Message is the queue notification payload carrying a job id to workers.
type Message struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}
