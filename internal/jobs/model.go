package jobs

import "time"

// Job is a posting an admin publishes for candidates to match against.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries the editable fields of a job.
type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
