package analyses

import (
	"time"

	"careerpilot-backend/internal/skillmatch"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis is a saved or asynchronously computed skill match.
type Analysis struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	UserEmail      string             `json:"userEmail,omitempty"`
	DocumentID     string             `json:"documentId,omitempty"`
	JobID          string             `json:"jobId,omitempty"`
	ResumeFileName string             `json:"resumeFileName"`
	JobDescription string             `json:"jobDescription"`
	Status         string             `json:"status"`
	MatchScore     *int               `json:"matchScore,omitempty"`
	Result         *skillmatch.Result `json:"result,omitempty"`
	Raw            string             `json:"-"`
	ErrorCode      string             `json:"errorCode,omitempty"`
	ErrorMessage   string             `json:"errorMessage,omitempty"`
	Retryable      bool               `json:"retryable,omitempty"`
	Provider       string             `json:"provider,omitempty"`
	Model          string             `json:"model,omitempty"`
	PromptHash     string             `json:"-"`
	StartedAt      *time.Time         `json:"startedAt,omitempty"`
	CompletedAt    *time.Time         `json:"completedAt,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// SaveInput is the body of POST /analyses.
type SaveInput struct {
	ResumeFileName string             `json:"resumeFileName"`
	JobDescription string             `json:"jobDescription"`
	MatchScore     *int               `json:"matchScore"`
	UserEmail      string             `json:"userEmail"`
	JobID          string             `json:"jobId"`
	Result         *skillmatch.Result `json:"result"`
}

// Failure is the classified outcome stored on a failed analysis.
type Failure struct {
	Code      string
	Message   string
	Retryable bool
}
