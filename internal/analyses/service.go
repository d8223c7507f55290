package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"careerpilot-backend/internal/documents"
	"careerpilot-backend/internal/extract"
	"careerpilot-backend/internal/llm"
	"careerpilot-backend/internal/queue"
	"careerpilot-backend/internal/shared/metrics"
	"careerpilot-backend/internal/shared/telemetry"
	"careerpilot-backend/internal/skillmatch"
)

// DocumentSource resolves a stored resume and its text.
type DocumentSource interface {
	Get(ctx context.Context, userID, documentID string) (documents.Document, error)
	Text(ctx context.Context, doc documents.Document) (string, error)
}

// Matcher runs the skill-match pipeline.
type Matcher interface {
	Analyze(ctx context.Context, in skillmatch.Input) (skillmatch.Result, skillmatch.Trace, error)
}

// Owner identifies the caller an analysis is recorded for.
type Owner struct {
	UserID string
	Email  string
}

// Service contains business logic for analyses.
type Service struct {
	Repo    Repo
	Docs    DocumentSource
	Matcher Matcher
	// Queue hands document analyses to cmd/worker. Nil runs them in-process.
	Queue    queue.Client
	Provider string
	Model    string
	Now      func() time.Time

	inflight sync.WaitGroup
}

// Save records a client-computed analysis.
func (s *Service) Save(ctx context.Context, owner Owner, in SaveInput) (Analysis, error) {
	in.ResumeFileName = strings.TrimSpace(in.ResumeFileName)
	in.JobDescription = strings.TrimSpace(in.JobDescription)
	in.UserEmail = strings.ToLower(strings.TrimSpace(in.UserEmail))
	in.JobID = strings.TrimSpace(in.JobID)
	if err := validateSave(in); err != nil {
		return Analysis{}, err
	}

	now := s.now()
	analysis := Analysis{
		ID:             uuid.NewString(),
		UserID:         owner.UserID,
		UserEmail:      in.UserEmail,
		JobID:          in.JobID,
		ResumeFileName: in.ResumeFileName,
		JobDescription: in.JobDescription,
		Status:         StatusCompleted,
		MatchScore:     in.MatchScore,
		Result:         in.Result,
		CompletedAt:    &now,
		CreatedAt:      now,
	}
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}
	telemetry.Info("analysis.saved", map[string]any{
		"analysis_id": analysis.ID,
		"user_id":     owner.UserID,
		"match_score": *in.MatchScore,
	})
	return analysis, nil
}

func validateSave(in SaveInput) error {
	verr := &ValidationError{}
	if in.ResumeFileName == "" {
		verr.Issues = append(verr.Issues, FieldIssue{Field: "resumeFileName", Issue: "required"})
	}
	if in.JobDescription == "" {
		verr.Issues = append(verr.Issues, FieldIssue{Field: "jobDescription", Issue: "required"})
	}
	switch {
	case in.MatchScore == nil:
		verr.Issues = append(verr.Issues, FieldIssue{Field: "matchScore", Issue: "required"})
	case *in.MatchScore < 0 || *in.MatchScore > 100:
		verr.Issues = append(verr.Issues, FieldIssue{Field: "matchScore", Issue: "out_of_range"})
	}
	switch {
	case in.UserEmail == "":
		verr.Issues = append(verr.Issues, FieldIssue{Field: "userEmail", Issue: "required"})
	case !strings.Contains(in.UserEmail, "@"):
		verr.Issues = append(verr.Issues, FieldIssue{Field: "userEmail", Issue: "invalid"})
	}
	if in.Result != nil {
		if err := skillmatch.Validate(*in.Result); err != nil {
			verr.Issues = append(verr.Issues, FieldIssue{Field: "result", Issue: "invalid"})
		}
	}
	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

// History returns the analyses saved under an email, newest first.
func (s *Service) History(ctx context.Context, email string) ([]Analysis, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	return s.Repo.ListByEmail(ctx, email)
}

// Get returns an analysis owned by userID.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, ErrInvalidInput
	}
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	if analysis.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// List returns analyses for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.Repo.CountByUser(ctx, userID)
}

// ClaimGuest moves guest-owned analyses to the signed-in user.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	return s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
}

// StartDocumentAnalysis queues a skill match of a stored resume against a job
// description and dispatches it to the queue or a background goroutine.
func (s *Service) StartDocumentAnalysis(ctx context.Context, owner Owner, documentID, jobDescription string) (Analysis, error) {
	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return Analysis{}, &ValidationError{Issues: []FieldIssue{{Field: "jobDescription", Issue: "required"}}}
	}
	if s.Docs == nil {
		return Analysis{}, errors.New("document source not configured")
	}
	doc, err := s.Docs.Get(ctx, owner.UserID, documentID)
	if err != nil {
		return Analysis{}, err
	}

	fileName := doc.OriginalFilename
	if fileName == "" {
		fileName = doc.FileName
	}
	analysis := Analysis{
		ID:             uuid.NewString(),
		UserID:         owner.UserID,
		UserEmail:      strings.ToLower(owner.Email),
		DocumentID:     doc.ID,
		ResumeFileName: fileName,
		JobDescription: jobDescription,
		Status:         StatusQueued,
		Provider:       s.Provider,
		Model:          s.Model,
		CreatedAt:      s.now(),
	}
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}

	requestID := telemetry.RequestID(ctx)
	if s.Queue != nil {
		msg := queue.NewMessage(analysis.ID, requestID, s.now())
		if err := s.Queue.Send(ctx, msg); err != nil {
			s.fail(ctx, analysis, fmt.Errorf("%w: enqueue: %w", errStorage, err), nil)
			return Analysis{}, err
		}
	} else {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			if err := s.ProcessAnalysis(context.WithoutCancel(ctx), analysis.ID); err != nil {
				telemetry.Error("analysis.process.failed", map[string]any{
					"analysis_id": analysis.ID,
					"err":         err,
				})
			}
		}()
	}

	telemetry.Info("analysis.status", map[string]any{
		"request_id":  requestID,
		"user_id":     owner.UserID,
		"document_id": doc.ID,
		"analysis_id": analysis.ID,
		"status":      StatusQueued,
	})
	return analysis, nil
}

// Wait blocks until in-process analyses have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// ProcessAnalysis runs a queued analysis to completion. Failures are recorded
// on the analysis; the returned error only reports that state could not be saved.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) error {
	startedAt := s.now()
	claimed, err := s.Repo.MarkProcessing(ctx, analysisID, startedAt)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if !claimed {
		telemetry.Warn("analysis.process.skipped", map[string]any{"analysis_id": analysisID})
		return nil
	}
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup: %w", err)
	}

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"analysis_id":       analysis.ID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	result, trace, err := s.run(ctx, analysis)
	if err != nil {
		return s.fail(ctx, analysis, err, &startedAt)
	}

	completedAt := s.now()
	if err := s.Repo.Complete(ctx, analysis.ID, result, trace, completedAt); err != nil {
		return s.fail(ctx, analysis, fmt.Errorf("%w: save result: %w", errStorage, err), &startedAt)
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"analysis_id":       analysis.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"match_score":       result.MatchScore,
		"source":            string(trace.Source),
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	return nil
}

func (s *Service) run(ctx context.Context, analysis Analysis) (result skillmatch.Result, trace skillmatch.Trace, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if s.Docs == nil || s.Matcher == nil {
		return skillmatch.Result{}, skillmatch.Trace{}, errors.New("analysis dependencies not configured")
	}
	doc, err := s.Docs.Get(ctx, analysis.UserID, analysis.DocumentID)
	if err != nil {
		return skillmatch.Result{}, skillmatch.Trace{}, fmt.Errorf("%w: document %s: %w", errStorage, analysis.DocumentID, err)
	}
	text, err := s.Docs.Text(ctx, doc)
	if err != nil {
		return skillmatch.Result{}, skillmatch.Trace{}, fmt.Errorf("%w: document %s text: %w", errStorage, doc.ID, err)
	}
	return s.Matcher.Analyze(ctx, skillmatch.Input{
		JobDescription: analysis.JobDescription,
		Resume:         text,
	})
}

func (s *Service) fail(ctx context.Context, analysis Analysis, cause error, startedAt *time.Time) error {
	failure := classifyFailure(cause)
	completedAt := s.now()
	// The request context may already be cancelled; the failure must still land.
	saveCtx := context.WithoutCancel(ctx)
	if err := s.Repo.Fail(saveCtx, analysis.ID, failure, completedAt); err != nil {
		return fmt.Errorf("record failure %s: %w", failure.Code, err)
	}
	metrics.IncAnalysisFailed()
	fields := map[string]any{
		"request_id":    telemetry.RequestID(ctx),
		"analysis_id":   analysis.ID,
		"status":        StatusFailed,
		"error_code":    failure.Code,
		"retryable":     failure.Retryable,
		"error_message": failure.Message,
	}
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(*startedAt, completedAt))
		fields["status_transition"] = "processing->failed"
		fields["duration_ms"] = durationMs(*startedAt, completedAt)
	}
	telemetry.Error("analysis.status", fields)
	return nil
}

func classifyFailure(err error) Failure {
	code, retryable := ErrorCodeInternal, false
	var schemaErr *skillmatch.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, skillmatch.ErrInvalidInput),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, documents.ErrNotFound),
		errors.Is(err, documents.ErrInvalidInput),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrNoText):
		code = ErrorCodeValidation
	case errors.Is(err, errStorage):
		code, retryable = ErrorCodeStorage, true
	case llm.IsTimeout(err):
		code, retryable = ErrorCodeLLMTimeout, true
	case errors.As(err, &schemaErr):
		code = ErrorCodeLLMSchemaMismatch
	}
	return Failure{Code: code, Message: sanitizeError(err), Retryable: retryable}
}

const maxErrorMessageLen = 500

// sanitizeError flattens the message to a single line of at most 500 bytes.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > maxErrorMessageLen {
		msg = strings.ToValidUTF8(msg[:maxErrorMessageLen], "")
	}
	return msg
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
