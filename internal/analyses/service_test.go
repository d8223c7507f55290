package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"careerpilot-backend/internal/documents"
	"careerpilot-backend/internal/extract"
	"careerpilot-backend/internal/llm"
	"careerpilot-backend/internal/queue"
	"careerpilot-backend/internal/shared/telemetry"
	"careerpilot-backend/internal/skillmatch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeDocs struct {
	docs    map[string]documents.Document
	text    string
	textErr error
}

func (f *fakeDocs) Get(ctx context.Context, userID, documentID string) (documents.Document, error) {
	doc, ok := f.docs[documentID]
	if !ok || doc.UserID != userID {
		return documents.Document{}, documents.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocs) Text(ctx context.Context, doc documents.Document) (string, error) {
	return f.text, f.textErr
}

type matcherFunc func(ctx context.Context, in skillmatch.Input) (skillmatch.Result, skillmatch.Trace, error)

func (f matcherFunc) Analyze(ctx context.Context, in skillmatch.Input) (skillmatch.Result, skillmatch.Trace, error) {
	return f(ctx, in)
}

type recordingQueue struct {
	mu   sync.Mutex
	sent []queue.Message
	err  error
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, msg)
	return nil
}

var matchedResult = skillmatch.Result{
	MatchScore:     80,
	ScoreRationale: "Strong overlap.",
	MatchingSkills: []string{"Go"},
	MissingSkills:  []string{},
	ImpliedSkills:  "",
	Status:         skillmatch.StatusApproved,
}

func newTestService(matcher Matcher) (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	docs := &fakeDocs{
		docs: map[string]documents.Document{
			"doc-1": {ID: "doc-1", UserID: "user-1", FileName: "stored.pdf", OriginalFilename: "resume.pdf"},
		},
		text: "Go engineer",
	}
	return &Service{Repo: repo, Docs: docs, Matcher: matcher, Provider: "ollama", Model: "llama3.1:8b"}, repo
}

func TestStartDocumentAnalysisCompletesInProcess(t *testing.T) {
	var seen skillmatch.Input
	svc, repo := newTestService(matcherFunc(func(ctx context.Context, in skillmatch.Input) (skillmatch.Result, skillmatch.Trace, error) {
		seen = in
		return matchedResult, skillmatch.Trace{Raw: "raw", Source: skillmatch.SourceSentinel, PromptHash: "abc"}, nil
	}))

	owner := Owner{UserID: "user-1", Email: "Ada@Example.com"}
	analysis, err := svc.StartDocumentAnalysis(context.Background(), owner, "doc-1", "  Need Go  ")
	if err != nil {
		t.Fatalf("StartDocumentAnalysis: %v", err)
	}
	if analysis.Status != StatusQueued || analysis.ResumeFileName != "resume.pdf" {
		t.Fatalf("unexpected queued analysis: %+v", analysis)
	}
	svc.Wait()

	got, err := repo.GetByID(context.Background(), analysis.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusCompleted || got.MatchScore == nil || *got.MatchScore != 80 {
		t.Fatalf("unexpected completed analysis: %+v", got)
	}
	if got.UserEmail != "ada@example.com" || got.PromptHash != "abc" || got.StartedAt == nil || got.CompletedAt == nil {
		t.Fatalf("metadata not recorded: %+v", got)
	}
	if seen.JobDescription != "Need Go" || seen.Resume != "Go engineer" {
		t.Fatalf("unexpected matcher input: %+v", seen)
	}
}

func TestStartDocumentAnalysisUsesQueue(t *testing.T) {
	svc, repo := newTestService(matcherFunc(func(ctx context.Context, in skillmatch.Input) (skillmatch.Result, skillmatch.Trace, error) {
		t.Fatalf("matcher must not run when a queue is configured")
		return skillmatch.Result{}, skillmatch.Trace{}, nil
	}))
	q := &recordingQueue{}
	svc.Queue = q

	ctx := telemetry.WithRequestID(context.Background(), "req-1")
	analysis, err := svc.StartDocumentAnalysis(ctx, Owner{UserID: "user-1"}, "doc-1", "Need Go")
	if err != nil {
		t.Fatalf("StartDocumentAnalysis: %v", err)
	}
	if len(q.sent) != 1 || q.sent[0].AnalysisID != analysis.ID || q.sent[0].RequestID != "req-1" || q.sent[0].Version != 1 {
		t.Fatalf("unexpected queue messages: %+v", q.sent)
	}
	got, _ := repo.GetByID(context.Background(), analysis.ID)
	if got.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", got.Status)
	}
}

func TestStartDocumentAnalysisQueueFailureMarksFailed(t *testing.T) {
	svc, repo := newTestService(nil)
	svc.Queue = &recordingQueue{err: errors.New("sqs down")}

	if _, err := svc.StartDocumentAnalysis(context.Background(), Owner{UserID: "user-1"}, "doc-1", "Need Go"); err == nil {
		t.Fatalf("expected enqueue error")
	}
	items, _ := repo.ListByUser(context.Background(), "user-1", 0, 0)
	if len(items) != 1 || items[0].Status != StatusFailed || items[0].ErrorCode != ErrorCodeStorage || !items[0].Retryable {
		t.Fatalf("unexpected analyses: %+v", items)
	}
}

func TestStartDocumentAnalysisValidation(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.StartDocumentAnalysis(context.Background(), Owner{UserID: "user-1"}, "doc-1", "   ")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Issues[0].Field != "jobDescription" {
		t.Fatalf("expected jobDescription validation error, got %v", err)
	}

	_, err = svc.StartDocumentAnalysis(context.Background(), Owner{UserID: "user-2"}, "doc-1", "Need Go")
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected documents.ErrNotFound for another user's document, got %v", err)
	}
}

func TestProcessAnalysisClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		textErr   error
		matchErr  error
		code      string
		retryable bool
	}{
		{name: "timeout", matchErr: fmt.Errorf("llm completion: %w", context.DeadlineExceeded), code: ErrorCodeLLMTimeout, retryable: true},
		{name: "schema", matchErr: &skillmatch.ValidationError{Err: errors.New("missing matchScore")}, code: ErrorCodeLLMSchemaMismatch},
		{name: "storage", textErr: errors.New("s3 get object: access denied"), code: ErrorCodeStorage, retryable: true},
		{name: "unsupported file", textErr: extract.ErrUnsupportedType, code: ErrorCodeValidation},
		{name: "not configured", matchErr: llm.ErrNotConfigured, code: ErrorCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestService(matcherFunc(func(ctx context.Context, in skillmatch.Input) (skillmatch.Result, skillmatch.Trace, error) {
				return skillmatch.Result{}, skillmatch.Trace{}, tc.matchErr
			}))
			svc.Docs.(*fakeDocs).textErr = tc.textErr
			analysis := Analysis{ID: "a-1", UserID: "user-1", DocumentID: "doc-1", JobDescription: "Need Go", Status: StatusQueued, CreatedAt: time.Now()}
			if err := repo.Create(context.Background(), analysis); err != nil {
				t.Fatalf("Create: %v", err)
			}

			if err := svc.ProcessAnalysis(context.Background(), "a-1"); err != nil {
				t.Fatalf("ProcessAnalysis: %v", err)
			}
			got, _ := repo.GetByID(context.Background(), "a-1")
			if got.Status != StatusFailed || got.ErrorCode != tc.code || got.Retryable != tc.retryable {
				t.Fatalf("got status=%s code=%s retryable=%v, want failed/%s/%v", got.Status, got.ErrorCode, got.Retryable, tc.code, tc.retryable)
			}
			if got.ErrorMessage == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestProcessAnalysisSkipsFinishedAnalysis(t *testing.T) {
	calls := 0
	svc, repo := newTestService(matcherFunc(func(ctx context.Context, in skillmatch.Input) (skillmatch.Result, skillmatch.Trace, error) {
		calls++
		return matchedResult, skillmatch.Trace{}, nil
	}))
	score := 55
	done := Analysis{ID: "a-1", UserID: "user-1", DocumentID: "doc-1", Status: StatusCompleted, MatchScore: &score, CreatedAt: time.Now()}
	if err := repo.Create(context.Background(), done); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.ProcessAnalysis(context.Background(), "a-1"); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), "a-1")
	if calls != 0 || *got.MatchScore != 55 {
		t.Fatalf("finished analysis was reprocessed: calls=%d score=%d", calls, *got.MatchScore)
	}
	if err := svc.ProcessAnalysis(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProcessAnalysisRecoversPanics(t *testing.T) {
	svc, repo := newTestService(matcherFunc(func(ctx context.Context, in skillmatch.Input) (skillmatch.Result, skillmatch.Trace, error) {
		panic("nil map")
	}))
	if err := repo.Create(context.Background(), Analysis{ID: "a-1", UserID: "user-1", DocumentID: "doc-1", Status: StatusQueued}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.ProcessAnalysis(context.Background(), "a-1"); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), "a-1")
	if got.ErrorCode != ErrorCodeInternal || !strings.Contains(got.ErrorMessage, "panic: nil map") {
		t.Fatalf("unexpected failure: %+v", got)
	}
}

func TestSanitizeError(t *testing.T) {
	msg := sanitizeError(errors.New("line one\nline\ttwo\r\n" + strings.Repeat("x", 600)))
	if strings.ContainsAny(msg, "\r\n\t") {
		t.Fatalf("expected single line, got %q", msg)
	}
	if len(msg) > maxErrorMessageLen {
		t.Fatalf("expected at most %d bytes, got %d", maxErrorMessageLen, len(msg))
	}
	if !strings.HasPrefix(msg, "line one line two x") {
		t.Fatalf("unexpected prefix: %q", msg[:20])
	}
	if sanitizeError(nil) != "" {
		t.Fatalf("nil error must sanitize to empty")
	}
}

func TestSaveValidatesAndHistoryIsNewestFirst(t *testing.T) {
	svc, _ := newTestService(nil)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	score := 101
	_, err := svc.Save(context.Background(), Owner{UserID: "user-1"}, SaveInput{MatchScore: &score, UserEmail: "nope"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]string{}
	for _, issue := range verr.Issues {
		fields[issue.Field] = issue.Issue
	}
	want := map[string]string{"resumeFileName": "required", "jobDescription": "required", "matchScore": "out_of_range", "userEmail": "invalid"}
	for field, issue := range want {
		if fields[field] != issue {
			t.Fatalf("field %s: got %q want %q (all: %+v)", field, fields[field], issue, verr.Issues)
		}
	}

	for i, name := range []string{"first.pdf", "second.pdf"} {
		s := 40 + i
		if _, err := svc.Save(context.Background(), Owner{UserID: "user-1"}, SaveInput{
			ResumeFileName: name,
			JobDescription: "Need Go",
			MatchScore:     &s,
			UserEmail:      "ADA@example.com",
		}); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}
	items, err := svc.History(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(items) != 2 || items[0].ResumeFileName != "second.pdf" || items[0].Status != StatusCompleted {
		t.Fatalf("unexpected history: %+v", items)
	}
	if _, err := svc.History(context.Background(), " "); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
}
