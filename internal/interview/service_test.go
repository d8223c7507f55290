package interview

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpilot-backend/internal/jobs"
	"careerpilot-backend/internal/llm"
)

func intPtr(i int) *int { return &i }

func newTestService(t *testing.T, replies ...string) (*Service, *jobs.Service) {
	t.Helper()
	jobSvc := jobs.NewService(jobs.NewMemoryRepo())
	svc := NewService(NewMemoryRepo(), NewCoach(&scriptedLLM{replies: replies}), jobSvc)
	svc.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, jobSvc
}

func TestServiceFullSession(t *testing.T) {
	replies := []string{fiveQuestions}
	scores := []int{8, 7, 9, 6, 5}
	for _, s := range scores {
		replies = append(replies, fmt.Sprintf(`{"score":%d,"feedback":"ok"}`, s))
	}
	svc, _ := newTestService(t, replies...)
	ctx := context.Background()

	session, err := svc.Start(ctx, "user-1", StartInput{JobDescription: "Go developer"})
	require.NoError(t, err)
	require.Len(t, session.Questions, QuestionCount)

	for i := range scores {
		got, answer, err := svc.SubmitAnswer(ctx, "user-1", session.ID, AnswerInput{QuestionIndex: intPtr(i), Answer: "answer"})
		require.NoError(t, err)
		assert.Equal(t, scores[i], answer.Score)
		assert.Equal(t, i == len(scores)-1, got.CompletedAt != nil)
	}

	_, _, err = svc.SubmitAnswer(ctx, "user-1", session.ID, AnswerInput{QuestionIndex: intPtr(2), Answer: "again"})
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	stored, err := svc.Get(ctx, "user-1", session.ID)
	require.NoError(t, err)
	res := stored.Results()
	assert.Equal(t, 70, res.OverallScore)
	assert.Equal(t, "Needs Improvement", res.Status)
	assert.True(t, res.Completed)

	_, err = svc.Get(ctx, "user-2", session.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceConcurrentLastAnswersCompleteSession(t *testing.T) {
	// Both final evaluations wait until each request has read the session.
	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	var mu sync.Mutex
	calls := 0
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return llm.Response{Text: fiveQuestions}, nil
		}
		// Calls 5 and 6 evaluate questions 3 and 4.
		if n > 4 {
			arrived.Done()
			select {
			case <-release:
			case <-ctx.Done():
				return llm.Response{}, ctx.Err()
			}
		}
		return llm.Response{Text: `{"score":7,"feedback":"ok"}`}, nil
	})

	svc := NewService(NewMemoryRepo(), NewCoach(client), nil)
	ctx := context.Background()
	session, err := svc.Start(ctx, "user-1", StartInput{JobDescription: "Go developer"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := svc.SubmitAnswer(ctx, "user-1", session.ID, AnswerInput{QuestionIndex: intPtr(i), Answer: "answer"})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, idx := range []int{3, 4} {
		wg.Add(1)
		go func(i, idx int) {
			defer wg.Done()
			_, _, errs[i] = svc.SubmitAnswer(ctx, "user-1", session.ID, AnswerInput{QuestionIndex: intPtr(idx), Answer: "answer"})
		}(i, idx)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	stored, err := svc.Get(ctx, "user-1", session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Answers, QuestionCount)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.Results().Completed)
}

func TestServiceStartFromJob(t *testing.T) {
	svc, jobSvc := newTestService(t, fiveQuestions)
	ctx := context.Background()

	job, err := jobSvc.Create(ctx, jobs.Input{Title: "Go", Description: "Build Go services"})
	require.NoError(t, err)

	session, err := svc.Start(ctx, "user-1", StartInput{JobID: job.ID})
	require.NoError(t, err)
	assert.Equal(t, "Build Go services", session.JobDescription)
	assert.Equal(t, job.ID, session.JobID)

	_, err = svc.Start(ctx, "user-1", StartInput{JobID: "missing"})
	assert.ErrorIs(t, err, jobs.ErrNotFound)

	_, err = svc.Start(ctx, "user-1", StartInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceAnswerValidation(t *testing.T) {
	svc, _ := newTestService(t, fiveQuestions)
	ctx := context.Background()
	session, err := svc.Start(ctx, "user-1", StartInput{JobDescription: "jd"})
	require.NoError(t, err)

	_, _, err = svc.SubmitAnswer(ctx, "user-1", session.ID, AnswerInput{Answer: "a"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.SubmitAnswer(ctx, "user-1", session.ID, AnswerInput{QuestionIndex: intPtr(5), Answer: "a"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.SubmitAnswer(ctx, "user-1", session.ID, AnswerInput{QuestionIndex: intPtr(0), Answer: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.SubmitAnswer(ctx, "user-1", "missing", AnswerInput{QuestionIndex: intPtr(0), Answer: "a"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoClaimGuest(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, Session{ID: "s1", UserID: "guest:g"}))
	require.NoError(t, repo.Create(ctx, Session{ID: "s2", UserID: "user-1"}))

	n, err := repo.ClaimGuest(ctx, "guest:g", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.ClaimGuest(ctx, "guest:g", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := repo.CountByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
