package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"careerpilot-backend/internal/jobs"
	"careerpilot-backend/internal/shared/telemetry"
)

// JobLookup resolves a job posting by ID.
type JobLookup interface {
	Get(ctx context.Context, id string) (jobs.Job, error)
}

// StartInput selects the job description for a new session.
type StartInput struct {
	JobDescription string `json:"jobDescription"`
	JobID          string `json:"jobId"`
}

// AnswerInput is one submitted answer. QuestionIndex is zero-based.
type AnswerInput struct {
	QuestionIndex *int   `json:"questionIndex"`
	Answer        string `json:"answer"`
}

// Service runs mock interviews.
type Service struct {
	Repo  Repo
	Coach *Coach
	Jobs  JobLookup
	Now   func() time.Time
}

func NewService(repo Repo, coach *Coach, jobLookup JobLookup) *Service {
	return &Service{Repo: repo, Coach: coach, Jobs: jobLookup}
}

// Start generates the questions and persists a new session.
func (s *Service) Start(ctx context.Context, userID string, in StartInput) (Session, error) {
	if err := s.readyToAsk(); err != nil {
		return Session{}, err
	}
	jd := strings.TrimSpace(in.JobDescription)
	jobID := strings.TrimSpace(in.JobID)
	if jd == "" && jobID != "" {
		if s.Jobs == nil {
			return Session{}, errors.New("job lookup not configured")
		}
		job, err := s.Jobs.Get(ctx, jobID)
		if err != nil {
			return Session{}, err
		}
		jd = job.Description
	}
	if jd == "" {
		return Session{}, fmt.Errorf("%w: jobDescription or jobId is required", ErrInvalidInput)
	}

	questions, err := s.Coach.GenerateQuestions(ctx, jd)
	if err != nil {
		return Session{}, err
	}

	session := Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		JobID:          jobID,
		JobDescription: jd,
		Questions:      questions,
		Answers:        []Answer{},
		CreatedAt:      s.now(),
	}
	if err := s.Repo.Create(ctx, session); err != nil {
		return Session{}, err
	}
	telemetry.Info("interview.started", map[string]any{
		"interview_id": session.ID,
		"user_id":      userID,
		"job_id":       jobID,
	})
	return session, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	return s.Repo.GetByID(ctx, userID, id)
}

// SubmitAnswer evaluates and stores an answer. The session completes with its last answer.
func (s *Service) SubmitAnswer(ctx context.Context, userID, id string, in AnswerInput) (Session, Answer, error) {
	if err := s.readyToAsk(); err != nil {
		return Session{}, Answer{}, err
	}
	if in.QuestionIndex == nil {
		return Session{}, Answer{}, fmt.Errorf("%w: questionIndex is required", ErrInvalidInput)
	}
	text := strings.TrimSpace(in.Answer)
	if text == "" {
		return Session{}, Answer{}, fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}

	session, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		return Session{}, Answer{}, err
	}
	idx := *in.QuestionIndex
	if idx < 0 || idx >= len(session.Questions) {
		return Session{}, Answer{}, fmt.Errorf("%w: questionIndex out of range", ErrInvalidInput)
	}
	if session.Answered(idx) {
		return Session{}, Answer{}, ErrAlreadyAnswered
	}

	eval, err := s.Coach.EvaluateAnswer(ctx, session.JobDescription, session.Questions[idx], text)
	if err != nil {
		return Session{}, Answer{}, err
	}

	now := s.now()
	answer := Answer{
		QuestionIndex: idx,
		Answer:        text,
		Score:         eval.Score,
		Feedback:      eval.Feedback,
		AnsweredAt:    now,
	}
	stored, err := s.Repo.AppendAnswer(ctx, userID, id, answer)
	if err != nil {
		return Session{}, Answer{}, err
	}
	if stored.CompletedAt != nil && stored.CompletedAt.Equal(now) && session.CompletedAt == nil {
		telemetry.Info("interview.completed", map[string]any{
			"interview_id":  id,
			"overall_score": stored.Results().OverallScore,
		})
	}
	return stored, answer, nil
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.Repo.CountByUser(ctx, userID)
}

func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("interview service not configured")
	}
	return nil
}

func (s *Service) readyToAsk() error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.Coach == nil {
		return errors.New("interview coach not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
