package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"careerpilot-backend/internal/shared/telemetry"
)

// Service manages job postings.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	if err := s.ready(); err != nil {
		return Job{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Job{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (Job, error) {
	if err := s.ready(); err != nil {
		return Job{}, err
	}
	in, err := clean(in)
	if err != nil {
		return Job{}, err
	}
	now := s.now()
	job := Job{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}
	telemetry.Info("jobs.created", map[string]any{"job_id": job.ID})
	return job, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Job, error) {
	if err := s.ready(); err != nil {
		return Job{}, err
	}
	in, err := clean(in)
	if err != nil {
		return Job{}, err
	}
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Job{}, err
	}
	existing.Title = in.Title
	existing.Description = in.Description
	existing.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, existing); err != nil {
		return Job{}, err
	}
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.Info("jobs.deleted", map[string]any{"job_id": id})
	return nil
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("jobs service not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func clean(in Input) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return Input{}, ErrInvalidInput
	}
	return in, nil
}
