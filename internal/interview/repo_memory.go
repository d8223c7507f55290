package interview

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: make(map[string]Session)}
}

func (r *MemoryRepo) Create(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return Session{}, ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *MemoryRepo) AppendAnswer(ctx context.Context, userID, id string, a Answer) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return Session{}, ErrNotFound
	}
	if s.Answered(a.QuestionIndex) {
		return Session{}, ErrAlreadyAnswered
	}
	s.Answers = append(s.Answers, a)
	if s.CompletedAt == nil && len(s.Answers) >= len(s.Questions) {
		t := a.AnsweredAt
		s.CompletedAt = &t
	}
	r.sessions[id] = s
	return cloneSession(s), nil
}

func (r *MemoryRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.UserID == guestUserID {
			s.UserID = authedUserID
			r.sessions[id] = s
			n++
		}
	}
	return n, nil
}

func cloneSession(s Session) Session {
	s.Questions = append([]string(nil), s.Questions...)
	s.Answers = append([]Answer(nil), s.Answers...)
	return s
}

var _ Repo = (*MemoryRepo)(nil)
