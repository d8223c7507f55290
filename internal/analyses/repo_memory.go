package analyses

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"careerpilot-backend/internal/skillmatch"
)

// MemoryRepo keeps analyses in process. Listings are newest first, with
// insertion order breaking ties on equal timestamps.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]*memoryAnalysis
	seq  int
}

type memoryAnalysis struct {
	Analysis
	seq int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[string]*memoryAnalysis{}}
}

func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.rows[analysis.ID] = &memoryAnalysis{Analysis: analysis, seq: r.seq}
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if row, ok := r.rows[analysisID]; ok {
		return row.Analysis, nil
	}
	return Analysis{}, ErrNotFound
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) (bool, error) {
	started := false
	err := r.mutate(ctx, analysisID, func(a *Analysis) {
		if a.Status == StatusQueued || a.Status == StatusProcessing {
			a.Status = StatusProcessing
			a.StartedAt = &startedAt
			started = true
		}
	})
	return started, err
}

func (r *MemoryRepo) Complete(ctx context.Context, analysisID string, result skillmatch.Result, trace skillmatch.Trace, completedAt time.Time) error {
	return r.mutate(ctx, analysisID, func(a *Analysis) {
		score := result.MatchScore
		a.Status = StatusCompleted
		a.MatchScore = &score
		a.Result = &result
		a.Raw = trace.Raw
		a.PromptHash = trace.PromptHash
		a.CompletedAt = &completedAt
	})
}

func (r *MemoryRepo) Fail(ctx context.Context, analysisID string, failure Failure, completedAt time.Time) error {
	return r.mutate(ctx, analysisID, func(a *Analysis) {
		a.Status = StatusFailed
		a.ErrorCode = failure.Code
		a.ErrorMessage = failure.Message
		a.Retryable = failure.Retryable
		a.CompletedAt = &completedAt
	})
}

func (r *MemoryRepo) mutate(ctx context.Context, analysisID string, fn func(*Analysis)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[analysisID]
	if !ok {
		return ErrNotFound
	}
	fn(&row.Analysis)
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return page(r.matching(func(a Analysis) bool { return a.UserID == userID }), limit, offset), nil
}

// ListByEmail returns every analysis saved under the email, newest first.
func (r *MemoryRepo) ListByEmail(ctx context.Context, email string) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.matching(func(a Analysis) bool { return strings.EqualFold(a.UserEmail, email) }), nil
}

func (r *MemoryRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, row := range r.rows {
		if row.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ClaimGuest reassigns guest-owned analyses to the signed-in user.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	moved := 0
	for _, row := range r.rows {
		if row.UserID == guestUserID {
			row.UserID = authedUserID
			moved++
		}
	}
	return moved, nil
}

// matching copies the rows accepted by keep, newest first.
func (r *MemoryRepo) matching(keep func(Analysis) bool) []Analysis {
	r.mu.RLock()
	hits := make([]memoryAnalysis, 0, len(r.rows))
	for _, row := range r.rows {
		if keep(row.Analysis) {
			hits = append(hits, *row)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(hits, func(a, b memoryAnalysis) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.seq - a.seq
	})
	out := make([]Analysis, len(hits))
	for i := range hits {
		out[i] = hits[i].Analysis
	}
	return out
}

// page applies limit and offset. A limit of zero or less means no limit.
func page(items []Analysis, limit, offset int) []Analysis {
	offset = max(offset, 0)
	if offset >= len(items) {
		return []Analysis{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ Repo = (*MemoryRepo)(nil)
