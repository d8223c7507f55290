package documents

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepo keeps documents in process. Used when no database is configured.
// Deleted rows stay in the map so a later Create cannot reuse their id.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]*memoryDocument
	seq  int
}

type memoryDocument struct {
	Document
	seq       int
	deletedAt *time.Time
}

func (m *memoryDocument) visibleTo(userID string) bool {
	return m.deletedAt == nil && m.UserID == userID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[string]*memoryDocument{}}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.rows[doc.ID] = &memoryDocument{Document: doc, seq: r.seq}
	return nil
}

// owned copies the user's live rows newest first. Callers hold the lock.
func (r *MemoryRepo) owned(userID string) []memoryDocument {
	var out []memoryDocument
	for _, row := range r.rows {
		if row.visibleTo(userID) {
			out = append(out, *row)
		}
	}
	slices.SortFunc(out, func(a, b memoryDocument) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.seq - a.seq
	})
	return out
}

func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rows := r.owned(userID); len(rows) > 0 {
		return rows[0].Document, nil
	}
	return Document{}, ErrNotFound
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if row, ok := r.rows[documentID]; ok && row.visibleTo(userID) {
		return row.Document, nil
	}
	return Document{}, ErrNotFound
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	rows := r.owned(userID)
	r.mu.RUnlock()

	start := min(max(offset, 0), len(rows))
	end := len(rows)
	if limit > 0 {
		end = min(start+limit, end)
	}
	out := make([]Document, 0, end-start)
	for _, row := range rows[start:end] {
		out = append(out, row.Document)
	}
	return out, nil
}

func (r *MemoryRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, row := range r.rows {
		if row.visibleTo(userID) {
			n++
		}
	}
	return n, nil
}

// edit runs fn on a live row owned by userID under the write lock.
func (r *MemoryRepo) edit(ctx context.Context, userID, documentID string, fn func(*memoryDocument)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[documentID]
	if !ok || !row.visibleTo(userID) {
		return ErrNotFound
	}
	fn(row)
	return nil
}

func (r *MemoryRepo) UpdateExtraction(ctx context.Context, userID, documentID, extractedKey string, extractedAt time.Time) error {
	return r.edit(ctx, userID, documentID, func(row *memoryDocument) {
		if row.ExtractedTextKey != "" {
			return
		}
		row.ExtractedTextKey = extractedKey
		row.ExtractedAt = &extractedAt
	})
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, userID, documentID string, at time.Time) (Document, error) {
	var doc Document
	err := r.edit(ctx, userID, documentID, func(row *memoryDocument) {
		row.deletedAt = &at
		doc = row.Document
	})
	return doc, err
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	moved := 0
	for _, row := range r.rows {
		if row.visibleTo(guestUserID) {
			row.UserID = authedUserID
			moved++
		}
	}
	return moved, nil
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
