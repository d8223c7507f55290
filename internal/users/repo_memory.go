package users

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryRepo keeps users in process, indexed by email and phone the way
// the unique constraints on the users table do.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]*memoryUser
	byEmail map[string]string
	byPhone map[string]string
	seq     int
	now     func() time.Time
}

type memoryUser struct {
	user User
	seq  int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    map[string]*memoryUser{},
		byEmail: map[string]string{},
		byPhone: map[string]string{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[emailKey(user.Email)]; taken && user.Email != "" {
		return ErrConflict
	}
	if _, taken := r.byPhone[user.Phone]; taken && user.Phone != "" {
		return ErrConflict
	}
	if _, taken := r.byID[user.ID]; taken {
		return ErrConflict
	}
	r.put(user)
	return nil
}

// Upsert refreshes the profile fields of an OAuth user and keeps the
// credentials a self-registered account already has.
func (r *MemoryRepo) Upsert(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	user.CreatedAt, user.UpdatedAt = now, now
	if prev, ok := r.byID[user.ID]; ok {
		user.CreatedAt = prev.user.CreatedAt
		user.Username = prev.user.Username
		user.Phone = prev.user.Phone
		user.PasswordHash = prev.user.PasswordHash
		r.unindex(prev.user)
	}
	r.put(user)
	return nil
}

// put stores user and its index entries. Callers hold mu.
func (r *MemoryRepo) put(user User) {
	entry, ok := r.byID[user.ID]
	if !ok {
		r.seq++
		entry = &memoryUser{seq: r.seq}
		r.byID[user.ID] = entry
	}
	entry.user = user
	if key := emailKey(user.Email); key != "" {
		r.byEmail[key] = user.ID
	}
	if user.Phone != "" {
		r.byPhone[user.Phone] = user.ID
	}
}

func (r *MemoryRepo) unindex(user User) {
	delete(r.byEmail, emailKey(user.Email))
	if user.Phone != "" {
		delete(r.byPhone, user.Phone)
	}
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.lookup(ctx, func() string { return userID })
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.lookup(ctx, func() string {
		if key := emailKey(email); key != "" {
			return r.byEmail[key]
		}
		return ""
	})
}

func (r *MemoryRepo) GetByPhone(ctx context.Context, phone string) (User, error) {
	return r.lookup(ctx, func() string {
		if phone == "" {
			return ""
		}
		return r.byPhone[phone]
	})
}

// lookup resolves an id under the read lock and returns the stored user.
func (r *MemoryRepo) lookup(ctx context.Context, resolve func() string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.byID[resolve()]; ok {
		return entry.user, nil
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entries := make([]memoryUser, 0, len(r.byID))
	for _, e := range r.byID {
		entries = append(entries, *e)
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b memoryUser) int {
		if c := b.user.CreatedAt.Compare(a.user.CreatedAt); c != 0 {
			return c
		}
		return b.seq - a.seq
	})
	out := make([]User, len(entries))
	for i, e := range entries {
		out[i] = e.user
	}
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byID[userID]
	if !ok {
		return ErrNotFound
	}
	r.unindex(entry.user)
	delete(r.byID, userID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
