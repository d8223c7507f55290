package users

import "context"

// Repo persists users.
type Repo interface {
	// Create inserts a new user and returns ErrConflict when the email or phone is taken.
	Create(ctx context.Context, user User) error
	// Upsert inserts or refreshes an OAuth-provisioned user by ID.
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByPhone(ctx context.Context, phone string) (User, error)
	// List returns users newest first.
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, userID string) error
}
