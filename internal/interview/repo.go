package interview

import (
	"context"
)

// Repo persists interview sessions. Reads and writes are scoped to the owner.
type Repo interface {
	Create(ctx context.Context, s Session) error
	GetByID(ctx context.Context, userID, id string) (Session, error)
	// AppendAnswer adds an answer unless the question was already answered,
	// in which case it returns ErrAlreadyAnswered. The answer that fills the
	// last question completes the session at a.AnsweredAt, decided in the
	// same write. It returns the session as stored after the write.
	AppendAnswer(ctx context.Context, userID, id string, a Answer) (Session, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}
