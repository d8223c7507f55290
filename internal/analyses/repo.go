package analyses

import (
	"context"
	"time"

	"careerpilot-backend/internal/skillmatch"
)

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	// MarkProcessing moves a queued analysis to processing. It reports false
	// when the analysis has already finished.
	MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) (bool, error)
	Complete(ctx context.Context, analysisID string, result skillmatch.Result, trace skillmatch.Trace, completedAt time.Time) error
	Fail(ctx context.Context, analysisID string, failure Failure, completedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
	ListByEmail(ctx context.Context, email string) ([]Analysis, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}
