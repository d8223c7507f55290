package documents

import (
	"context"
	"time"
)

// DocumentsRepo persists document metadata. Lookups are always scoped to the
// owning user; deleted documents are invisible to every read.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetCurrentByUser(ctx context.Context, userId string) (Document, error)
	GetByID(ctx context.Context, userId, documentID string) (Document, error)
	ListByUser(ctx context.Context, userId string, limit, offset int) ([]Document, error)
	CountByUser(ctx context.Context, userId string) (int, error)
	// UpdateExtraction records the extracted-text key once; later calls are no-ops.
	UpdateExtraction(ctx context.Context, userId, documentID, extractedKey string, extractedAt time.Time) error
	// SoftDelete hides the document and returns it so the caller can remove its objects.
	SoftDelete(ctx context.Context, userId, documentID string, at time.Time) (Document, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}
