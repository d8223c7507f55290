package documents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDocuments(t *testing.T, repo *MemoryRepo, userID string, ids ...string) {
	t.Helper()
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, id := range ids {
		require.NoError(t, repo.Create(context.Background(), Document{ID: id, UserID: userID, FileName: id + ".pdf", CreatedAt: at}))
	}
}

func documentIDs(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestMemoryRepoListsNewestInsertFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedDocuments(t, repo, "u1", "a", "b", "c")
	seedDocuments(t, repo, "u2", "x")

	all, err := repo.ListByUser(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, documentIDs(all))

	page, err := repo.ListByUser(ctx, "u1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, documentIDs(page))

	past, err := repo.ListByUser(ctx, "u1", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, past)

	current, err := repo.GetCurrentByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c", current.ID)
}

func TestMemoryRepoSoftDeleteHidesEverywhere(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedDocuments(t, repo, "u1", "a", "b")

	deleted, err := repo.SoftDelete(ctx, "u1", "b", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "b.pdf", deleted.FileName)

	_, err = repo.GetByID(ctx, "u1", "b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.SoftDelete(ctx, "u1", "b", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := repo.CountByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	current, err := repo.GetCurrentByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a", current.ID)
}

func TestMemoryRepoScopesByOwner(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedDocuments(t, repo, "u1", "a")

	_, err := repo.GetByID(ctx, "u2", "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdateExtraction(ctx, "u2", "a", "k", time.Now()), ErrNotFound)
	_, err = repo.GetCurrentByUser(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoUpdateExtractionKeepsFirstKey(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedDocuments(t, repo, "u1", "a")
	first := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpdateExtraction(ctx, "u1", "a", "a.extracted.txt", first))
	require.NoError(t, repo.UpdateExtraction(ctx, "u1", "a", "other.txt", first.Add(time.Hour)))

	doc, err := repo.GetByID(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, "a.extracted.txt", doc.ExtractedTextKey)
	require.NotNil(t, doc.ExtractedAt)
	assert.True(t, doc.ExtractedAt.Equal(first))
}

func TestMemoryRepoClaimGuestSkipsDeleted(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedDocuments(t, repo, "guest", "a", "b")
	_, err := repo.SoftDelete(ctx, "guest", "a", time.Now())
	require.NoError(t, err)

	moved, err := repo.ClaimGuest(ctx, "guest", "user")
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	docs, err := repo.ListByUser(ctx, "user", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, documentIDs(docs))

	again, err := repo.ClaimGuest(ctx, "guest", "user")
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestMemoryRepoHonoursCancelledContext(t *testing.T) {
	repo := NewMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Create(ctx, Document{ID: "a"}), context.Canceled)
	_, err := repo.ListByUser(ctx, "u1", 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
