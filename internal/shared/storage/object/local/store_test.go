package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpilot-backend/internal/shared/storage/object"
	"careerpilot-backend/internal/shared/util"
)

func readAll(t *testing.T, store object.ObjectStore, key string) string {
	t.Helper()
	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(body)
}

func TestSaveThenOpen(t *testing.T) {
	store := New(t.TempDir())

	key, size, mime, err := store.Save(context.Background(), "user-1", "notes.txt", strings.NewReader("hello resume"))
	require.NoError(t, err)

	assert.EqualValues(t, len("hello resume"), size)
	assert.True(t, strings.HasPrefix(mime, "text/plain"), mime)
	assert.True(t, util.OwnsKey("user-1", key), key)
	assert.True(t, strings.HasSuffix(key, "_notes.txt"), key)
	assert.Equal(t, "hello resume", readAll(t, store, key))
}

func TestSaveWithKeyReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	for _, body := range []string{"first", "second"} {
		_, err := store.SaveWithKey(context.Background(), "u/doc.txt", "text/plain", strings.NewReader(body))
		require.NoError(t, err)
	}

	assert.Equal(t, "second", readAll(t, store, "u/doc.txt"))
	entries, err := os.ReadDir(filepath.Join(dir, "u"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.txt", entries[0].Name())
}

func TestOpenMissingIsNotFound(t *testing.T) {
	_, err := New(t.TempDir()).Open(context.Background(), "u/missing.txt")
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	_, err := store.SaveWithKey(ctx, "u/doc.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "u/doc.txt"))
	require.NoError(t, store.Delete(ctx, "u/doc.txt"))
	_, err = store.Open(ctx, "u/doc.txt")
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestKeysMustStayInsideDir(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	for _, key := range []string{"../secret", "/abs/path", ".", "", "u/../../x"} {
		_, err := store.Open(ctx, key)
		assert.ErrorIs(t, err, errInvalidKey, key)
		_, err = store.SaveWithKey(ctx, key, "text/plain", strings.NewReader("x"))
		assert.ErrorIs(t, err, errInvalidKey, key)
		assert.ErrorIs(t, store.Delete(ctx, key), errInvalidKey, key)
	}
	// a dotted name that is not a parent reference is fine
	_, err := store.SaveWithKey(ctx, "u/..notes.txt", "text/plain", strings.NewReader("x"))
	assert.NoError(t, err)

	_, _, _, err = store.Save(ctx, "user-1", "../cv.pdf", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	store := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err := store.Save(ctx, "user-1", "cv.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Open(ctx, "u/doc.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
