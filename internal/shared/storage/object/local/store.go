// Package local is the filesystem object store used in development and tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"careerpilot-backend/internal/shared/storage/object"
)

var errInvalidKey = errors.New("invalid storage key")

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

// Store maps storage keys to files under dir. Writes land in a temp file
// first so readers never see a partial object.
type Store struct {
	dir string
}

func New(dir string) object.ObjectStore {
	return &Store{dir: dir}
}

func (s *Store) Save(ctx context.Context, userID string, fileName string, r io.Reader) (string, int64, string, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}
	key, err := object.NewKey(userID, fileName)
	if err != nil {
		return "", 0, "", err
	}
	sniffed, body, err := object.Sniff(r)
	if err != nil {
		return "", 0, "", err
	}
	n, err := s.store(key, body)
	if err != nil {
		return "", 0, "", err
	}
	return key, n, sniffed, nil
}

// SaveWithKey replaces whatever is stored at storageKey. Content types are not kept on disk.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, _ string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store(storageKey, r)
}

func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := s.path(storageKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, storageKey)
	}
	return f, err
}

func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := s.path(storageKey)
	if err != nil {
		return err
	}
	err = os.Remove(name)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("remove %s: %w", storageKey, err)
}

func (s *Store) store(storageKey string, r io.Reader) (int64, error) {
	name, err := s.path(storageKey)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return 0, fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), filePerm)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), name)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", storageKey, err)
	}
	return n, nil
}

// path resolves storageKey inside dir. Absolute keys and keys climbing out of dir are rejected.
func (s *Store) path(storageKey string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(storageKey))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", errInvalidKey, storageKey)
	}
	return filepath.Join(s.dir, rel), nil
}
