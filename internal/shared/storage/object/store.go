package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"

	"careerpilot-backend/internal/shared/util"
)

// ErrNotFound is wrapped into Open errors for keys with no object behind them.
var ErrNotFound = errors.New("object not found")

// ObjectStore keeps uploaded resumes and the text extracted from them.
type ObjectStore interface {
	// Save stores an upload under the owner's prefix and returns its key, size and sniffed MIME type.
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// SaveWithKey stores a derived artifact, such as extracted text, at a fixed key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, storageKey string) error
}

// NewKey returns a fresh storage key in the owner's namespace.
func NewKey(userID, fileName string) (string, error) {
	name, err := util.CleanFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("clean file name: %w", err)
	}
	return path.Join(util.OwnerPrefix(userID), uuid.NewString()+"_"+name), nil
}

// Sniff reads up to 512 bytes to detect the content type and returns a
// reader that replays them ahead of the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	return http.DetectContentType(head[:n]), io.MultiReader(bytes.NewReader(head[:n]), r), nil
}
