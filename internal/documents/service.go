package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"careerpilot-backend/internal/extract"
	"careerpilot-backend/internal/shared/storage/object"
	"careerpilot-backend/internal/shared/telemetry"
	"careerpilot-backend/internal/shared/util"
)

var errEmptyCache = errors.New("cached text is empty")

// Service contains business logic for documents.
type Service struct {
	Store object.ObjectStore
	Repo  DocumentsRepo
	// StorageProvider is recorded on each document ("local" or "s3").
	StorageProvider string
}

// Upload saves the file to object storage and records the document.
func (s *Service) Upload(ctx context.Context, userId, fileName string, r io.Reader) (Document, error) {
	if strings.TrimSpace(fileName) == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userId, fileName, r)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userId,
		FileName:        fileName,
		MimeType:        mimeType,
		SizeBytes:       size,
		StorageProvider: s.provider(),
		StorageKey:      storageKey,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	telemetry.Info("documents.uploaded", map[string]any{
		"user_id":     userId,
		"document_id": doc.ID,
		"mime_type":   mimeType,
		"size_bytes":  size,
	})
	return doc, nil
}

// CreateFromS3 records a document the client already PUT through a presigned URL.
func (s *Service) CreateFromS3(ctx context.Context, userId, storageKey, originalName, contentType string, size int64) (Document, error) {
	if s.provider() != "s3" {
		return Document{}, fmt.Errorf("%w: direct uploads are not enabled", ErrInvalidInput)
	}
	if !util.OwnsKey(userId, storageKey) {
		return Document{}, ErrForeignKey
	}

	doc := Document{
		ID:               uuid.NewString(),
		UserID:           userId,
		FileName:         originalName,
		OriginalFilename: originalName,
		MimeType:         contentType,
		ContentType:      contentType,
		SizeBytes:        size,
		StorageProvider:  "s3",
		StorageKey:       storageKey,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Current returns the current document for a user.
func (s *Service) Current(ctx context.Context, userId string) (Document, error) {
	if userId == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.GetCurrentByUser(ctx, userId)
}

// Get returns one of the user's documents.
func (s *Service) Get(ctx context.Context, userId, documentID string) (Document, error) {
	if userId == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userId, documentID)
}

// List returns the user's documents newest first.
func (s *Service) List(ctx context.Context, userId string, limit, offset int) ([]Document, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}

// Count returns how many documents the user owns.
func (s *Service) Count(ctx context.Context, userId string) (int, error) {
	return s.Repo.CountByUser(ctx, userId)
}

// ClaimGuest moves guest-owned documents to the signed-in user.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	return s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
}

// Text returns the extracted text of a stored document, extracting and caching it on first use.
func (s *Service) Text(ctx context.Context, doc Document) (string, error) {
	if doc.ExtractedTextKey != "" {
		text, err := s.cachedText(ctx, doc.ExtractedTextKey)
		if err == nil {
			return text, nil
		}
		telemetry.Warn("documents.extracted.reread_failed", map[string]any{
			"document_id": doc.ID,
			"key":         doc.ExtractedTextKey,
			"missing":     errors.Is(err, object.ErrNotFound),
			"err":         err,
		})
	}

	text, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.EffectiveMime(), doc.FileName)
	if err != nil {
		return "", err
	}
	if err := s.Repo.UpdateExtraction(ctx, doc.UserID, doc.ID, extract.ExtractedKey(doc.StorageKey), time.Now().UTC()); err != nil {
		telemetry.Warn("documents.extracted.update_failed", map[string]any{
			"document_id": doc.ID,
			"err":         err,
		})
	}
	return text, nil
}

func (s *Service) cachedText(ctx context.Context, key string) (string, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", errEmptyCache
	}
	return string(raw), nil
}

// Delete hides the document and then removes its stored objects. Object
// removal is best effort; the metadata row is authoritative.
func (s *Service) Delete(ctx context.Context, userId, documentID string) error {
	if userId == "" || documentID == "" {
		return ErrInvalidInput
	}
	doc, err := s.Repo.SoftDelete(ctx, userId, documentID, time.Now().UTC())
	if err != nil {
		return err
	}
	for _, key := range []string{doc.StorageKey, doc.ExtractedTextKey} {
		if key == "" {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil {
			telemetry.Warn("documents.object_delete_failed", map[string]any{
				"document_id": doc.ID,
				"key":         key,
				"error":       err.Error(),
			})
		}
	}
	telemetry.Info("documents.deleted", map[string]any{"user_id": userId, "document_id": doc.ID})
	return nil
}

// ErrNotPDF is returned by ParseResume for anything other than a PDF.
var ErrNotPDF = errors.New("only PDF files are supported")

// ParseResume extracts plain text from an uploaded PDF without storing it.
func ParseResume(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	if extract.NormalizeMimeType(contentType, fileName, data) != extract.MimePDF {
		return "", ErrNotPDF
	}
	return extract.ExtractTextFromBytes(ctx, data, extract.MimePDF, fileName)
}

func (s *Service) provider() string {
	if s.StorageProvider == "" {
		return "local"
	}
	return s.StorageProvider
}
