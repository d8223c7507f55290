package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo stores document metadata in the documents table. Rows are soft
// deleted through deleted_at.
type PGRepo struct {
	DB *sql.DB
}

const (
	selectDocument = `SELECT id, user_id, file_name, original_filename, mime_type, content_type, size_bytes,
       storage_provider, storage_key, extracted_text_key, extracted_at, created_at
FROM documents`
	liveDocuments = ` WHERE user_id = $1 AND deleted_at IS NULL`
)

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO documents (id, user_id, file_name, original_filename, mime_type, content_type,
                       size_bytes, storage_provider, storage_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.DisplayName(),
		doc.MimeType,
		doc.EffectiveMime(),
		doc.SizeBytes,
		orDefault(doc.StorageProvider, "local"),
		nullIfEmpty(doc.StorageKey),
		doc.CreatedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		doc                                  Document
		original, contentType, provider, key sql.NullString
		extractedKey                         sql.NullString
		extractedAt                          sql.NullTime
	)
	err := row.Scan(&doc.ID, &doc.UserID, &doc.FileName, &original, &doc.MimeType, &contentType,
		&doc.SizeBytes, &provider, &key, &extractedKey, &extractedAt, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.OriginalFilename = original.String
	doc.ContentType = contentType.String
	doc.StorageProvider = provider.String
	doc.StorageKey = key.String
	doc.ExtractedTextKey = extractedKey.String
	if extractedAt.Valid {
		t := extractedAt.Time
		doc.ExtractedAt = &t
	}
	return doc, nil
}

func (r *PGRepo) GetCurrentByUser(ctx context.Context, userId string) (Document, error) {
	return scanDocument(r.DB.QueryRowContext(ctx,
		selectDocument+liveDocuments+` ORDER BY created_at DESC LIMIT 1`, userId))
}

func (r *PGRepo) GetByID(ctx context.Context, userId, documentID string) (Document, error) {
	return scanDocument(r.DB.QueryRowContext(ctx,
		selectDocument+liveDocuments+` AND id = $2`, userId, documentID))
}

// ListByUser pages newest first. A non-positive limit means 20; the cap is 100.
func (r *PGRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, 100)
	offset = max(offset, 0)

	rows, err := r.DB.QueryContext(ctx,
		selectDocument+liveDocuments+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userId, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) CountByUser(ctx context.Context, userId string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+liveDocuments, userId).Scan(&n)
	return n, err
}

func (r *PGRepo) UpdateExtraction(ctx context.Context, userId, documentID, extractedKey string, extractedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
UPDATE documents SET extracted_text_key = $3, extracted_at = $4
WHERE user_id = $1 AND id = $2 AND extracted_text_key IS NULL`,
		userId, documentID, extractedKey, extractedAt)
	return err
}

func (r *PGRepo) SoftDelete(ctx context.Context, userId, documentID string, at time.Time) (Document, error) {
	return scanDocument(r.DB.QueryRowContext(ctx, `
UPDATE documents SET deleted_at = $3
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
RETURNING id, user_id, file_name, original_filename, mime_type, content_type, size_bytes,
          storage_provider, storage_key, extracted_text_key, extracted_at, created_at`,
		userId, documentID, at))
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE documents SET user_id = $1 WHERE user_id = $2 AND deleted_at IS NULL`, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

var _ DocumentsRepo = (*PGRepo)(nil)
