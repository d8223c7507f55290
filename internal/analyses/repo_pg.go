package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"careerpilot-backend/internal/skillmatch"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, user_id, user_email, document_id, job_id, resume_file_name, job_description,
       status, match_score, result, analysis_raw, error_code, error_message, retryable,
       provider, model, prompt_hash, started_at, completed_at, created_at`

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	const query = `
INSERT INTO analyses (
    id, user_id, user_email, document_id, job_id, resume_file_name, job_description,
    status, match_score, result, provider, model, completed_at, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13, $14)`

	result, err := marshalResult(a.Result)
	if err != nil {
		return err
	}
	var score any
	if a.MatchScore != nil {
		score = *a.MatchScore
	}
	var completedAt any
	if a.CompletedAt != nil {
		completedAt = *a.CompletedAt
	}
	_, err = r.DB.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		nullString(a.UserEmail),
		nullString(a.DocumentID),
		nullString(a.JobID),
		nullString(a.ResumeFileName),
		a.JobDescription,
		a.Status,
		score,
		result,
		nullString(a.Provider),
		nullString(a.Model),
		completedAt,
		a.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1 LIMIT 1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// MarkProcessing only transitions queued or stalled processing rows, so a
// redelivered message never reopens a finished analysis.
func (r *PGRepo) MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) (bool, error) {
	const query = `
UPDATE analyses
SET status = 'processing', started_at = $2
WHERE id = $1 AND status IN ('queued', 'processing')`
	res, err := r.DB.ExecContext(ctx, query, analysisID, startedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, analysisID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PGRepo) Complete(ctx context.Context, analysisID string, result skillmatch.Result, trace skillmatch.Trace, completedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = 'completed',
    match_score = $2,
    result = $3::jsonb,
    analysis_raw = $4,
    prompt_hash = $5,
    error_code = NULL,
    error_message = NULL,
    retryable = NULL,
    completed_at = $6
WHERE id = $1`
	payload, err := marshalResult(&result)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, analysisID, result.MatchScore, payload, nullString(trace.Raw), nullString(trace.PromptHash), completedAt)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) Fail(ctx context.Context, analysisID string, failure Failure, completedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = 'failed',
    error_code = $2,
    error_message = $3,
    retryable = $4,
    completed_at = $5
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, analysisID, failure.Code, failure.Message, failure.Retryable, completedAt)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListByUser returns analyses for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	return r.list(ctx, query, userID, limit, offset)
}

// ListByEmail returns every analysis saved under the email, newest first.
func (r *PGRepo) ListByEmail(ctx context.Context, email string) ([]Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE lower(user_email) = lower($1)
ORDER BY created_at DESC`
	return r.list(ctx, query, email)
}

func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// ClaimGuest reassigns guest-owned analyses to the signed-in user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE analyses SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Analysis, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a                                      Analysis
		userEmail, documentID, jobID, fileName sql.NullString
		result, raw, errorCode, errorMessage   sql.NullString
		provider, model, promptHash            sql.NullString
		matchScore                             sql.NullInt64
		retryable                              sql.NullBool
		startedAt, completedAt                 sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&userEmail,
		&documentID,
		&jobID,
		&fileName,
		&a.JobDescription,
		&a.Status,
		&matchScore,
		&result,
		&raw,
		&errorCode,
		&errorMessage,
		&retryable,
		&provider,
		&model,
		&promptHash,
		&startedAt,
		&completedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return Analysis{}, err
	}
	a.UserEmail = userEmail.String
	a.DocumentID = documentID.String
	a.JobID = jobID.String
	a.ResumeFileName = fileName.String
	a.Raw = raw.String
	a.ErrorCode = errorCode.String
	a.ErrorMessage = errorMessage.String
	a.Retryable = retryable.Bool
	a.Provider = provider.String
	a.Model = model.String
	a.PromptHash = promptHash.String
	if matchScore.Valid {
		score := int(matchScore.Int64)
		a.MatchScore = &score
	}
	if result.Valid && result.String != "" {
		var res skillmatch.Result
		if err := json.Unmarshal([]byte(result.String), &res); err != nil {
			return Analysis{}, fmt.Errorf("decode result %s: %w", a.ID, err)
		}
		a.Result = &res
	}
	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

func marshalResult(result *skillmatch.Result) (any, error) {
	if result == nil {
		return nil, nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
