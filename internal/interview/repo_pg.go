package interview

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. Questions and answers live in jsonb columns.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, s Session) error {
	const query = `
INSERT INTO interview_sessions (id, user_id, job_id, job_description, questions, answers, created_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7)`
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	answers := s.Answers
	if answers == nil {
		answers = []Answer{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	var jobID sql.NullString
	if s.JobID != "" {
		jobID = sql.NullString{String: s.JobID, Valid: true}
	}
	_, err = r.DB.ExecContext(ctx, query, s.ID, s.UserID, jobID, s.JobDescription, string(questions), string(answersJSON), s.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Session, error) {
	const query = `
SELECT id, user_id, job_id, job_description, questions, answers, created_at, completed_at
FROM interview_sessions
WHERE user_id = $1 AND id = $2
LIMIT 1`
	var (
		s           Session
		jobID       sql.NullString
		questions   []byte
		answers     []byte
		completedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, userID, id).Scan(
		&s.ID,
		&s.UserID,
		&jobID,
		&s.JobDescription,
		&questions,
		&answers,
		&s.CreatedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	s.JobID = jobID.String
	if err := json.Unmarshal(questions, &s.Questions); err != nil {
		return Session{}, fmt.Errorf("decode questions: %w", err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return Session{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	return s, nil
}

// AppendAnswer relies on jsonb containment so a question index is stored once.
// Completion is computed from the stored arrays inside the same UPDATE.
func (r *PGRepo) AppendAnswer(ctx context.Context, userID, id string, a Answer) (Session, error) {
	const query = `
UPDATE interview_sessions
SET answers = answers || $1::jsonb,
    completed_at = COALESCE(completed_at,
        CASE WHEN jsonb_array_length(answers) + 1 >= jsonb_array_length(questions)
             THEN $2::timestamptz END)
WHERE user_id = $3 AND id = $4 AND NOT (answers @> $5::jsonb)`
	answerJSON, err := json.Marshal([]Answer{a})
	if err != nil {
		return Session{}, fmt.Errorf("marshal answer: %w", err)
	}
	answered := fmt.Sprintf(`[{"questionIndex":%d}]`, a.QuestionIndex)
	res, err := r.DB.ExecContext(ctx, query, string(answerJSON), a.AnsweredAt, userID, id, answered)
	if err != nil {
		return Session{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Session{}, err
	}
	s, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return Session{}, err
	}
	if n == 0 {
		return Session{}, ErrAlreadyAnswered
	}
	return s, nil
}

func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM interview_sessions WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE interview_sessions SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

var _ Repo = (*PGRepo)(nil)
