package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// PGRepo stores accounts in the users table. Optional columns are NULL
// when empty so the partial unique index on phone ignores them.
type PGRepo struct {
	DB *sql.DB
}

const selectUser = `SELECT id, COALESCE(username, ''), email, COALESCE(phone, ''), COALESCE(password_hash, ''),
       COALESCE(full_name, ''), COALESCE(given_name, ''), COALESCE(family_name, ''), COALESCE(picture_url, ''),
       created_at, COALESCE(updated_at, created_at)
FROM users`

func optional(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func conflictOr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) Create(ctx context.Context, user User) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO users (id, username, email, phone, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		user.ID, optional(user.Username), user.Email, optional(user.Phone), optional(user.PasswordHash), user.CreatedAt)
	return conflictOr(err)
}

// Upsert inserts an OAuth user or refreshes its profile. Username, phone
// and password are left as they are.
func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO users (id, email, full_name, given_name, family_name, picture_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  full_name = EXCLUDED.full_name,
  given_name = EXCLUDED.given_name,
  family_name = EXCLUDED.family_name,
  picture_url = EXCLUDED.picture_url,
  updated_at = now()`,
		user.ID, user.Email, optional(user.FullName), optional(user.GivenName), optional(user.FamilyName), optional(user.PictureURL))
	return conflictOr(err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash,
		&u.FullName, &u.GivenName, &u.FamilyName, &u.PictureURL,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *PGRepo) one(ctx context.Context, where string, arg any) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, selectUser+" WHERE "+where+" LIMIT 1", arg))
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.one(ctx, "id = $1", userID)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.one(ctx, "lower(email) = lower($1)", email)
}

func (r *PGRepo) GetByPhone(ctx context.Context, phone string) (User, error) {
	return r.one(ctx, "phone = $1", phone)
}

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx, selectUser+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, userID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
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
