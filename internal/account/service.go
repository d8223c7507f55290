package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"careerpilot-backend/internal/shared/storage/db"
)

// Ledger is the per-user slice of one resource the account view aggregates.
type Ledger interface {
	Count(ctx context.Context, userID string) (int, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

type Service struct {
	Documents  Ledger
	Analyses   Ledger
	Interviews Ledger
	// DB, when set, moves guest data in one transaction instead of per ledger.
	DB *sql.DB
}

type Summary struct {
	Documents  int `json:"documents"`
	Analyses   int `json:"analyses"`
	Interviews int `json:"interviews"`
}

type ClaimResult struct {
	MigratedDocuments  int `json:"migratedDocuments"`
	MigratedAnalyses   int `json:"migratedAnalyses"`
	MigratedInterviews int `json:"migratedInterviews"`
}

func NewService(docs, analyses, interviews Ledger) *Service {
	return &Service{Documents: docs, Analyses: analyses, Interviews: interviews}
}

// Summary counts the caller's documents, analyses and interview sessions.
func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	var out Summary
	g, ctx := errgroup.WithContext(ctx)
	count := func(l Ledger, dst *int, name string) {
		if l == nil {
			return
		}
		g.Go(func() error {
			n, err := l.Count(ctx, userID)
			if err != nil {
				return fmt.Errorf("count %s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}
	count(s.Documents, &out.Documents, "documents")
	count(s.Analyses, &out.Analyses, "analyses")
	count(s.Interviews, &out.Interviews, "interviews")
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}
	if s.DB != nil {
		return claimWithTx(ctx, s.DB, guestUserID, authedUserID)
	}

	var out ClaimResult
	var err error
	if out.MigratedDocuments, err = claim(ctx, s.Documents, guestUserID, authedUserID); err != nil {
		return ClaimResult{}, fmt.Errorf("claim documents: %w", err)
	}
	if out.MigratedAnalyses, err = claim(ctx, s.Analyses, guestUserID, authedUserID); err != nil {
		return ClaimResult{}, fmt.Errorf("claim analyses: %w", err)
	}
	if out.MigratedInterviews, err = claim(ctx, s.Interviews, guestUserID, authedUserID); err != nil {
		return ClaimResult{}, fmt.Errorf("claim interviews: %w", err)
	}
	return out, nil
}

func claim(ctx context.Context, l Ledger, guestUserID, authedUserID string) (int, error) {
	if l == nil {
		return 0, nil
	}
	return l.ClaimGuest(ctx, guestUserID, authedUserID)
}

func claimWithTx(ctx context.Context, pool *sql.DB, guestUserID, authedUserID string) (ClaimResult, error) {
	var out ClaimResult
	err := db.WithTx(ctx, pool, func(tx *sql.Tx) error {
		move := func(dst *int, query string) error {
			res, err := tx.ExecContext(ctx, query, authedUserID, guestUserID)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			*dst = int(n)
			return err
		}
		if err := move(&out.MigratedDocuments, `UPDATE documents SET user_id = $1 WHERE user_id = $2 AND deleted_at IS NULL`); err != nil {
			return err
		}
		if err := move(&out.MigratedAnalyses, `UPDATE analyses SET user_id = $1 WHERE user_id = $2`); err != nil {
			return err
		}
		return move(&out.MigratedInterviews, `UPDATE interview_sessions SET user_id = $1 WHERE user_id = $2`)
	})
	if err != nil {
		return ClaimResult{}, err
	}
	return out, nil
}
