package main

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"careerpilot-backend/internal/shared/config"
	"careerpilot-backend/internal/shared/storage/db"
)

func TestMigrateReportsConnectFailure(t *testing.T) {
	prev := connect
	t.Cleanup(func() { connect = prev })
	connect = func(context.Context, string) (*sql.DB, error) {
		return nil, errors.New("refused")
	}

	for _, args := range [][]string{nil, {"up"}, {"down"}, {"status"}} {
		cmd := newRootCmd(config.Config{DatabaseURL: "postgres://ignored"})
		cmd.SetArgs(args)
		err := cmd.Execute()
		require.ErrorContains(t, err, "connect: refused", "args %v", args)
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	cmd := newRootCmd(config.Config{})
	cmd.SetArgs([]string{"status"})
	require.ErrorIs(t, cmd.Execute(), db.ErrNoDatabaseURL)
}

func TestMigrateRejectsExtraArgs(t *testing.T) {
	cmd := newRootCmd(config.Config{})
	cmd.SetArgs([]string{"down", "3"})
	require.Error(t, cmd.Execute())
}
