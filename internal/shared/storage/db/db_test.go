package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// stubOpen routes Connect to sqlmock pools and counts how often it was asked.
func stubOpen(t *testing.T) *int {
	t.Helper()
	calls := 0
	var mu sync.Mutex
	prev := openDB
	openDB = func(driverName, dsn string) (*sql.DB, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		pool, _, err := sqlmock.New()
		return pool, err
	}
	t.Cleanup(func() {
		openDB = prev
		shared.mu.Lock()
		shared.pool = nil
		shared.mu.Unlock()
	})
	return &calls
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), "  ", DefaultServerOptions())
	require.ErrorIs(t, err, ErrNoDatabaseURL)
}

func TestConnectAppliesPoolOptions(t *testing.T) {
	stubOpen(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	require.Equal(t, Options{
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: 20 * time.Minute,
		ConnMaxIdleTime: 45 * time.Second,
		PingTimeout:     time.Second,
	}, opts)

	pool, err := Connect(context.Background(), "postgres://ignored", opts)
	require.NoError(t, err)
	defer pool.Close()
	require.Equal(t, 7, pool.Stats().MaxOpenConnections)
}

func TestOptionsFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("DB_PING_TIMEOUT", "soon")

	require.Equal(t, DefaultWorkerOptions(), OptionsFromEnv(DefaultWorkerOptions()))
}

func TestConnectClosesPoolWhenPingFails(t *testing.T) {
	prev := openDB
	t.Cleanup(func() { openDB = prev })
	var mock sqlmock.Sqlmock
	openDB = func(string, string) (*sql.DB, error) {
		pool, m, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		mock = m
		m.ExpectPing().WillReturnError(errors.New("refused"))
		m.ExpectClose()
		return pool, err
	}

	_, err := Connect(context.Background(), "postgres://ignored", DefaultMigrateOptions())
	require.ErrorContains(t, err, "ping database")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSingletonReusesPool(t *testing.T) {
	calls := stubOpen(t)

	first, err := GetSingleton(context.Background(), "postgres://ignored", DefaultWorkerOptions())
	require.NoError(t, err)
	second, err := GetSingleton(context.Background(), "postgres://ignored", DefaultWorkerOptions())
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, *calls)
}

func TestGetSingletonRetriesAfterFailure(t *testing.T) {
	stubOpen(t)
	_, err := GetSingleton(context.Background(), "", DefaultWorkerOptions())
	require.ErrorIs(t, err, ErrNoDatabaseURL)

	pool, err := GetSingleton(context.Background(), "postgres://ignored", DefaultWorkerOptions())
	require.NoError(t, err)
	require.NotNil(t, pool)
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pool.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	err = WithTx(context.Background(), pool, func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE documents SET user_id = $1", "u-1")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = WithTx(context.Background(), pool, func(*sql.Tx) error { return boom })
	require.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
