package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgresStore(sqlxDB, time.Second, zerolog.Nop()), mock
}

func TestPostgresStore_CreateRunning_Success(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO queries").
		WithArgs(sqlmock.AnyArg(), "bitcoin", "MX", 7, 30, StatusRunning, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := s.CreateRunning(context.Background(), Params{Keyword: "bitcoin", Country: "MX", WindowDays: 7, BaselineDays: 30})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRunning_DBError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO queries").
		WillReturnError(assert.AnError)

	_, err := s.CreateRunning(context.Background(), Params{Keyword: "bitcoin", Country: "MX", WindowDays: 7, BaselineDays: 30})
	assert.Error(t, err)
}

func TestPostgresStore_PersistResult_AtomicCommit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO results").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectPrepare("INSERT INTO series_points").
		ExpectExec().WithArgs("q1", sqlmock.AnyArg(), 50).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectPrepare("INSERT INTO country_points").
		ExpectExec().WithArgs("q1", "MX", 80).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.PersistResult(context.Background(), "q1",
		Result{TrendScore: 42},
		[]SeriesPoint{{Date: time.Now(), Value: 50}},
		[]CountryPoint{{Country: "MX", Value: 80}},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PersistResult_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO results").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.PersistResult(context.Background(), "q1", Result{TrendScore: 42}, nil, nil)
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkDone_RejectsNonRunningTransition(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE queries").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.MarkDone(context.Background(), "q1")
	assert.Error(t, err)
}

func TestPostgresStore_MarkError_Success(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE queries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.MarkError(context.Background(), "q1", "upstream unavailable")
	require.NoError(t, err)
}
