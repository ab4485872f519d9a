package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// PostgresStore is the sqlx/lib-pq backed implementation of Store.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
	log     zerolog.Logger
}

// NewPostgresStore wraps an open *sqlx.DB. timeout bounds each
// individual operation's context.
func NewPostgresStore(db *sqlx.DB, timeout time.Duration, log zerolog.Logger) *PostgresStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout, log: log.With().Str("component", "store.postgres").Logger()}
}

// CreateRunning inserts a new queries row in the Running state and
// returns its id. This is a critical write: failure propagates as a
// StorageError at the engine boundary (500).
func (s *PostgresStore) CreateRunning(ctx context.Context, params Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id := uuid.NewString()
	const q = `
		INSERT INTO queries (id, keyword, country, window_days, baseline_days, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, q, id, params.Keyword, params.Country, params.WindowDays, params.BaselineDays, StatusRunning, time.Now().UTC())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return "", fmt.Errorf("store: create_running failed (code %s): %w", pqErr.Code, err)
		}
		return "", fmt.Errorf("store: create_running failed: %w", err)
	}
	return id, nil
}

// PersistResult writes the result, series points, and country points
// for queryID inside a single transaction: all rows commit together or
// none do.
func (s *PostgresStore) PersistResult(ctx context.Context, queryID string, result Result, series []SeriesPoint, byCountry []CountryPoint) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: persist_result: begin tx: %w", err)
	}
	defer tx.Rollback()

	const insertResult = `
		INSERT INTO results (query_id, trend_score, growth_signal, slope_signal, peak_signal, explanations, sources_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insertResult,
		queryID, result.TrendScore, result.GrowthSignal, result.SlopeSignal, result.PeakSignal,
		pq.Array(result.Explanations), pq.Array(result.SourcesUsed)); err != nil {
		return fmt.Errorf("store: persist_result: insert result: %w", err)
	}

	if len(series) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO series_points (query_id, date, value) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("store: persist_result: prepare series insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range series {
			if _, err := stmt.ExecContext(ctx, queryID, p.Date, p.Value); err != nil {
				return fmt.Errorf("store: persist_result: insert series point: %w", err)
			}
		}
	}

	if len(byCountry) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO country_points (query_id, country, value) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("store: persist_result: prepare country insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range byCountry {
			if _, err := stmt.ExecContext(ctx, queryID, p.Country, p.Value); err != nil {
				return fmt.Errorf("store: persist_result: insert country point: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: persist_result: commit: %w", err)
	}
	return nil
}

// MarkDone transitions queryID to Done and sets finished_at.
// Best-effort: the engine logs failures here, it does not fail the
// request over them.
func (s *PostgresStore) MarkDone(ctx context.Context, queryID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const q = `UPDATE queries SET status = $1, finished_at = $2 WHERE id = $3 AND status = $4`
	res, err := s.db.ExecContext(ctx, q, StatusDone, time.Now().UTC(), queryID, StatusRunning)
	if err != nil {
		return fmt.Errorf("store: mark_done: %w", err)
	}
	return checkTerminalTransition(res)
}

// MarkError transitions queryID to Error, sets finished_at and
// error_message. Best-effort, same as MarkDone.
func (s *PostgresStore) MarkError(ctx context.Context, queryID string, message string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const q = `UPDATE queries SET status = $1, finished_at = $2, error_message = $3 WHERE id = $4 AND status = $5`
	res, err := s.db.ExecContext(ctx, q, StatusError, time.Now().UTC(), message, queryID, StatusRunning)
	if err != nil {
		return fmt.Errorf("store: mark_error: %w", err)
	}
	return checkTerminalTransition(res)
}

func checkTerminalTransition(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: query was not in Running state, transition rejected")
	}
	return nil
}

// Ping checks database reachability for the health endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}
