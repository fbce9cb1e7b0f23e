// Package storage persists engine state between evaluation cycles. Each
// cycle runs in its own invocation, so baseline windows and active alert
// state must outlive the process.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftwatch/driftwatch/internal/models"
)

// SQLiteStorage holds baseline windows and alert-event state in SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB
}

// NewSQLiteStorage creates a storage handle for the given database path.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open opens the database and applies migrations.
func (s *SQLiteStorage) Open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", s.path, err)
	}
	// Single writer; sqlite locks the file anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return fmt.Errorf("set pragmas: %w", err)
	}

	s.db = db
	if err := s.migrate(); err != nil {
		db.Close()
		return err
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveWindow replaces the persisted window for key with values, oldest
// first.
func (s *SQLiteStorage) SaveWindow(ctx context.Context, key models.MetricKey, values []float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM samples WHERE namespace = ? AND metric_name = ? AND statistic = ?",
		key.Namespace, key.MetricName, string(key.Statistic)); err != nil {
		return fmt.Errorf("clear window %s: %w", key, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO samples (namespace, metric_name, statistic, seq, value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, key.Namespace, key.MetricName, string(key.Statistic), i, v); err != nil {
			return fmt.Errorf("insert sample %s[%d]: %w", key, i, err)
		}
	}
	return tx.Commit()
}

// LoadWindows returns all persisted windows keyed by metric key, values
// oldest first.
func (s *SQLiteStorage) LoadWindows(ctx context.Context) (map[models.MetricKey][]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT namespace, metric_name, statistic, value FROM samples ORDER BY namespace, metric_name, statistic, seq")
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	defer rows.Close()

	windows := make(map[models.MetricKey][]float64)
	for rows.Next() {
		var (
			key  models.MetricKey
			stat string
			v    float64
		)
		if err := rows.Scan(&key.Namespace, &key.MetricName, &stat, &v); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		key.Statistic = models.Statistic(stat)
		windows[key] = append(windows[key], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return windows, nil
}

// SaveEvent upserts an alert event by id.
func (s *SQLiteStorage) SaveEvent(ctx context.Context, event *models.AlertEvent) error {
	query := `
		INSERT INTO alert_events (id, subject, source, severity, summary, state, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			summary = excluded.summary,
			state = excluded.state,
			resolved_at = excluded.resolved_at
	`
	var resolvedAt any
	if !event.ResolvedAt.IsZero() {
		resolvedAt = event.ResolvedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Subject, string(event.Source), string(event.Severity),
		event.Summary, string(event.State), event.CreatedAt.UTC(), resolvedAt)
	if err != nil {
		return fmt.Errorf("save event %s: %w", event.ID, err)
	}
	return nil
}

// ActiveEvents returns all events in state new.
func (s *SQLiteStorage) ActiveEvents(ctx context.Context) ([]models.AlertEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, subject, source, severity, summary, state, created_at, resolved_at FROM alert_events WHERE state = ?",
		string(models.AlertStateNew))
	if err != nil {
		return nil, fmt.Errorf("load active events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventHistory returns the most recent events, newest first.
func (s *SQLiteStorage) EventHistory(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, subject, source, severity, summary, state, created_at, resolved_at FROM alert_events ORDER BY created_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("load event history: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// PruneEvents deletes resolved events older than the cutoff.
func (s *SQLiteStorage) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM alert_events WHERE state = ? AND created_at < ?",
		string(models.AlertStateResolved), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanEvents(rows *sql.Rows) ([]models.AlertEvent, error) {
	var events []models.AlertEvent
	for rows.Next() {
		var (
			ev              models.AlertEvent
			source, sev, st string
			resolvedAt      sql.NullTime
		)
		if err := rows.Scan(&ev.ID, &ev.Subject, &source, &sev, &ev.Summary, &st, &ev.CreatedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Source = models.AlertSource(source)
		ev.Severity = models.Severity(sev)
		ev.State = models.AlertState(st)
		if resolvedAt.Valid {
			ev.ResolvedAt = resolvedAt.Time
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return events, nil
}
