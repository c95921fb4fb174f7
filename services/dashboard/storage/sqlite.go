package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	selectionRowID         = 1
	minCleanupIntervalSecs = 60
	memoryDBPath           = ":memory:"
)

var log = logger.GetOrCreate("storage")

// sqliteStorage is the sqlite implementation for the dashboard persistence
type sqliteStorage struct {
	db               *sql.DB
	retentionSeconds int
	cancelFunc       context.CancelFunc
	wg               sync.WaitGroup
}

// NewSQLiteStorage creates the database, schema, and starts the retention cleaner
func NewSQLiteStorage(dbPath string, retentionSeconds int) (*sqliteStorage, error) {
	if retentionSeconds <= 0 {
		return nil, fmt.Errorf("invalid retention seconds %d", retentionSeconds)
	}

	if dbPath != memoryDBPath {
		err := prepareDirectories(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create initial empty DB file: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every sqlite connection to :memory: is a distinct database
	db.SetMaxOpenConns(1)

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &sqliteStorage{
		db:               db,
		retentionSeconds: retentionSeconds,
		cancelFunc:       cancel,
	}

	s.startRetentionCleaner(ctx)

	return s, nil
}

func prepareDirectories(dbPath string) error {
	return os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS selections (
		id          INTEGER NOT NULL PRIMARY KEY,
		metric_name TEXT    NOT NULL,
		rollup      TEXT    NOT NULL,
		time_range  TEXT    NOT NULL,
		updated_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS refresh_history (
		token       INTEGER NOT NULL,
		metric_name TEXT    NOT NULL,
		rollup      TEXT    NOT NULL,
		time_range  TEXT    NOT NULL,
		state       TEXT    NOT NULL,
		message     TEXT    NOT NULL,
		num_points  INTEGER NOT NULL DEFAULT 0,
		started_at  INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_refresh_history_started_at ON refresh_history(started_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveSelection stores the selection so it can be restored after a restart
func (s *sqliteStorage) SaveSelection(ctx context.Context, selection common.Selection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO selections (id, metric_name, rollup, time_range, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			metric_name=excluded.metric_name,
			rollup=excluded.rollup,
			time_range=excluded.time_range,
			updated_at=excluded.updated_at
	`, selectionRowID, selection.Metric, selection.Rollup, selection.Range, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	return nil
}

// LoadSelection returns the last saved selection. The boolean is false if nothing was saved yet.
func (s *sqliteStorage) LoadSelection(ctx context.Context) (common.Selection, bool, error) {
	var selection common.Selection

	err := s.db.QueryRowContext(ctx, "SELECT metric_name, rollup, time_range FROM selections WHERE id = ?", selectionRowID).
		Scan(&selection.Metric, &selection.Rollup, &selection.Range)
	if errors.Is(err, sql.ErrNoRows) {
		return common.Selection{}, false, nil
	}
	if err != nil {
		return common.Selection{}, false, fmt.Errorf("failed to load selection: %w", err)
	}

	return selection, true, nil
}

// RecordRefresh appends a settled refresh to the history
func (s *sqliteStorage) RecordRefresh(ctx context.Context, record common.RefreshRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_history (token, metric_name, rollup, time_range, state, message, num_points, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.Token, record.Metric, record.Rollup, record.Range, record.State, record.Message,
		record.NumPoints, record.StartedAt.UnixMilli(), record.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to record refresh: %w", err)
	}

	return nil
}

// GetRefreshHistory returns up to limit history entries, newest first
func (s *sqliteStorage) GetRefreshHistory(ctx context.Context, limit int) ([]common.RefreshRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, metric_name, rollup, time_range, state, message, num_points, started_at, duration_ms
		FROM refresh_history
		ORDER BY started_at DESC, token DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]common.RefreshRecord, 0)
	for rows.Next() {
		var record common.RefreshRecord
		var startedAt int64

		err = rows.Scan(&record.Token, &record.Metric, &record.Rollup, &record.Range, &record.State,
			&record.Message, &record.NumPoints, &startedAt, &record.DurationMs)
		if err != nil {
			return nil, err
		}

		record.StartedAt = time.UnixMilli(startedAt).UTC()
		results = append(results, record)
	}

	return results, rows.Err()
}

func (s *sqliteStorage) cleanRetainedHistory(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(s.retentionSeconds) * time.Second).UnixMilli()
	_, err := s.db.ExecContext(ctx, "DELETE FROM refresh_history WHERE started_at < ?", cutoff)
	return err
}

func (s *sqliteStorage) startRetentionCleaner(ctx context.Context) {
	s.wg.Add(1)

	intervalSec := s.retentionSeconds / 10
	if intervalSec < minCleanupIntervalSecs {
		intervalSec = minCleanupIntervalSecs
	}

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)

	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Debug("running refresh history retention cleanup")

				err := s.cleanRetainedHistory(ctx)
				if err != nil {
					log.Warn("failed to cleanup refresh history", "error", err)
				}
			}
		}
	}()
}

// Close closes the database and stops background routines
func (s *sqliteStorage) Close() error {
	s.cancelFunc()
	s.wg.Wait()
	return s.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *sqliteStorage) IsInterfaceNil() bool {
	return s == nil
}
