package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/unklstewy/opensky-utah/internal/cache"
)

// tableRef identifies the store in cache errors.
const tableRef = "postgres:snapshot_cache"

// SnapshotStore implements cache.Store on a single-row table. The upsert
// replaces the row in one statement, so readers never see a partial entry.
type SnapshotStore struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

var _ cache.Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates a store on an initialized database.
func NewSnapshotStore(db *DB, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{
		db:     db,
		logger: logger.With("component", "cache", "backend", "postgres"),
		now:    time.Now,
	}
}

// Save replaces the cached row.
func (s *SnapshotStore) Save(ctx context.Context, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot_cache (id, fetched_at, payload)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at,
			payload = EXCLUDED.payload`,
		s.now().UTC(), payload,
	)
	if err != nil {
		return &cache.WriteError{Path: tableRef, Err: err}
	}
	return nil
}

// Load returns the cached row. Query failures are logged and reported as absent.
func (s *SnapshotStore) Load(ctx context.Context) (cache.Entry, bool) {
	var entry cache.Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, payload FROM snapshot_cache WHERE id = 1`,
	).Scan(&entry.Timestamp, &entry.Payload)

	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("no cached snapshot row")
		return cache.Entry{}, false
	}
	if err != nil {
		s.logger.Warn("failed to load cache", "error", &cache.ReadError{Path: tableRef, Err: err})
		return cache.Entry{}, false
	}

	s.logger.Info("cache loaded", "timestamp", entry.Timestamp)
	return entry, true
}

// Clear deletes the row; deleting nothing is fine.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshot_cache WHERE id = 1`); err != nil {
		return &cache.WriteError{Path: tableRef, Err: err}
	}
	return nil
}
