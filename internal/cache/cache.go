// Package cache keeps the raw payload of the last successful fetch so the
// tracker has something to show on a cold start without network.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Entry is the single cached record. Payload is the undecoded response body.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Payload   []byte    `json:"data"`
}

// Store persists at most one Entry.
//
// Load never returns an error: a missing or unreadable entry is reported as
// absent and the caller falls back to other data.
type Store interface {
	Save(ctx context.Context, payload []byte) error
	Load(ctx context.Context) (Entry, bool)
	Clear(ctx context.Context) error
}

// ReadError describes why a stored entry could not be used.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read cache %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// WriteError describes a failed Save or Clear.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write cache %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// FileStore keeps the entry as a JSON file. Writes go to a temporary file in
// the same directory which is then renamed over the old one, so an
// interrupted Save leaves the previous entry intact.
type FileStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewFileStore returns a store writing to path. The directory is created on first Save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger.With("component", "cache"),
		now:    time.Now,
	}
}

// Path returns the cache file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save overwrites the entry with payload stamped with the current time.
func (s *FileStore) Save(_ context.Context, payload []byte) error {
	data, err := json.Marshal(Entry{Timestamp: s.now().UTC(), Payload: payload})
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	// The rename is already in place; a failed directory sync only risks
	// losing the new entry on power loss.
	if err := syncDir(dir); err != nil {
		s.logger.Debug("cache directory sync failed", "dir", dir, "error", err)
	}

	s.logger.Debug("cache saved", "path", s.path, "bytes", len(payload))
	return nil
}

// syncDir flushes dir so a rename inside it is durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load returns the stored entry. Corrupt files are logged and reported as absent.
func (s *FileStore) Load(_ context.Context) (Entry, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("no cache file found", "path", s.path)
		} else {
			s.logger.Warn("failed to load cache", "error", &ReadError{Path: s.path, Err: err})
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("failed to load cache", "error", &ReadError{Path: s.path, Err: err})
		return Entry{}, false
	}
	if entry.Timestamp.IsZero() || entry.Payload == nil {
		s.logger.Warn("failed to load cache", "error", &ReadError{Path: s.path, Err: errors.New("incomplete entry")})
		return Entry{}, false
	}

	s.logger.Info("cache loaded", "timestamp", entry.Timestamp)
	return entry, true
}

// Clear removes the entry. Removing a missing entry is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &WriteError{Path: s.path, Err: err}
	}
	s.logger.Info("cache cleared", "path", s.path)
	return nil
}
