package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Entry is a loaded snapshot together with its cache metadata.
type Entry struct {
	Data     *Data
	ETag     string
	LoadedAt time.Time
}

// Store is a read-through cache over the snapshot file. A cached entry is
// served until ttl has passed since it was read.
type Store struct {
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu    sync.Mutex
	entry *Entry
}

func NewStore(path string, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   path,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Get returns the cached snapshot, reading the file on a miss or after expiry.
func (s *Store) Get(_ context.Context) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.entry != nil && now.Sub(s.entry.LoadedAt) < s.ttl {
		return s.entry, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	sum := sha256.Sum256(raw)
	s.entry = &Entry{
		Data:     &data,
		ETag:     `"` + hex.EncodeToString(sum[:8]) + `"`,
		LoadedAt: now,
	}

	s.logger.Debug("snapshot loaded",
		zap.String("path", s.path),
		zap.Int("items", len(data.Items)),
		zap.String("version", data.Version()))

	return s.entry, nil
}

// Invalidate drops the cached entry so the next Get rereads the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()
}

// Readable reports whether the snapshot file can be opened.
func (s *Store) Readable() bool {
	f, err := os.Open(s.path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Watch invalidates the cache whenever the snapshot file changes. It blocks
// until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create snapshot watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by rename.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				s.Invalidate()
				s.logger.Info("snapshot file changed, cache invalidated", zap.String("op", event.Op.String()))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("snapshot watcher error", zap.Error(err))
		}
	}
}
