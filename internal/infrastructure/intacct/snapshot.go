package intacct

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
)

// SnapshotStore persists the reference snapshot between runs. A snapshot is
// reused only while younger than the configured freshness window; anything
// older is treated as absent.
type SnapshotStore struct {
	path   string
	maxAge time.Duration
	log    *zap.Logger
	now    func() time.Time
}

type snapshotFile struct {
	WrittenAt   time.Time                               `json:"writtenAt"`
	Collections map[resolve.Kind][]resolve.RemoteEntity `json:"collections"`
}

// NewSnapshotStore creates a store for the given file path.
func NewSnapshotStore(path string, maxAge time.Duration, log *zap.Logger) *SnapshotStore {
	return &SnapshotStore{path: path, maxAge: maxAge, log: log.Named("snapshot"), now: time.Now}
}

// Load reads a fresh snapshot into a cache. The second return is false when
// no usable snapshot exists (missing, stale, or unreadable).
func (s *SnapshotStore) Load() (*resolve.Cache, bool) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("snapshot unreadable", zap.String("path", s.path), zap.Error(err))
		}
		return nil, false
	}

	var file snapshotFile
	if err := json.Unmarshal(raw, &file); err != nil {
		s.log.Warn("snapshot corrupt, ignoring", zap.String("path", s.path), zap.Error(err))
		return nil, false
	}

	age := s.now().Sub(file.WrittenAt)
	if age > s.maxAge {
		s.log.Info("snapshot stale, refetching",
			zap.Duration("age", age),
			zap.Duration("max_age", s.maxAge))
		return nil, false
	}

	cache := resolve.NewCache()
	for kind, entities := range file.Collections {
		cache.Put(kind, entities)
	}
	return cache, true
}

// Save writes the cache to disk with the current timestamp.
func (s *SnapshotStore) Save(cache *resolve.Cache) error {
	file := snapshotFile{
		WrittenAt:   s.now(),
		Collections: cache.Collections(),
	}
	raw, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("intacct: encoding snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("intacct: writing snapshot: %w", err)
	}
	return nil
}
