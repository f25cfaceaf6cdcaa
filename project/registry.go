package project

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/storage"
)

const storagePrefix = "projects"

// cacheTTL bounds snapshot staleness. Scripts embed the snapshot at
// synthesis time, so a short window is enough.
const cacheTTL = 30 * time.Second

// Registry is a Source backed by the keyed storage layer, fronted by a
// TTL cache. Concurrent fetches of the same project are collapsed into
// a single backend read.
type Registry struct {
	backend storage.Backend
	cache   *ristretto.Cache[string, *Snapshot]
	group   singleflight.Group
	logger  logger.Logger
}

var _ Source = (*Registry)(nil)

func NewRegistry(backend storage.Backend, log logger.Logger) (*Registry, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *Snapshot]{
		NumCounters: 1e5,
		MaxCost:     10 << 20, // 10 MB
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot cache: %w", err)
	}

	return &Registry{
		backend: backend,
		cache:   cache,
		logger:  log,
	}, nil
}

func (r *Registry) GetSnapshot(ctx context.Context, projectID string) (*Snapshot, error) {
	if snap, found := r.cache.Get(projectID); found {
		return snap, nil
	}

	result, err, _ := r.group.Do(projectID, func() (any, error) {
		value, err := r.backend.Get(ctx, storagePrefix, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project record: %w", err)
		}
		if value == nil {
			return nil, ErrNotFound
		}

		var snap Snapshot
		if err := json.Unmarshal(value, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode project record: %w", err)
		}

		r.cache.SetWithTTL(projectID, &snap, int64(len(value)), cacheTTL)
		return &snap, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Snapshot), nil
}

// Put stores a snapshot. Project records are owned by an external
// collaborator in production; this entry point exists for seeding and
// tests.
func (r *Registry) Put(ctx context.Context, snap *Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode project record: %w", err)
	}

	if err := r.backend.Put(ctx, storagePrefix, snap.ID, value); err != nil {
		return err
	}

	r.cache.Del(snap.ID)
	return nil
}

func (r *Registry) Close() {
	r.cache.Close()
}
