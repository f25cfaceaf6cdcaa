package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/storage"
)

const storagePrefix = "links"

// Requirement sets change rarely; cache them longer than project
// snapshots.
const cacheTTL = 5 * time.Minute

// Registry is a Source backed by the keyed storage layer with a TTL
// cache in front.
type Registry struct {
	backend storage.Backend
	cache   *ristretto.Cache[string, *Link]
	logger  logger.Logger
}

var _ Source = (*Registry)(nil)

func NewRegistry(backend storage.Backend, log logger.Logger) (*Registry, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *Link]{
		NumCounters: 1e5,
		MaxCost:     10 << 20, // 10 MB
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize link cache: %w", err)
	}

	return &Registry{
		backend: backend,
		cache:   cache,
		logger:  log,
	}, nil
}

func (r *Registry) GetLink(ctx context.Context, linkID string) (*Link, error) {
	if link, found := r.cache.Get(linkID); found {
		return link, nil
	}

	value, err := r.backend.Get(ctx, storagePrefix, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to load link record: %w", err)
	}
	if value == nil {
		return nil, ErrNotFound
	}

	var link Link
	if err := json.Unmarshal(value, &link); err != nil {
		return nil, fmt.Errorf("failed to decode link record: %w", err)
	}

	r.cache.SetWithTTL(linkID, &link, int64(len(value)), cacheTTL)
	return &link, nil
}

// Put stores a link record. Exists for seeding and tests; directory
// administration is an external collaborator's concern.
func (r *Registry) Put(ctx context.Context, link *Link) error {
	value, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to encode link record: %w", err)
	}

	if err := r.backend.Put(ctx, storagePrefix, link.ID, value); err != nil {
		return err
	}

	r.cache.Del(link.ID)
	return nil
}

func (r *Registry) Close() {
	r.cache.Close()
}
