package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opptym/quill/helper"
	"github.com/opptym/quill/logger"
)

// StoreConfig holds configuration for the in-memory token store
type StoreConfig struct {
	// TTL is the lifetime of issued tokens.
	TTL time.Duration

	// DefaultMaxUsage is used when Issue is called with maxUsage <= 0.
	DefaultMaxUsage int

	// SweepInterval controls the background removal of expired records.
	// Zero disables the sweep; expiry is still enforced lazily on
	// access, the sweep is storage hygiene only.
	SweepInterval time.Duration
}

// DefaultStoreConfig returns a production-ready default configuration
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		TTL:             24 * time.Hour,
		DefaultMaxUsage: 3,
		SweepInterval:   time.Hour,
	}
}

// Metrics tracks operational statistics
type Metrics struct {
	mu             sync.RWMutex
	TokensIssued   int64
	TokensConsumed int64
	TokensExpired  int64
	TokensDrained  int64
	PairMismatches int64
}

func (m *Metrics) incr(counter *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int64{
		"tokens_issued":   m.TokensIssued,
		"tokens_consumed": m.TokensConsumed,
		"tokens_expired":  m.TokensExpired,
		"tokens_drained":  m.TokensDrained,
		"pair_mismatches": m.PairMismatches,
	}
}

// InmemStore is a mutex-guarded in-process token store. Suitable for
// single-process deployments; multi-process deployments should use the
// postgres store, which serializes consumption with row locks.
type InmemStore struct {
	mu      sync.Mutex
	tokens  map[string]*Token
	config  *StoreConfig
	logger  logger.Logger
	metrics *Metrics
	closed  bool
	stopCh  chan struct{}
}

var _ Store = (*InmemStore)(nil)

func NewInmemStore(log logger.Logger, config *StoreConfig) *InmemStore {
	if config == nil {
		config = DefaultStoreConfig()
	}

	store := &InmemStore{
		tokens:  make(map[string]*Token),
		config:  config,
		logger:  log,
		metrics: &Metrics{},
		stopCh:  make(chan struct{}),
	}

	if config.SweepInterval > 0 {
		go store.sweepLoop()
	}

	log.Info("token store initialized",
		logger.Duration("ttl", config.TTL),
		logger.Int("default_max_usage", config.DefaultMaxUsage))

	return store
}

func (s *InmemStore) Issue(ctx context.Context, projectID, linkID string, maxUsage int) (*Token, error) {
	if !helper.ValidIdentifier(projectID) {
		return nil, errors.New("malformed project identifier")
	}
	if !helper.ValidIdentifier(linkID) {
		return nil, errors.New("malformed link identifier")
	}
	if maxUsage <= 0 {
		maxUsage = s.config.DefaultMaxUsage
	}

	now := time.Now()
	tok := &Token{
		ID:        helper.GenerateTokenID(),
		ProjectID: projectID,
		LinkID:    linkID,
		CreatedAt: now,
		ExpireAt:  now.Add(s.config.TTL),
		MaxUsage:  maxUsage,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	s.tokens[tok.ID] = tok
	s.mu.Unlock()

	s.metrics.incr(&s.metrics.TokensIssued)

	s.logger.Debug("capability token issued",
		logger.String("token_hash", helper.Get8BytesHash(tok.ID)),
		logger.String("project_id", projectID),
		logger.String("link_id", linkID),
		logger.Int("max_usage", maxUsage),
		logger.Time("expire_at", tok.ExpireAt))

	copied := *tok
	return &copied, nil
}

func (s *InmemStore) Validate(ctx context.Context, tokenID string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	tok, found := s.tokens[tokenID]
	if !found {
		return nil, ErrNotFound
	}

	copied := *tok
	return &copied, nil
}

// CheckAndConsume implements the conditional increment under the store
// mutex. The checks run in a fixed order: presence, expiry, quota,
// pair binding. Terminal records are deleted before the error returns
// so an expired or exhausted token can never be revived.
func (s *InmemStore) CheckAndConsume(ctx context.Context, tokenID, projectID, linkID string) (*ConsumeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	tok, found := s.tokens[tokenID]
	if !found {
		return nil, ErrNotFound
	}

	tokenHash := helper.Get8BytesHash(tokenID)

	if time.Now().After(tok.ExpireAt) {
		delete(s.tokens, tokenID)
		s.metrics.incr(&s.metrics.TokensExpired)
		s.logger.Warn("expired token presented",
			logger.String("token_hash", tokenHash),
			logger.Time("expired_at", tok.ExpireAt))
		return nil, ErrExpired
	}

	if tok.UsageCount >= tok.MaxUsage {
		delete(s.tokens, tokenID)
		s.metrics.incr(&s.metrics.TokensDrained)
		s.logger.Warn("exhausted token presented",
			logger.String("token_hash", tokenHash),
			logger.Int("max_usage", tok.MaxUsage))
		return nil, ErrLimitReached
	}

	if tok.ProjectID != projectID || tok.LinkID != linkID {
		s.metrics.incr(&s.metrics.PairMismatches)
		s.logger.Warn("token pair mismatch",
			logger.String("token_hash", tokenHash),
			logger.String("project_id", projectID),
			logger.String("link_id", linkID))
		return nil, ErrMismatch
	}

	tok.UsageCount++
	remaining := tok.MaxUsage - tok.UsageCount
	result := &ConsumeResult{
		Remaining:  remaining,
		UsageCount: tok.UsageCount,
		MaxUsage:   tok.MaxUsage,
	}

	// Tombstone immediately once the quota is spent.
	if remaining == 0 {
		delete(s.tokens, tokenID)
	}

	s.metrics.incr(&s.metrics.TokensConsumed)

	s.logger.Debug("capability token consumed",
		logger.String("token_hash", tokenHash),
		logger.Int("usage_count", result.UsageCount),
		logger.Int("remaining", remaining))

	return result, nil
}

// Seed installs a record produced elsewhere, counters included. Used
// when rehydrating from shared storage and in tests.
func (s *InmemStore) Seed(tok *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	copied := *tok
	s.tokens[copied.ID] = &copied
}

// GetMetrics returns a snapshot of current metrics
func (s *InmemStore) GetMetrics() map[string]int64 {
	return s.metrics.Snapshot()
}

func (s *InmemStore) sweepLoop() {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InmemStore) sweep() {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	for id, tok := range s.tokens {
		if now.After(tok.ExpireAt) {
			delete(s.tokens, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("token sweep removed expired records",
			logger.Int("removed", removed))
	}
}

func (s *InmemStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.tokens = make(map[string]*Token)
	s.mu.Unlock()

	close(s.stopCh)

	s.logger.Info("token store closed")
	return nil
}
