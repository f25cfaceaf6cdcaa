package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opptym/quill/helper"
	"github.com/opptym/quill/logger"
)

// PostgresStore persists tokens in a table and serializes consumption
// of a single token with a row lock, so multiple server processes can
// share one token space without breaking the usage-limit invariant.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	config *StoreConfig
	logger logger.Logger
}

var _ Store = (*PostgresStore)(nil)

const createTokenTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
    id          TEXT PRIMARY KEY,
    project_id  TEXT NOT NULL,
    link_id     TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    expire_at   TIMESTAMPTZ NOT NULL,
    usage_count INTEGER NOT NULL DEFAULT 0,
    max_usage   INTEGER NOT NULL,
    CHECK (usage_count <= max_usage)
)`

func NewPostgresStore(ctx context.Context, log logger.Logger, config *StoreConfig, connectionURL, table string) (*PostgresStore, error) {
	if config == nil {
		config = DefaultStoreConfig()
	}
	if table == "" {
		table = "capability_tokens"
	}

	pool, err := pgxpool.New(ctx, connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf(createTokenTableSQL, pgx.Identifier{table}.Sanitize())); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create token table: %w", err)
	}

	log.Info("postgres token store initialized",
		logger.String("table", table),
		logger.Duration("ttl", config.TTL))

	return &PostgresStore{
		pool:   pool,
		table:  pgx.Identifier{table}.Sanitize(),
		config: config,
		logger: log,
	}, nil
}

func (s *PostgresStore) Issue(ctx context.Context, projectID, linkID string, maxUsage int) (*Token, error) {
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

	query := fmt.Sprintf(`INSERT INTO %s (id, project_id, link_id, created_at, expire_at, usage_count, max_usage)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`, s.table)

	if _, err := s.pool.Exec(ctx, query,
		tok.ID, tok.ProjectID, tok.LinkID, tok.CreatedAt, tok.ExpireAt, tok.MaxUsage); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	s.logger.Debug("capability token issued",
		logger.String("token_hash", helper.Get8BytesHash(tok.ID)),
		logger.String("project_id", projectID),
		logger.String("link_id", linkID))

	return tok, nil
}

func (s *PostgresStore) Validate(ctx context.Context, tokenID string) (*Token, error) {
	query := fmt.Sprintf(`SELECT id, project_id, link_id, created_at, expire_at, usage_count, max_usage
		FROM %s WHERE id = $1`, s.table)

	var tok Token
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&tok.ID, &tok.ProjectID, &tok.LinkID, &tok.CreatedAt, &tok.ExpireAt, &tok.UsageCount, &tok.MaxUsage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	return &tok, nil
}

// CheckAndConsume locks the token row for the duration of the check,
// mirroring the in-memory store's critical section. The row is deleted
// in the same transaction when the record reaches a terminal state.
func (s *PostgresStore) CheckAndConsume(ctx context.Context, tokenID, projectID, linkID string) (*ConsumeResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`SELECT project_id, link_id, expire_at, usage_count, max_usage
		FROM %s WHERE id = $1 FOR UPDATE`, s.table)

	var (
		boundProject string
		boundLink    string
		expireAt     time.Time
		usageCount   int
		maxUsage     int
	)
	err = tx.QueryRow(ctx, query, tokenID).Scan(&boundProject, &boundLink, &expireAt, &usageCount, &maxUsage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock token row: %w", err)
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)

	if time.Now().After(expireAt) {
		if _, err := tx.Exec(ctx, deleteQuery, tokenID); err != nil {
			return nil, fmt.Errorf("failed to remove expired token: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit expiry removal: %w", err)
		}
		return nil, ErrExpired
	}

	if usageCount >= maxUsage {
		if _, err := tx.Exec(ctx, deleteQuery, tokenID); err != nil {
			return nil, fmt.Errorf("failed to remove exhausted token: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit exhaustion removal: %w", err)
		}
		return nil, ErrLimitReached
	}

	if boundProject != projectID || boundLink != linkID {
		return nil, ErrMismatch
	}

	usageCount++
	remaining := maxUsage - usageCount

	if remaining == 0 {
		if _, err := tx.Exec(ctx, deleteQuery, tokenID); err != nil {
			return nil, fmt.Errorf("failed to remove drained token: %w", err)
		}
	} else {
		updateQuery := fmt.Sprintf(`UPDATE %s SET usage_count = $2 WHERE id = $1`, s.table)
		if _, err := tx.Exec(ctx, updateQuery, tokenID, usageCount); err != nil {
			return nil, fmt.Errorf("failed to increment usage counter: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit consumption: %w", err)
	}

	s.logger.Debug("capability token consumed",
		logger.String("token_hash", helper.Get8BytesHash(tokenID)),
		logger.Int("usage_count", usageCount),
		logger.Int("remaining", remaining))

	return &ConsumeResult{
		Remaining:  remaining,
		UsageCount: usageCount,
		MaxUsage:   maxUsage,
	}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	s.logger.Info("postgres token store closed")
	return nil
}
