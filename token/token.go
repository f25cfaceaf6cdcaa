package token

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the token never existed, or has already been
	// removed after expiring or exhausting its quota. Forged and
	// consumed tokens are indistinguishable on purpose.
	ErrNotFound = errors.New("token not found")

	// ErrExpired means the token existed but its TTL has elapsed. The
	// record is removed when this is observed.
	ErrExpired = errors.New("token has expired")

	// ErrLimitReached means the usage counter already equals the usage
	// limit. The record is removed when this is observed.
	ErrLimitReached = errors.New("token usage limit reached")

	// ErrMismatch means the supplied project/link pair does not equal
	// the pair the token was bound to at issuance.
	ErrMismatch = errors.New("token does not match project and link")

	ErrStoreClosed = errors.New("token store is closed")
)

// Token is a single-purpose capability bound to a (project, link) pair.
// It authorizes a limited number of bookmarklet script deliveries
// before a fixed expiry.
type Token struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	LinkID     string    `json:"link_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpireAt   time.Time `json:"expire_at"`
	UsageCount int       `json:"usage_count"`
	MaxUsage   int       `json:"max_usage"`
}

// Remaining returns the number of deliveries the token still allows.
func (t *Token) Remaining() int {
	remaining := t.MaxUsage - t.UsageCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ConsumeResult reports the counters after a successful consumption.
type ConsumeResult struct {
	Remaining  int
	UsageCount int
	MaxUsage   int
}

// Store issues, validates, and consumes capability tokens.
//
// CheckAndConsume is the atomic heart of the store: lookup, expiry
// check, quota check, pair check, and counter increment happen under a
// single-token critical section so the usage counter can never exceed
// the limit, even when the same token is consumed concurrently.
// Failure causes are reported as the distinct sentinel errors above and
// are never collapsed.
type Store interface {
	// Issue creates a token bound to the pair, with counter zero and a
	// fresh expiry. The identifiers must be well-formed; whether the
	// records exist is checked later, at use time.
	Issue(ctx context.Context, projectID, linkID string, maxUsage int) (*Token, error)

	// Validate looks a token up without consuming it. Returns a copy of
	// the record, or ErrNotFound.
	Validate(ctx context.Context, tokenID string) (*Token, error)

	// CheckAndConsume validates the token against the supplied pair and
	// increments its usage counter. Expired and exhausted records are
	// deleted eagerly and never revive.
	CheckAndConsume(ctx context.Context, tokenID, projectID, linkID string) (*ConsumeResult, error)

	Close() error
}
