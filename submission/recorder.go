package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opptym/quill/helper"
	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/storage"
)

const (
	// Fallbacks applied when the reporting page carries no title or
	// meta description. The generated script applies the same
	// defaults; they are repeated here for reports from older scripts.
	DefaultTitle       = "Untitled Page"
	DefaultDescription = "No description available"
)

// Event is one successful fill reported by a delivered script.
type Event struct {
	ID          string    `json:"id"`
	TokenID     string    `json:"token_id"`
	ProjectID   string    `json:"project_id"`
	LinkID      string    `json:"link_id"`
	DeliveryID  string    `json:"delivery_id,omitempty"`
	PageURL     string    `json:"page_url"`
	PageTitle   string    `json:"page_title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recorder persists submission events, grouped per (project, link)
// pair so the total can be reported back to the client.
type Recorder struct {
	backend storage.Backend
	logger  logger.Logger
}

func NewRecorder(backend storage.Backend, log logger.Logger) *Recorder {
	return &Recorder{
		backend: backend,
		logger:  log,
	}
}

func eventPrefix(projectID, linkID string) string {
	return "submissions/" + projectID + "/" + linkID
}

// Record stores the event and returns the total number of submissions
// recorded for the pair, including this one.
func (r *Recorder) Record(ctx context.Context, ev *Event) (int, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if ev.PageTitle == "" {
		ev.PageTitle = DefaultTitle
	}
	if ev.Description == "" {
		ev.Description = DefaultDescription
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("failed to encode submission event: %w", err)
	}

	prefix := eventPrefix(ev.ProjectID, ev.LinkID)
	if err := r.backend.Put(ctx, prefix, ev.ID, value); err != nil {
		return 0, fmt.Errorf("failed to persist submission event: %w", err)
	}

	keys, err := r.backend.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	r.logger.Info("submission recorded",
		logger.String("token_hash", helper.Get8BytesHash(ev.TokenID)),
		logger.String("project_id", ev.ProjectID),
		logger.String("link_id", ev.LinkID),
		logger.String("page_url", ev.PageURL),
		logger.Int("total", len(keys)))

	return len(keys), nil
}

// Total returns the number of submissions recorded for a pair.
func (r *Recorder) Total(ctx context.Context, projectID, linkID string) (int, error) {
	keys, err := r.backend.List(ctx, eventPrefix(projectID, linkID))
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return len(keys), nil
}
