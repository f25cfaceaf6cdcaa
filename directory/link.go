package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no directory link exists for an id.
var ErrNotFound = errors.New("directory link not found")

// FieldDescriptor declares a form field the directory's submission page
// is known to expose. Declared fields are filled by exact name match
// before any heuristic matching runs.
type FieldDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Link is a submission directory entry: the page the bookmarklet is
// meant to run on, plus its declared requirement set.
type Link struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category,omitempty"`

	// Fields is the ordered requirement set. May be empty, in which
	// case filling relies entirely on heuristics.
	Fields []FieldDescriptor `json:"fields,omitempty"`
}

// Source resolves directory links by id.
type Source interface {
	GetLink(ctx context.Context, linkID string) (*Link, error)
}
