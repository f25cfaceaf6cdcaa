package project

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no project record exists for an id.
var ErrNotFound = errors.New("project not found")

// Address is the structured business address of a project.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// SEOMeta carries the optional SEO metadata attached to a project.
type SEOMeta struct {
	MetaTitle       string   `json:"meta_title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	MetaKeywords    []string `json:"meta_keywords,omitempty"`
	TargetKeywords  []string `json:"target_keywords,omitempty"`
}

// Social holds the project's social handles.
type Social struct {
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
}

// Article is the optional article sub-record used by article
// directories.
type Article struct {
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Author  string   `json:"author,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Classified is the optional classified-ad sub-record.
type Classified struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

// Snapshot is the read-only projection of a project that gets embedded
// into generated scripts. It is fetched fresh at synthesis time and is
// never cached inside a token.
type Snapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Email       string `json:"email,omitempty"`
	Company     string `json:"company,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Whatsapp    string `json:"whatsapp,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`

	Keywords []string `json:"keywords,omitempty"`
	Address  Address  `json:"address,omitzero"`

	SEO        *SEOMeta    `json:"seo,omitempty"`
	Social     *Social     `json:"social,omitempty"`
	Article    *Article    `json:"article,omitempty"`
	Classified *Classified `json:"classified,omitempty"`

	BusinessHours   string `json:"business_hours,omitempty"`
	EstablishedYear string `json:"established_year,omitempty"`
	LogoURL         string `json:"logo_url,omitempty"`
}

// Source resolves project snapshots by id.
type Source interface {
	GetSnapshot(ctx context.Context, projectID string) (*Snapshot, error)
}
