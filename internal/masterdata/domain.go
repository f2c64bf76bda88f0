// Package masterdata manages the lookup entities a lead refers to: business
// categories, cities and lead sources.
package masterdata

import (
	"context"
	"time"
)

// Kind selects one lookup table.
type Kind string

const (
	KindCategory Kind = "category"
	KindCity     Kind = "city"
	KindSource   Kind = "source"
)

// Kinds lists every lookup kind.
func Kinds() []Kind {
	return []Kind{KindCategory, KindCity, KindSource}
}

// ParseKind maps a route segment (categories, cities, sources) or a singular name to a Kind.
func ParseKind(raw string) (Kind, bool) {
	switch raw {
	case "category", "categories":
		return KindCategory, true
	case "city", "cities":
		return KindCity, true
	case "source", "sources":
		return KindSource, true
	}
	return "", false
}

func (k Kind) table() string {
	switch k {
	case KindCategory:
		return "categories"
	case KindCity:
		return "cities"
	case KindSource:
		return "sources"
	}
	return ""
}

// Lookup is one category, city or source row.
type Lookup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LookupRequest is the create/update payload.
type LookupRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	IsActive *bool  `json:"is_active"`
}

// Repository persists lookups.
type Repository interface {
	List(ctx context.Context, kind Kind) ([]Lookup, error)
	Get(ctx context.Context, kind Kind, id int64) (Lookup, error)
	Create(ctx context.Context, kind Kind, l Lookup) (Lookup, error)
	Update(ctx context.Context, kind Kind, l Lookup) (Lookup, error)
	Delete(ctx context.Context, kind Kind, id int64) error
}
