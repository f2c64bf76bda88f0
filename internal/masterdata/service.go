package masterdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leaddesk/leaddesk/internal/platform/cache"
	"github.com/leaddesk/leaddesk/internal/shared"
)

// Service exposes cached lookup reads and validated writes.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewService creates a new master data service. cache may be nil.
func NewService(repo Repository, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, logger: logger}
}

// NormalizeName collapses whitespace and title-cases a lookup name.
func NormalizeName(raw string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(raw), " "))
}

// List returns every lookup of kind, served from cache when possible.
func (s *Service) List(ctx context.Context, kind Kind) ([]Lookup, error) {
	if kind.table() == "" {
		return nil, shared.ErrNotFound
	}
	key, err := s.cache.BuildKey(ctx, string(kind))
	if err != nil {
		s.logger.Warn("lookup cache key", slog.Any("error", err))
		return s.repo.List(ctx, kind)
	}
	var out []Lookup
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx, kind)
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

// Names returns id to name for kind.
func (s *Service) Names(ctx context.Context, kind Kind) (map[int64]string, error) {
	items, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(items))
	for _, item := range items {
		names[item.ID] = item.Name
	}
	return names, nil
}

// Exists reports whether an active lookup with id exists.
func (s *Service) Exists(ctx context.Context, kind Kind, id int64) (bool, error) {
	items, err := s.List(ctx, kind)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.ID == id {
			return item.IsActive, nil
		}
	}
	return false, nil
}

// Get returns one lookup.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (Lookup, error) {
	if id <= 0 {
		return Lookup{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, kind, id)
}

// Create inserts a lookup.
func (s *Service) Create(ctx context.Context, kind Kind, req LookupRequest) (Lookup, error) {
	l := Lookup{Name: NormalizeName(req.Name), IsActive: true}
	if req.IsActive != nil {
		l.IsActive = *req.IsActive
	}
	if l.Name == "" {
		return Lookup{}, shared.FieldErrors{"name": "This field is required"}
	}
	created, err := s.repo.Create(ctx, kind, l)
	if err != nil {
		return Lookup{}, s.mapError(kind, err)
	}
	s.invalidate(ctx)
	return created, nil
}

// Update renames or toggles a lookup.
func (s *Service) Update(ctx context.Context, kind Kind, id int64, req LookupRequest) (Lookup, error) {
	existing, err := s.Get(ctx, kind, id)
	if err != nil {
		return Lookup{}, err
	}
	existing.Name = NormalizeName(req.Name)
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if existing.Name == "" {
		return Lookup{}, shared.FieldErrors{"name": "This field is required"}
	}
	updated, err := s.repo.Update(ctx, kind, existing)
	if err != nil {
		return Lookup{}, s.mapError(kind, err)
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a lookup that no lead references.
func (s *Service) Delete(ctx context.Context, kind Kind, id int64) error {
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return s.mapError(kind, err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) mapError(kind Kind, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateName):
		return shared.FieldErrors{"name": fmt.Sprintf("A %s with this name already exists", kind)}
	case errors.Is(err, ErrInUse):
		return fmt.Errorf("%w: %s is used by existing leads", shared.ErrConflict, kind)
	}
	return err
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("lookup cache bump", slog.Any("error", err))
	}
}
