package rbac

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/leaddesk/leaddesk/internal/shared"
)

// ErrUnknownDesignation indicates a profile carrying a designation with no grant.
var ErrUnknownDesignation = errors.New("rbac: unknown designation")

// Service resolves permissions for designations.
type Service struct {
	grants map[shared.Designation][]string
}

// NewService constructs a Service with the default grant table.
func NewService() *Service {
	return NewServiceWithGrants(defaultGrants)
}

// NewServiceWithGrants constructs a Service from an explicit table.
func NewServiceWithGrants(grants map[shared.Designation][]string) *Service {
	normalized := make(map[shared.Designation][]string, len(grants))
	for d, perms := range grants {
		normalized[d] = normalizePermissions(perms)
	}
	return &Service{grants: normalized}
}

// EffectivePermissions returns the permissions held by profile.
func (s *Service) EffectivePermissions(_ context.Context, profile shared.Profile) ([]string, error) {
	perms, ok := s.grants[profile.Designation]
	if !ok {
		return nil, ErrUnknownDesignation
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out, nil
}

// Can reports whether profile holds perm.
func (s *Service) Can(ctx context.Context, profile shared.Profile, perm string) bool {
	granted, err := s.EffectivePermissions(ctx, profile)
	if err != nil {
		return false
	}
	return hasAnyPermission(granted, []string{strings.ToLower(perm)})
}

// ListGrants returns the grant table ordered by designation.
func (s *Service) ListGrants() []Grant {
	out := make([]Grant, 0, len(s.grants))
	for _, d := range shared.Designations() {
		if perms, ok := s.grants[d]; ok {
			out = append(out, Grant{Designation: d, Permissions: append([]string{}, perms...)})
		}
	}
	return out
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	sort.Strings(normalized)
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
