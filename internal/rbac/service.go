package rbac

import (
	"sort"
	"strings"
)

// Service resolves role permissions from the static catalog.
type Service struct {
	roles map[string]Role
}

// NewService constructs a Service over the built-in roles.
func NewService() *Service {
	roles := make(map[string]Role, len(catalog))
	for _, role := range catalog {
		roles[role.Name] = role
	}
	return &Service{roles: roles}
}

// ListRoles returns roles sorted by name.
func (s *Service) ListRoles() []Role {
	out := make([]Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidRole reports whether name is a known role.
func (s *Service) ValidRole(name string) bool {
	_, ok := s.roles[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// IsSuperUser reports whether the role bypasses permission checks.
func (s *Service) IsSuperUser(role string) bool {
	r, ok := s.roles[strings.ToLower(strings.TrimSpace(role))]
	return ok && r.SuperUser
}

// EffectivePermissions merges the role's permissions with any extra grants.
// Unknown roles grant nothing beyond the extras.
func (s *Service) EffectivePermissions(role string, extra ...string) []string {
	set := make(map[string]struct{})
	if r, ok := s.roles[strings.ToLower(strings.TrimSpace(role))]; ok {
		for _, p := range r.Permissions {
			set[p] = struct{}{}
		}
	}
	for _, p := range normalizePermissions(extra) {
		set[p] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
