package handlers

import (
	"fmt"
	"strings"

	"github.com/cpp-cyber/dirauth/internal/api/auth"
)

// =================================================
// API Request Structures
// =================================================

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// =================================================
// Handler Types
// =================================================

// AuthHandler serves login, logout, session and group-gated resources
type AuthHandler struct {
	authService auth.Service
	resources   []Resource
}

// Resource is a named endpoint gated on membership in RequiredGroup
type Resource struct {
	Name          string `json:"name"`
	RequiredGroup string `json:"required_group"`
}

// Path is the API path a resource is served under
func (r Resource) Path() string {
	return "/api/v1/resources/" + r.Name
}

// ParseResources parses a comma separated list of name:group pairs, e.g.
// "dashboard-a:GroupA,dashboard-b:GroupB". Order is kept.
func ParseResources(value string) ([]Resource, error) {
	var resources []Resource
	seen := make(map[string]bool)

	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, group, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		group = strings.TrimSpace(group)
		if !ok || name == "" || group == "" {
			return nil, fmt.Errorf("invalid resource %q: expected name:group", pair)
		}
		if strings.Contains(name, "/") {
			return nil, fmt.Errorf("invalid resource name %q: must not contain '/'", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate resource %q", name)
		}
		seen[name] = true

		resources = append(resources, Resource{Name: name, RequiredGroup: group})
	}

	if len(resources) == 0 {
		return nil, fmt.Errorf("no resources configured")
	}
	return resources, nil
}
