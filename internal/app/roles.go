package app

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/gatewise/gatewise/internal/authz"
)

// LoadRoles reads the static role declaration: a JSON object mapping role
// names to permission lists. Role names are sorted so the registry's
// registration order does not depend on map iteration.
func LoadRoles(path string) ([]authz.Role, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: read roles: %w", err)
	}
	return ParseRoles(data)
}

// ParseRoles decodes a role declaration document.
func ParseRoles(data []byte) ([]authz.Role, error) {
	var decl map[string][]string
	if err := json.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("app: parse roles: %w", err)
	}
	names := make([]string, 0, len(decl))
	for name := range decl {
		if name == "" {
			return nil, fmt.Errorf("app: parse roles: empty role name")
		}
		names = append(names, name)
	}
	sort.Strings(names)

	roles := make([]authz.Role, 0, len(names))
	for _, name := range names {
		roles = append(roles, authz.Role{Name: name, Permissions: decl[name]})
	}
	return roles, nil
}
