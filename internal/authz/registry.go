package authz

import (
	"sort"
	"sync"
)

// Registry is the process-wide role → permission-set table. It is bulk-loaded
// once at startup and read concurrently by every decision; runtime
// redefinition is supported, with each role's set replaced as a whole so a
// reader never observes a mix of old and new permissions.
type Registry struct {
	mu    sync.RWMutex
	roles map[string]map[string]struct{}
	order []string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{roles: make(map[string]map[string]struct{})}
}

// Define registers or replaces the named role's permission set. Redefining a
// role replaces its set rather than merging into it.
func (r *Registry) Define(name string, perms ...string) {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.roles[name]; !exists {
		r.order = append(r.order, name)
	}
	r.roles[name] = set
}

// Replace swaps the entire table for the given roles in one step. Later
// duplicates of a role name win, matching Define's replace semantics.
func (r *Registry) Replace(roles []Role) {
	table := make(map[string]map[string]struct{}, len(roles))
	order := make([]string, 0, len(roles))
	for _, role := range roles {
		set := make(map[string]struct{}, len(role.Permissions))
		for _, p := range role.Permissions {
			set[p] = struct{}{}
		}
		if _, exists := table[role.Name]; !exists {
			order = append(order, role.Name)
		}
		table[role.Name] = set
	}
	r.mu.Lock()
	r.roles = table
	r.order = order
	r.mu.Unlock()
}

// PermissionsOf returns a sorted copy of the named role's permission set. An
// undefined role grants nothing: the result is empty, never an error, so a
// stale role name on a principal fails closed at decision time instead of
// failing the whole decision.
func (r *Registry) PermissionsOf(name string) []string {
	r.mu.RLock()
	set := r.roles[name]
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	r.mu.RUnlock()
	sort.Strings(perms)
	return perms
}

// RoleNames returns all defined role names in registration order.
func (r *Registry) RoleNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// grants reports whether the named role includes perm.
func (r *Registry) grants(name, perm string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roles[name][perm]
	return ok
}
