package authz

import "sort"

// Authorizer answers allow/deny questions for a principal against the role
// registry. Its operations are pure: no I/O, no retained state beyond the
// registry reference, same verdict for the same principal and registry
// contents.
type Authorizer struct {
	registry *Registry
}

// NewAuthorizer constructs an Authorizer over the given registry.
func NewAuthorizer(registry *Registry) *Authorizer {
	return &Authorizer{registry: registry}
}

// HasRole reports whether the role name appears on the principal. This is a
// pure membership check; it does not expand the role through the registry.
func (a *Authorizer) HasRole(u User, role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal holds perm, either as a direct
// grant or through one of its roles. Direct grants are checked first, then
// roles in the order they appear on the principal, short-circuiting on the
// first match.
func (a *Authorizer) HasPermission(u User, perm string) bool {
	if u.HasDirectPermission(perm) {
		return true
	}
	for _, role := range u.Roles {
		if a.registry.grants(role, perm) {
			return true
		}
	}
	return false
}

// EffectivePermissions returns the sorted union of the principal's direct
// grants and the permissions of every role it holds, as the registry defines
// them right now. The union is computed per call, never cached, so registry
// redefinition is observed by the next decision.
func (a *Authorizer) EffectivePermissions(u User) []string {
	set := make(map[string]struct{}, len(u.Permissions))
	for _, p := range u.Permissions {
		set[p] = struct{}{}
	}
	for _, role := range u.Roles {
		for _, p := range a.registry.PermissionsOf(role) {
			set[p] = struct{}{}
		}
	}
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}
