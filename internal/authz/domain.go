package authz

// Role is a named bundle of permissions defined centrally in the Registry.
type Role struct {
	Name        string
	Permissions []string
}

// User is the resolved principal for one authenticated caller: identity plus
// the roles and direct permission grants attached to it. A User is a value
// built fresh by a TokenProvider on every authentication; it never aliases
// registry storage.
type User struct {
	ID          string
	Username    string
	Roles       []string
	Permissions []string
}

// HasDirectPermission reports whether perm was granted to the user outside
// of any role.
func (u User) HasDirectPermission(perm string) bool {
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
