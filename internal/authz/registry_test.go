package authz

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryPermissionsOf(t *testing.T) {
	reg := NewRegistry()
	reg.Define("admin", "delete_user", "create_user")

	assert.Equal(t, []string{"create_user", "delete_user"}, reg.PermissionsOf("admin"))
}

func TestRegistryUnknownRoleGrantsNothing(t *testing.T) {
	reg := NewRegistry()

	perms := reg.PermissionsOf("nonexistent")
	require.NotNil(t, perms)
	assert.Empty(t, perms)
}

func TestRegistryRedefineReplacesSet(t *testing.T) {
	reg := NewRegistry()
	reg.Define("admin", "x")
	reg.Define("admin", "y")

	assert.Equal(t, []string{"y"}, reg.PermissionsOf("admin"))
	assert.Equal(t, []string{"admin"}, reg.RoleNames(), "redefinition must not duplicate the name")
}

func TestRegistryRoleNamesKeepRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Define("moderator", "pin_post")
	reg.Define("admin", "delete_user")
	reg.Define("user", "view_profile")

	assert.Equal(t, []string{"moderator", "admin", "user"}, reg.RoleNames())
}

func TestRegistryReplaceSwapsWholeTable(t *testing.T) {
	reg := NewRegistry()
	reg.Define("admin", "x")
	reg.Define("legacy", "y")

	reg.Replace([]Role{
		{Name: "admin", Permissions: []string{"delete_user"}},
		{Name: "user", Permissions: []string{"view_profile"}},
	})

	assert.Equal(t, []string{"delete_user"}, reg.PermissionsOf("admin"))
	assert.Empty(t, reg.PermissionsOf("legacy"))
	assert.Equal(t, []string{"admin", "user"}, reg.RoleNames())
}

// Concurrent redefinition must never expose a role with a mix of the old and
// new permission sets: readers see either both of a generation's permissions
// or neither.
func TestRegistryConcurrentRedefineAtomicPerRole(t *testing.T) {
	reg := NewRegistry()
	reg.Define("admin", "gen0_a", "gen0_b")

	const generations = 200
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= generations; i++ {
			reg.Define("admin", fmt.Sprintf("gen%d_a", i), fmt.Sprintf("gen%d_b", i))
		}
	}()

	var mixed bool
	go func() {
		defer wg.Done()
		for i := 0; i < generations*4; i++ {
			perms := reg.PermissionsOf("admin")
			if len(perms) != 2 {
				mixed = true
				return
			}
			// Both entries must come from the same generation: "genN_a" and
			// "genN_b" share everything except the final rune.
			if perms[0][:len(perms[0])-1] != perms[1][:len(perms[1])-1] {
				mixed = true
				return
			}
		}
	}()

	wg.Wait()
	assert.False(t, mixed, "observed a role with a mixed old/new permission set")
}
