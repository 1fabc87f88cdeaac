// Package authz implements the authorization decision engine: an in-memory
// entity model for users, roles and permissions, and a pure evaluator that
// decides whether a user may perform an action on a resource.
//
// The evaluator holds no state and performs no I/O. Callers resolve the full
// User snapshot (direct permissions, role set, optional primary role) before
// invoking Decide and own any caching or persistence of those snapshots.
package authz

import "errors"

// SuperadminRole is the reserved role name that grants unconditional access.
// The match is exact and case-sensitive, and only role-set membership counts;
// a primary role named "superadmin" does not trigger the bypass on its own.
const SuperadminRole = "superadmin"

var (
	// ErrEmptyAction indicates a permission was built without an action.
	ErrEmptyAction = errors.New("authz: permission action required")
	// ErrEmptyResource indicates a permission was built without a resource.
	ErrEmptyResource = errors.New("authz: permission resource required")
	// ErrEmptyRoleName indicates a role was built without a name.
	ErrEmptyRoleName = errors.New("authz: role name required")
)

// Permission is one grantable capability: an action on a resource. Two
// permissions are equal iff both fields match exactly; there are no wildcards
// and no hierarchy. Immutable once constructed.
type Permission struct {
	Action   string
	Resource string
}

// NewPermission builds a Permission, rejecting empty fields. Malformed
// permissions are a construction-time contract violation; the evaluator
// itself never validates.
func NewPermission(action, resource string) (Permission, error) {
	if action == "" {
		return Permission{}, ErrEmptyAction
	}
	if resource == "" {
		return Permission{}, ErrEmptyResource
	}
	return Permission{Action: action, Resource: resource}, nil
}

// Role is a named bundle of permissions.
type Role struct {
	Name        string
	Permissions []Permission
}

// NewRole builds a Role with the given permissions.
func NewRole(name string, permissions ...Permission) (Role, error) {
	if name == "" {
		return Role{}, ErrEmptyRoleName
	}
	return Role{Name: name, Permissions: permissions}, nil
}

// User is the authorization snapshot for one actor. It carries two
// independent grant channels that are never unified:
//
//   - Roles is the membership set consulted by the superadmin check.
//   - PrimaryRole is a single optional role whose permissions are consulted
//     by the role-derived grant clause. Nil is a normal state for users
//     without an assigned role and must never cause an error.
//
// DirectPermissions are grants attached to the user directly, bypassing
// roles entirely.
type User struct {
	ID                int64
	DirectPermissions []Permission
	Roles             []Role
	PrimaryRole       *Role
}

// HasRole reports whether the membership set contains a role with the given
// name. Comparison is exact and case-sensitive.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Resource identifies the target of an action. Raw is the identifier matched
// by direct grants; Name is the attribute matched by role-derived grants. The
// split mirrors how the rule set compares them and collapsing it would
// silently change authorization outcomes for callers that populate the two
// fields differently.
type Resource struct {
	Raw  string
	Name string
}

// NewResource builds a Resource whose Raw and Name are the same identifier,
// which is how every current caller constructs one.
func NewResource(s string) Resource {
	return Resource{Raw: s, Name: s}
}
