package authz

import "fmt"

// clauseFunc evaluates one rule clause. The boolean reports whether the
// clause matched; a non-matching clause never contributes to the outcome.
type clauseFunc func(user User, action string, resource Resource) (Decision, bool)

// clauses is the fixed, compiled-in decision table. Order is significant for
// short-circuiting and for reproducible audit traces: direct grants are tried
// first, then the superadmin bypass, then the primary-role grant.
var clauses = []clauseFunc{
	directPermissionClause,
	superadminClause,
	primaryRoleClause,
}

// Decide evaluates the rule clauses in order and returns the first match;
// if no clause matches the user is denied. Decide is a pure function over
// the supplied snapshot: it mutates nothing, retains nothing, performs no
// I/O and is safe to call from any number of goroutines concurrently. It
// never panics for missing optional data: a nil PrimaryRole, empty sets or
// an empty action simply fall through to the default deny.
func Decide(user User, action string, resource Resource) Decision {
	for _, clause := range clauses {
		if d, ok := clause(user, action, resource); ok {
			return d
		}
	}
	return Decision{
		Allowed: false,
		Clause:  ClauseNone,
		Reason:  fmt.Sprintf("no grant for %q on %q", action, resource.Name),
	}
}

// directPermissionClause matches permissions granted to the user directly.
// The resource is compared by its raw identifier, not its name.
func directPermissionClause(user User, action string, resource Resource) (Decision, bool) {
	for _, p := range user.DirectPermissions {
		if p.Action == action && p.Resource == resource.Raw {
			return Decision{
				Allowed: true,
				Clause:  ClauseDirectPermission,
				Reason:  fmt.Sprintf("direct grant %q on %q", p.Action, p.Resource),
			}, true
		}
	}
	return Decision{}, false
}

// superadminClause grants unconditionally when the membership set holds the
// reserved superadmin role. Action and resource are ignored.
func superadminClause(user User, _ string, _ Resource) (Decision, bool) {
	if user.HasRole(SuperadminRole) {
		return Decision{
			Allowed: true,
			Clause:  ClauseSuperadmin,
			Reason:  "superadmin role held",
		}, true
	}
	return Decision{}, false
}

// primaryRoleClause matches permissions carried by the user's primary role.
// The resource is compared by name here, unlike the direct-grant clause. The
// nil guard subsumes the rule set's separate null-checked variant; the only
// behavior that matters is that a roleless user falls through without error.
func primaryRoleClause(user User, action string, resource Resource) (Decision, bool) {
	if user.PrimaryRole == nil {
		return Decision{}, false
	}
	for _, p := range user.PrimaryRole.Permissions {
		if p.Action == action && p.Resource == resource.Name {
			return Decision{
				Allowed: true,
				Clause:  ClausePrimaryRole,
				Reason:  fmt.Sprintf("role %q grants %q on %q", user.PrimaryRole.Name, p.Action, p.Resource),
			}, true
		}
	}
	return Decision{}, false
}
