package authz

// Clause identifies which rule clause produced a decision, for audit traces.
type Clause int

const (
	// ClauseNone means no clause matched and the default deny applied.
	ClauseNone Clause = iota
	// ClauseDirectPermission matched a permission granted to the user directly.
	ClauseDirectPermission
	// ClauseSuperadmin matched the reserved superadmin role in the role set.
	ClauseSuperadmin
	// ClausePrimaryRole matched a permission carried by the user's primary role.
	ClausePrimaryRole
)

// String returns a stable identifier for logs and audit records.
func (c Clause) String() string {
	switch c {
	case ClauseDirectPermission:
		return "direct_permission"
	case ClauseSuperadmin:
		return "superadmin"
	case ClausePrimaryRole:
		return "primary_role"
	default:
		return "none"
	}
}

// Decision is the outcome of one authorization check. There is no third
// outcome: absence of a grant is a deny, never an error.
type Decision struct {
	Allowed bool
	Clause  Clause
	Reason  string
}
