package shared

// Core action identifiers used by the platform's own endpoints.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionAssign = "assign"
)

// Core resource identifiers.
const (
	ResourceUsers       = "users"
	ResourceRoles       = "roles"
	ResourcePermissions = "permissions"
	ResourceDocuments   = "documents"
)

// Grant pairs one action with one resource.
type Grant struct {
	Action   string
	Resource string
}

// CoreGrants lists every capability the platform's own endpoints check,
// used by the seed script to provision the permission catalogue.
func CoreGrants() []Grant {
	actions := []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionAssign}
	resources := []string{ResourceUsers, ResourceRoles, ResourcePermissions, ResourceDocuments}
	grants := make([]Grant, 0, len(actions)*len(resources))
	for _, res := range resources {
		for _, act := range actions {
			grants = append(grants, Grant{Action: act, Resource: res})
		}
	}
	return grants
}
