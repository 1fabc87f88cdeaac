package rbac

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aegis-iam/aegis/internal/authz"
	"github.com/aegis-iam/aegis/internal/shared"
)

// Invalidator drops cached snapshots after an RBAC mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Service orchestrates RBAC management operations. Mutations that affect a
// specific user invalidate that user's cached snapshot; role-level mutations
// rely on the snapshot TTL instead of tracking every member.
type Service struct {
	repo        RepositoryPort
	audit       shared.AuditRecorder
	invalidator Invalidator
}

// NewService constructs a Service. Audit and invalidator may be nil.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, invalidator Invalidator) *Service {
	return &Service{repo: repo, audit: audit, invalidator: invalidator}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role with its permissions.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	role, err := s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "rbac.role_created", "role", strconv.FormatInt(role.ID, 10), map[string]any{"name": role.Name})
	return role, nil
}

// UpdateRole updates role name/description.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "rbac.role_updated", "role", strconv.FormatInt(id, 10), map[string]any{"name": role.Name})
	return role, nil
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "rbac.role_deleted", "role", strconv.FormatInt(id, 10), nil)
	return nil
}

// SetRolePermissions replaces the permission set for a role.
func (s *Service) SetRolePermissions(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.SetRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.record(ctx, actorID, "rbac.role_permissions_set", "role", strconv.FormatInt(roleID, 10),
		map[string]any{"permission_ids": permissionIDs})
	return nil
}

// ListPermissions returns the permission catalogue.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreatePermission inserts a catalogue permission. The action/resource pair
// must satisfy the entity-model invariants before it can ever reach the
// evaluator.
func (s *Service) CreatePermission(ctx context.Context, actorID int64, name, action, resource string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name required", shared.ErrValidation)
	}
	if _, err := authz.NewPermission(strings.TrimSpace(action), strings.TrimSpace(resource)); err != nil {
		return Permission{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	perm, err := s.repo.CreatePermission(ctx, name, strings.TrimSpace(action), strings.TrimSpace(resource))
	if err != nil {
		return Permission{}, err
	}
	s.record(ctx, actorID, "rbac.permission_created", "permission", strconv.FormatInt(perm.ID, 10),
		map[string]any{"action": perm.Action, "resource": perm.Resource})
	return perm, nil
}

// DeletePermission removes a catalogue permission.
func (s *Service) DeletePermission(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeletePermission(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "rbac.permission_deleted", "permission", strconv.FormatInt(id, 10), nil)
	return nil
}

// AssignRole adds a role to the user's membership set.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, actorID, "rbac.role_assigned", "user", strconv.FormatInt(userID, 10),
		map[string]any{"role_id": roleID})
	s.invalidate(ctx, userID)
	return nil
}

// RemoveRole removes a role from the user's membership set.
func (s *Service) RemoveRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, actorID, "rbac.role_removed", "user", strconv.FormatInt(userID, 10),
		map[string]any{"role_id": roleID})
	s.invalidate(ctx, userID)
	return nil
}

// SetPrimaryRole sets or clears (nil) the user's primary role.
func (s *Service) SetPrimaryRole(ctx context.Context, actorID, userID int64, roleID *int64) error {
	if roleID != nil {
		if _, err := s.repo.GetRole(ctx, *roleID); err != nil {
			return err
		}
	}
	if err := s.repo.SetPrimaryRole(ctx, userID, roleID); err != nil {
		return err
	}
	meta := map[string]any{}
	if roleID != nil {
		meta["role_id"] = *roleID
	}
	s.record(ctx, actorID, "rbac.primary_role_set", "user", strconv.FormatInt(userID, 10), meta)
	s.invalidate(ctx, userID)
	return nil
}

// GrantPermission grants a direct permission to the user.
func (s *Service) GrantPermission(ctx context.Context, actorID, userID, permissionID int64) error {
	if err := s.repo.GrantPermission(ctx, userID, permissionID); err != nil {
		return err
	}
	s.record(ctx, actorID, "rbac.permission_granted", "user", strconv.FormatInt(userID, 10),
		map[string]any{"permission_id": permissionID})
	s.invalidate(ctx, userID)
	return nil
}

// RevokePermission revokes a direct permission from the user.
func (s *Service) RevokePermission(ctx context.Context, actorID, userID, permissionID int64) error {
	if err := s.repo.RevokePermission(ctx, userID, permissionID); err != nil {
		return err
	}
	s.record(ctx, actorID, "rbac.permission_revoked", "user", strconv.FormatInt(userID, 10),
		map[string]any{"permission_id": permissionID})
	s.invalidate(ctx, userID)
	return nil
}

// Snapshot exposes the uncached snapshot for inspection endpoints.
func (s *Service) Snapshot(ctx context.Context, userID int64) (authz.User, error) {
	return s.repo.LoadSnapshot(ctx, userID)
}

func (s *Service) record(ctx context.Context, actorID int64, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	})
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.invalidator == nil {
		return
	}
	_ = s.invalidator.Invalidate(ctx, userID)
}
