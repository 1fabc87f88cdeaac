package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aegis-iam/aegis/internal/authz"
	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
	_ "github.com/aegis-iam/aegis/testing"
)

type stubRepo struct {
	roles       map[int64]rbac.Role
	permissions map[int64]rbac.Permission
	nextID      int64

	assigned     map[int64][]int64
	granted      map[int64][]int64
	primaryRoles map[int64]*int64
	snapshots    map[int64]authz.User
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		roles:        map[int64]rbac.Role{},
		permissions:  map[int64]rbac.Permission{},
		assigned:     map[int64][]int64{},
		granted:      map[int64][]int64{},
		primaryRoles: map[int64]*int64{},
		snapshots:    map[int64]authz.User{},
	}
}

func (s *stubRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	out := make([]rbac.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRepo) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return rbac.Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (s *stubRepo) CreateRole(ctx context.Context, name, description string) (rbac.Role, error) {
	for _, r := range s.roles {
		if r.Name == name {
			return rbac.Role{}, shared.ErrDuplicate
		}
	}
	s.nextID++
	role := rbac.Role{ID: s.nextID, Name: name, Description: description}
	s.roles[role.ID] = role
	return role, nil
}

func (s *stubRepo) UpdateRole(ctx context.Context, id int64, name, description string) (rbac.Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return rbac.Role{}, shared.ErrNotFound
	}
	role.Name, role.Description = name, description
	s.roles[id] = role
	return role, nil
}

func (s *stubRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := s.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.roles, id)
	return nil
}

func (s *stubRepo) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return nil
}

func (s *stubRepo) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	out := make([]rbac.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubRepo) CreatePermission(ctx context.Context, name, action, resource string) (rbac.Permission, error) {
	s.nextID++
	perm := rbac.Permission{ID: s.nextID, Name: name, Action: action, Resource: resource}
	s.permissions[perm.ID] = perm
	return perm, nil
}

func (s *stubRepo) DeletePermission(ctx context.Context, id int64) error {
	if _, ok := s.permissions[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.permissions, id)
	return nil
}

func (s *stubRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	s.assigned[userID] = append(s.assigned[userID], roleID)
	return nil
}

func (s *stubRepo) RemoveRole(ctx context.Context, userID, roleID int64) error {
	kept := s.assigned[userID][:0]
	for _, id := range s.assigned[userID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	s.assigned[userID] = kept
	return nil
}

func (s *stubRepo) SetPrimaryRole(ctx context.Context, userID int64, roleID *int64) error {
	s.primaryRoles[userID] = roleID
	return nil
}

func (s *stubRepo) GrantPermission(ctx context.Context, userID, permissionID int64) error {
	s.granted[userID] = append(s.granted[userID], permissionID)
	return nil
}

func (s *stubRepo) RevokePermission(ctx context.Context, userID, permissionID int64) error {
	kept := s.granted[userID][:0]
	for _, id := range s.granted[userID] {
		if id != permissionID {
			kept = append(kept, id)
		}
	}
	s.granted[userID] = kept
	return nil
}

func (s *stubRepo) LoadSnapshot(ctx context.Context, userID int64) (authz.User, error) {
	snapshot, ok := s.snapshots[userID]
	if !ok {
		return authz.User{}, shared.ErrNotFound
	}
	return snapshot, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type fakeInvalidator struct {
	userIDs []int64
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, userID int64) error {
	f.userIDs = append(f.userIDs, userID)
	return nil
}

func TestCreateRoleValidation(t *testing.T) {
	svc := rbac.NewService(newStubRepo(), nil, nil)
	if _, err := svc.CreateRole(context.Background(), 1, "   ", "blank"); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}
}

func TestCreateRoleAudits(t *testing.T) {
	audit := &recordingAudit{}
	svc := rbac.NewService(newStubRepo(), audit, nil)
	role, err := svc.CreateRole(context.Background(), 1, "  editor  ", "edits things")
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if role.Name != "editor" {
		t.Fatalf("expected trimmed name, got %q", role.Name)
	}
	if len(audit.logs) != 1 || audit.logs[0].Action != "rbac.role_created" {
		t.Fatalf("expected rbac.role_created entry, got %+v", audit.logs)
	}
}

func TestCreatePermissionValidation(t *testing.T) {
	svc := rbac.NewService(newStubRepo(), nil, nil)
	ctx := context.Background()

	if _, err := svc.CreatePermission(ctx, 1, "docs.read", "", "document"); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty action, got %v", err)
	}
	if _, err := svc.CreatePermission(ctx, 1, "docs.read", "read", ""); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty resource, got %v", err)
	}
	perm, err := svc.CreatePermission(ctx, 1, "docs.read", "read", "document")
	if err != nil {
		t.Fatalf("create permission: %v", err)
	}
	if perm.Action != "read" || perm.Resource != "document" {
		t.Fatalf("unexpected permission %+v", perm)
	}
}

func TestUserMutationsInvalidateSnapshot(t *testing.T) {
	repo := newStubRepo()
	role, err := repo.CreateRole(context.Background(), "editor", "")
	if err != nil {
		t.Fatalf("seed role: %v", err)
	}
	invalidator := &fakeInvalidator{}
	svc := rbac.NewService(repo, nil, invalidator)
	ctx := context.Background()

	if err := svc.AssignRole(ctx, 1, 42, role.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	if err := svc.GrantPermission(ctx, 1, 42, 99); err != nil {
		t.Fatalf("grant permission: %v", err)
	}
	if err := svc.SetPrimaryRole(ctx, 1, 42, &role.ID); err != nil {
		t.Fatalf("set primary role: %v", err)
	}
	if err := svc.RemoveRole(ctx, 1, 42, role.ID); err != nil {
		t.Fatalf("remove role: %v", err)
	}
	if err := svc.RevokePermission(ctx, 1, 42, 99); err != nil {
		t.Fatalf("revoke permission: %v", err)
	}

	if len(invalidator.userIDs) != 5 {
		t.Fatalf("expected 5 invalidations, got %d", len(invalidator.userIDs))
	}
	for _, id := range invalidator.userIDs {
		if id != 42 {
			t.Fatalf("expected invalidation for user 42, got %d", id)
		}
	}
}

func TestSetPrimaryRoleUnknownRole(t *testing.T) {
	svc := rbac.NewService(newStubRepo(), nil, nil)
	missing := int64(404)
	if err := svc.SetPrimaryRole(context.Background(), 1, 42, &missing); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown role, got %v", err)
	}
}

func TestSetPrimaryRoleClear(t *testing.T) {
	repo := newStubRepo()
	invalidator := &fakeInvalidator{}
	svc := rbac.NewService(repo, nil, invalidator)
	if err := svc.SetPrimaryRole(context.Background(), 1, 42, nil); err != nil {
		t.Fatalf("clear primary role: %v", err)
	}
	if stored, ok := repo.primaryRoles[42]; !ok || stored != nil {
		t.Fatalf("expected primary role cleared for user 42")
	}
	if len(invalidator.userIDs) != 1 {
		t.Fatalf("expected snapshot invalidation on clear")
	}
}
