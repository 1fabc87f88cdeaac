package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-iam/aegis/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (User, error)
	UpdateUser(ctx context.Context, id int64, firstName, lastName, bio string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SoftDeleteUser(ctx context.Context, id int64) error
}

// WelcomeNotifier delivers the welcome mail out of band. Nil is allowed.
type WelcomeNotifier interface {
	Welcome(ctx context.Context, email, firstName string) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	audit    shared.AuditRecorder
	notifier WelcomeNotifier
}

// NewService builds a Service instance. Audit and notifier may be nil.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, notifier WelcomeNotifier) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier}
}

// ListUsers returns one page of users with pagination metadata.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	users, total, err := s.repo.ListUsers(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(page, perPage, total), nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser registers a new account and queues the welcome mail.
func (s *Service) CreateUser(ctx context.Context, actorID int64, email, password, firstName, lastName string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email required", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, email, string(hash), strings.TrimSpace(firstName), strings.TrimSpace(lastName))
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "users.created", user.ID, map[string]any{"email": user.Email})
	if s.notifier != nil {
		// Best effort; account creation already succeeded.
		_ = s.notifier.Welcome(ctx, user.Email, user.FirstName)
	}
	return user, nil
}

// UpdateUser updates profile fields.
func (s *Service) UpdateUser(ctx context.Context, actorID, id int64, firstName, lastName, bio string) (User, error) {
	user, err := s.repo.UpdateUser(ctx, id, strings.TrimSpace(firstName), strings.TrimSpace(lastName), strings.TrimSpace(bio))
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "users.updated", id, nil)
	return user, nil
}

// SetActive toggles the account's active flag.
func (s *Service) SetActive(ctx context.Context, actorID, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.record(ctx, actorID, "users.active_set", id, map[string]any{"active": active})
	return nil
}

// DeleteUser soft-deletes the account.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int64) error {
	if err := s.repo.SoftDeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "users.deleted", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
}
