package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-iam/aegis/internal/shared"
)

// Notifier delivers account-related mail out of band. Nil is allowed; mail
// delivery must never block or fail an auth flow.
type Notifier interface {
	PasswordChanged(ctx context.Context, email string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	tokens    *TokenManager
	blacklist *Blacklist
	audit     shared.AuditRecorder
	notifier  Notifier
}

// NewService constructs a new Service. Audit and notifier may be nil.
func NewService(repo Repository, tokens *TokenManager, blacklist *Blacklist, audit shared.AuditRecorder, notifier Notifier) *Service {
	return &Service{repo: repo, tokens: tokens, blacklist: blacklist, audit: audit, notifier: notifier}
}

// Login validates email/password credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, *User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return TokenPair{}, nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, nil, shared.ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.Email)
	if err != nil {
		return TokenPair{}, nil, err
	}
	s.record(ctx, user.ID, "auth.login", strconv.FormatInt(user.ID, 10), nil)
	return pair, user, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, shared.ErrUnauthorized
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if revoked {
		return TokenPair{}, shared.ErrTokenRevoked
	}

	userID, err := claims.UserID()
	if err != nil {
		return TokenPair{}, shared.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		return TokenPair{}, shared.ErrUnauthorized
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.Email)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout blacklists the presented access token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return errors.New("auth: claims required for logout")
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	if userID, err := claims.UserID(); err == nil {
		s.record(ctx, userID, "auth.logout", strconv.FormatInt(userID, 10), nil)
	}
	return nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.record(ctx, userID, "auth.password_changed", strconv.FormatInt(userID, 10), nil)
	if s.notifier != nil {
		// Best effort; the password is already changed.
		_ = s.notifier.PasswordChanged(ctx, user.Email)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: entityID,
		Meta:     meta,
	})
}
