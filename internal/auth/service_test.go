package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-iam/aegis/internal/auth"
	"github.com/aegis-iam/aegis/internal/shared"
	_ "github.com/aegis-iam/aegis/testing"
)

type stubRepo struct {
	user            *auth.User
	updatedPassword string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if s.user == nil || s.user.ID != id {
		return shared.ErrNotFound
	}
	s.updatedPassword = passwordHash
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type recordingNotifier struct {
	passwordChanged []string
}

func (r *recordingNotifier) PasswordChanged(ctx context.Context, email string) error {
	r.passwordChanged = append(r.passwordChanged, email)
	return nil
}

func newAuthService(t *testing.T, repo auth.Repository, audit shared.AuditRecorder, notifier auth.Notifier) *auth.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	blacklist := auth.NewBlacklist(client)
	tokens := newTokenManager()
	return auth.NewService(repo, tokens, blacklist, audit, notifier)
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 7, Email: "user@test.local", PasswordHash: string(hash), IsActive: true}
}

func TestLoginSuccess(t *testing.T) {
	audit := &recordingAudit{}
	svc := newAuthService(t, &stubRepo{user: activeUser(t, "correct horse")}, audit, nil)

	pair, user, err := svc.Login(context.Background(), "user@test.local", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("expected user 7, got %d", user.ID)
	}
	if pair.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if len(audit.logs) != 1 || audit.logs[0].Action != "auth.login" {
		t.Fatalf("expected one auth.login audit entry, got %+v", audit.logs)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(t, &stubRepo{user: activeUser(t, "correct horse")}, nil, nil)
	if _, _, err := svc.Login(context.Background(), "user@test.local", "wrong"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newAuthService(t, &stubRepo{}, nil, nil)
	if _, _, err := svc.Login(context.Background(), "ghost@test.local", "anything"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t, "correct horse")
	user.IsActive = false
	svc := newAuthService(t, &stubRepo{user: user}, nil, nil)
	if _, _, err := svc.Login(context.Background(), "user@test.local", "correct horse"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newAuthService(t, &stubRepo{user: activeUser(t, "correct horse")}, nil, nil)
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, "user@test.local", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.AccessToken == "" || next.RefreshToken == "" {
		t.Fatalf("expected a fresh pair")
	}

	// The presented refresh token is revoked on rotation.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, shared.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked on replay, got %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc := newAuthService(t, &stubRepo{user: activeUser(t, "correct horse")}, nil, nil)
	if _, err := svc.Refresh(context.Background(), "not-a-token"); !errors.Is(err, shared.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	blacklist := auth.NewBlacklist(client)
	tokens := newTokenManager()
	svc := auth.NewService(&stubRepo{user: activeUser(t, "correct horse")}, tokens, blacklist, nil, nil)
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, "user@test.local", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := tokens.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}

	revoked, err := blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected access token to be blacklisted after logout")
	}
}

func TestChangePassword(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "old password")}
	notifier := &recordingNotifier{}
	svc := newAuthService(t, repo, nil, notifier)
	ctx := context.Background()

	if err := svc.ChangePassword(ctx, 7, "wrong", "new password"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, 7, "old password", "new password"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if repo.updatedPassword == "" {
		t.Fatalf("expected a new hash to be stored")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(repo.updatedPassword), []byte("new password")); err != nil {
		t.Fatalf("stored hash does not match new password: %v", err)
	}
	if len(notifier.passwordChanged) != 1 || notifier.passwordChanged[0] != "user@test.local" {
		t.Fatalf("expected password-changed mail for user, got %v", notifier.passwordChanged)
	}
}

func TestBlacklistSkipsExpiredTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	blacklist := auth.NewBlacklist(client)
	ctx := context.Background()

	if err := blacklist.Revoke(ctx, "expired-jti", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := blacklist.IsRevoked(ctx, "expired-jti")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatalf("tokens past expiry must not be stored")
	}
}
