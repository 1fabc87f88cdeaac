package auth_test

import (
	"testing"
	"time"

	"github.com/aegis-iam/aegis/internal/auth"
	_ "github.com/aegis-iam/aegis/testing"
)

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("access-secret", "refresh-secret", "aegis", "aegis", 15*time.Minute, 24*time.Hour)
}

func TestTokenPairRoundTrip(t *testing.T) {
	tm := newTokenManager()
	pair, err := tm.GeneratePair(42, "user@test.local")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("expected expires_in 900, got %d", pair.ExpiresIn)
	}

	claims, err := tm.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}
	if claims.Email != "user@test.local" {
		t.Fatalf("expected email claim, got %q", claims.Email)
	}
	if claims.ID == "" {
		t.Fatalf("expected a jti on the access token")
	}

	refreshClaims, err := tm.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if refreshClaims.ID == claims.ID {
		t.Fatalf("access and refresh tokens must carry distinct jtis")
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	tm := newTokenManager()
	pair, err := tm.GeneratePair(1, "user@test.local")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := tm.ParseAccess(pair.RefreshToken); err == nil {
		t.Fatalf("refresh token must not validate as access token")
	}
	if _, err := tm.ParseRefresh(pair.AccessToken); err == nil {
		t.Fatalf("access token must not validate as refresh token")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	pair, err := newTokenManager().GeneratePair(1, "user@test.local")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	other := auth.NewTokenManager("different-secret", "other-refresh", "aegis", "aegis", time.Minute, time.Hour)
	if _, err := other.ParseAccess(pair.AccessToken); err == nil {
		t.Fatalf("expected signature validation to fail")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tm := auth.NewTokenManager("access-secret", "refresh-secret", "aegis", "aegis", -time.Minute, -time.Minute)
	pair, err := tm.GeneratePair(1, "user@test.local")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := tm.ParseAccess(pair.AccessToken); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	issued, err := auth.NewTokenManager("access-secret", "refresh-secret", "other-issuer", "aegis", time.Minute, time.Hour).
		GeneratePair(1, "user@test.local")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := newTokenManager().ParseAccess(issued.AccessToken); err == nil {
		t.Fatalf("expected issuer mismatch to be rejected")
	}
}
