package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aegis-iam/aegis/internal/platform/httpx"
	"github.com/aegis-iam/aegis/internal/shared"
)

// Middleware authenticates bearer tokens and attaches the identity to the
// request context.
type Middleware struct {
	Tokens    *TokenManager
	Blacklist *Blacklist
	Logger    *slog.Logger
}

// RequireAuth rejects requests without a valid, unrevoked access token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.claimsFromRequest(w, r)
		if !ok {
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		identity := &shared.Identity{UserID: userID, Email: claims.Email, TokenID: claims.ID}
		ctx := shared.ContextWithIdentity(r.Context(), identity)
		ctx = contextWithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) claimsFromRequest(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
		return nil, false
	}
	claims, err := m.Tokens.ParseAccess(token)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
		return nil, false
	}
	revoked, err := m.Blacklist.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("blacklist lookup", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return nil, false
	}
	if revoked {
		httpx.RespondError(w, shared.ErrTokenRevoked)
		return nil, false
	}
	return claims, true
}
