package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-iam/aegis/internal/authz"
	"github.com/aegis-iam/aegis/internal/observability"
	"github.com/aegis-iam/aegis/internal/platform/httpx"
	"github.com/aegis-iam/aegis/internal/shared"
)

// SnapshotResolver produces the authorization snapshot for a user.
type SnapshotResolver interface {
	Resolve(ctx context.Context, userID int64) (authz.User, error)
}

// Middleware wires authorization enforcement for HTTP handlers.
type Middleware struct {
	Resolver SnapshotResolver
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Require ensures the current user is allowed to perform action on resource.
// The decision is delegated entirely to authz.Decide over a resolved
// snapshot; this layer only translates deny into 403.
func (m Middleware) Require(action, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.authorize(w, r, action, resource) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireSelfOr allows a user through when the route's urlParam names their
// own ID; otherwise the action/resource check applies as in Require.
func (m Middleware) RequireSelfOr(action, resource, urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity != nil {
				if target, err := strconv.ParseInt(chi.URLParam(r, urlParam), 10, 64); err == nil && target == identity.UserID {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.authorize(w, r, action, resource) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (m Middleware) authorize(w http.ResponseWriter, r *http.Request, action, resource string) bool {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return false
	}

	snapshot, err := m.Resolver.Resolve(r.Context(), identity.UserID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("resolve authorization snapshot",
				slog.Int64("user_id", identity.UserID), slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return false
	}

	decision := authz.Decide(snapshot, action, authz.NewResource(resource))
	m.Metrics.ObserveDecision(decision.Allowed, decision.Clause.String())
	if !decision.Allowed {
		if m.Logger != nil {
			m.Logger.Info("authorization denied",
				slog.Int64("user_id", identity.UserID),
				slog.String("action", action),
				slog.String("resource", resource),
				slog.String("reason", decision.Reason))
		}
		httpx.Problem(w, http.StatusForbidden, "Forbidden",
			"not authorized to "+action+" "+resource)
		return false
	}
	if m.Logger != nil {
		m.Logger.Debug("authorization granted",
			slog.Int64("user_id", identity.UserID),
			slog.String("action", action),
			slog.String("resource", resource),
			slog.String("clause", decision.Clause.String()))
	}
	return true
}
