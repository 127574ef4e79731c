package rbac

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/artha-erp/artha-erp/internal/shared"
)

// Middleware wires role checks for HTTP handlers. Visibility may also be
// narrowed client-side, but every write route must pass through here.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require ensures the current user holds at least the given role.
func (m Middleware) Require(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			role, err := m.Service.EffectiveRole(r.Context(), userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require", slog.Any("error", err), slog.Int64("user_id", userID))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if !role.AtLeast(min) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireViewer gates read endpoints.
func (m Middleware) RequireViewer() func(http.Handler) http.Handler {
	return m.Require(RoleViewer)
}

// RequireAdmin gates write endpoints.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.Require(RoleAdmin)
}

// RequireSuperAdmin gates destructive and administrative endpoints.
func (m Middleware) RequireSuperAdmin() func(http.Handler) http.Handler {
	return m.Require(RoleSuperAdmin)
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
