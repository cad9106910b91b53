// Package rbac gates routes by role and answers per-resource access questions.
package rbac

import (
	"encoding/json"
	"net/http"

	"spensagi/portal/internal/metrics"
	"spensagi/portal/internal/model"
	"spensagi/portal/internal/session"
)

const InsufficientPermissions = "Unauthorized access. Insufficient permissions."

// Gate holds the login path used when a request arrives without an identity.
type Gate struct {
	loginPath string
}

func NewGate(loginPath string) *Gate {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Gate{loginPath: loginPath}
}

// Require lets the request through only when the attached identity has one of roles.
// It must run after the session middleware.
func (g *Gate) Require(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := session.IdentityFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, g.loginPath, http.StatusFound)
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				metrics.AccessDenied.WithLabelValues("role").Inc()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": InsufficientPermissions})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) RequireStudent() func(http.Handler) http.Handler {
	return g.Require(model.RoleStudent)
}

func (g *Gate) RequireTeacher() func(http.Handler) http.Handler {
	return g.Require(model.RoleTeacher)
}

func (g *Gate) RequireParent() func(http.Handler) http.Handler {
	return g.Require(model.RoleParent)
}

func (g *Gate) RequireAdmin() func(http.Handler) http.Handler {
	return g.Require(model.RoleAdmin)
}

func (g *Gate) RequireTeacherOrAdmin() func(http.Handler) http.Handler {
	return g.Require(model.RoleTeacher, model.RoleAdmin)
}

func (g *Gate) RequireParentOrAdmin() func(http.Handler) http.Handler {
	return g.Require(model.RoleParent, model.RoleAdmin)
}
