package rbac

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"assistant-console/internal/auth"
)

// Allowed reports whether role may pass a guard admitting the given roles.
func Allowed(role string, allowed []string) bool {
	if role == "" {
		return false
	}
	return IsSuperAdmin(role) || slices.Contains(allowed, role)
}

// RequireAnyRole guards a route to the given roles. super_admin always passes.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowed = slices.Clone(allowed)
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok || id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !Allowed(id.Role, allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// Scope returns the user id that assistant ownership is filtered by.
// super_admin gets an empty scope and may act on every user's assistants.
func Scope(ctx context.Context) (string, error) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		return "", auth.ErrNoIdentity
	}
	if IsSuperAdmin(id.Role) {
		return "", nil
	}
	if id.UserID == "" {
		return "", auth.ErrNoIdentity
	}
	return id.UserID, nil
}
