package authz

import (
	"context"
	"net/http"

	"github.com/glintql/dispatch-api/internal/models"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userRolesKey contextKey = "user_roles"
)

// WithIdentity stores user and role information on the context.
func WithIdentity(ctx context.Context, userID string, roles []models.UserRole) context.Context {
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))
	ctx = context.WithValue(ctx, userRolesKey, normalized)
	return ctx
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

func RolesFromContext(ctx context.Context) ([]models.UserRole, bool) {
	roles, ok := ctx.Value(userRolesKey).([]models.UserRole)
	if !ok || !models.IsValidRoleList(roles) {
		return nil, false
	}
	return roles, true
}

func UserIDFromRequest(r *http.Request) (string, bool) {
	return UserIDFromContext(r.Context())
}

func RolesFromRequest(r *http.Request) ([]models.UserRole, bool) {
	return RolesFromContext(r.Context())
}
