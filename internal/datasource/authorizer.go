package datasource

import (
	"context"

	"github.com/pkg/errors"

	"github.com/glintql/dispatch-api/internal/authz"
	"github.com/glintql/dispatch-api/internal/models"
)

var ErrUnauthorized = errors.New("not authorized to access datasource")

// Authorizer decides whether the identity on the context may use a datasource.
type Authorizer interface {
	Authorize(ctx context.Context, meta Metadata) error
}

type roleAuthorizer struct{}

func NewRoleAuthorizer() Authorizer {
	return roleAuthorizer{}
}

// Authorize allows access when the datasource has no role restriction, the
// caller is an admin, or the caller holds one of the allowed roles.
func (roleAuthorizer) Authorize(ctx context.Context, meta Metadata) error {
	roles, ok := authz.RolesFromContext(ctx)
	if !ok {
		return errors.Wrapf(ErrUnauthorized, "%s: no identity on request", meta.Name)
	}
	if models.HasAtLeast(roles, models.RoleAdmin) {
		return nil
	}
	if len(meta.AllowedRoles) == 0 {
		return nil
	}
	for _, allowed := range meta.AllowedRoles {
		for _, held := range roles {
			if string(held) == allowed {
				return nil
			}
		}
	}
	return errors.Wrapf(ErrUnauthorized, "%s", meta.Name)
}
