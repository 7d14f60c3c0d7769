package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glintql/dispatch-api/internal/authz"
	"github.com/glintql/dispatch-api/internal/models"
)

func ctxWithRoles(roles ...models.UserRole) context.Context {
	return authz.WithIdentity(context.Background(), "user-1", roles)
}

func TestAuthorizeRequiresIdentity(t *testing.T) {
	err := NewRoleAuthorizer().Authorize(context.Background(), Metadata{Name: "ds"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthorizeUnrestrictedDatasource(t *testing.T) {
	err := NewRoleAuthorizer().Authorize(ctxWithRoles(models.RoleViewer), Metadata{Name: "ds"})
	assert.NoError(t, err)
}

func TestAuthorizeAdminBypassesRestrictions(t *testing.T) {
	meta := Metadata{Name: "ds", AllowedRoles: []string{"some_team_role"}}
	err := NewRoleAuthorizer().Authorize(ctxWithRoles(models.RoleAdmin), meta)
	assert.NoError(t, err)
}

func TestAuthorizeMatchesAllowedRole(t *testing.T) {
	meta := Metadata{Name: "ds", AllowedRoles: []string{"editor"}}

	assert.NoError(t, NewRoleAuthorizer().Authorize(ctxWithRoles(models.RoleEditor), meta))
	assert.ErrorIs(t, NewRoleAuthorizer().Authorize(ctxWithRoles(models.RoleViewer), meta), ErrUnauthorized)
}

func TestMetadataPropertyKeysSorted(t *testing.T) {
	meta := Metadata{Properties: map[string]string{"c": "3", "a": "1", "b": "2"}}
	assert.Equal(t, []string{"a", "b", "c"}, meta.PropertyKeys())

	empty := Metadata{}
	assert.Empty(t, empty.PropertyKeys())
}
