package auth

import (
	"testing"

	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	anon := Identity{}
	owner := Identity{IsAuth: true, UserID: "owner", Role: "USER"}
	other := Identity{IsAuth: true, UserID: "other", Role: "USER"}
	admin := Identity{IsAuth: true, UserID: "root", Role: "Admin"}

	cases := []struct {
		name   string
		actor  Identity
		res    Resource
		action Action
		kind   apperr.Kind // пусто - доступ разрешен
	}{
		{"Anonymous reads public", anon, Resource{OwnerID: "owner"}, ActionRead, ""},
		{"Anonymous reads private", anon, Resource{OwnerID: "owner", Private: true}, ActionRead, apperr.KindUnauthenticated},
		{"Authenticated reads private", other, Resource{OwnerID: "owner", Private: true}, ActionRead, ""},
		{"Anonymous lists", anon, Resource{}, ActionList, apperr.KindUnauthorized},
		{"Authenticated non-admin lists", other, Resource{}, ActionList, ""},
		{"Owner modifies", owner, Resource{OwnerID: "owner"}, ActionModify, ""},
		{"Admin cannot modify foreign", admin, Resource{OwnerID: "owner"}, ActionModify, apperr.KindUnauthorized},
		{"Anonymous modifies", anon, Resource{OwnerID: "owner"}, ActionModify, apperr.KindUnauthenticated},
		{"Other deletes", other, Resource{OwnerID: "owner"}, ActionDelete, apperr.KindUnauthorized},
		{"Owner deletes", owner, Resource{OwnerID: "owner"}, ActionDelete, ""},
		{"Admin deletes", admin, Resource{OwnerID: "owner"}, ActionDelete, ""},
		{"User manages roles", owner, Resource{}, ActionManageRoles, apperr.KindUnauthorized},
		{"Admin manages roles", admin, Resource{}, ActionManageRoles, ""},
		{"Unknown action", admin, Resource{}, Action("publish"), apperr.KindUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, tc.res, tc.action)
			if tc.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}

	t.Run("Custom deny message", func(t *testing.T) {
		err := Authorize(other, Resource{OwnerID: "owner", DenyMessage: "You do NOT have access to update this post!"}, ActionModify)
		assert.EqualError(t, err, "You do NOT have access to update this post!")
	})
}

func TestRequireAuth(t *testing.T) {
	assert.NoError(t, RequireAuth(Identity{IsAuth: true}))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(RequireAuth(Identity{})))
}
