package access

import (
	"testing"

	"food-ordering-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v uint) *uint { return &v }

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		caller    Caller
		requested *uint
		want      Scope
		wantErr   error
	}{
		{"superadmin without request sees all", Caller{Role: models.RoleSuperAdmin}, nil, Unrestricted(), nil},
		{"superadmin picks a tenant", Caller{Role: models.RoleSuperAdmin}, ptr(7), Tenant(7), nil},
		{"superadmin zero request sees all", Caller{Role: models.RoleSuperAdmin}, ptr(0), Unrestricted(), nil},
		{"admin gets own binding", Caller{Role: models.RoleAdmin, RestaurantID: ptr(1)}, nil, Tenant(1), nil},
		{"admin request for another tenant is overridden", Caller{Role: models.RoleAdmin, RestaurantID: ptr(1)}, ptr(2), Tenant(1), nil},
		{"staff request for another tenant is overridden", Caller{Role: models.RoleStaff, RestaurantID: ptr(3)}, ptr(9), Tenant(3), nil},
		{"unbound staff is denied", Caller{Role: models.RoleStaff}, ptr(1), Scope{}, ErrUnbound},
		{"unbound customer is denied", Caller{Role: models.RoleCustomer}, nil, Scope{}, ErrUnbound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.caller, tt.requested)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScope(t *testing.T) {
	all := Unrestricted()
	assert.True(t, all.All())
	assert.True(t, all.Allows(42))
	_, ok := all.TenantID()
	assert.False(t, ok)
	assert.Equal(t, "all", all.String())

	one := Tenant(5)
	id, ok := one.TenantID()
	assert.True(t, ok)
	assert.Equal(t, uint(5), id)
	assert.True(t, one.Allows(5))
	assert.False(t, one.Allows(6))
	assert.Equal(t, "restaurant:5", one.String())
}

func TestOwns(t *testing.T) {
	admin := Caller{Role: models.RoleAdmin, RestaurantID: ptr(1)}
	assert.NoError(t, Owns(admin, 1))
	assert.ErrorIs(t, Owns(admin, 2), ErrForbidden)
	assert.NoError(t, Owns(Caller{Role: models.RoleSuperAdmin}, 2))
}

func TestAuthorize(t *testing.T) {
	t.Run("role not allowed", func(t *testing.T) {
		d := Authorize(Caller{Role: models.RoleStaff, RestaurantID: ptr(1)}, nil, ActionFoodDelete)
		assert.False(t, d.Allowed)
		assert.ErrorIs(t, d.Err(), ErrForbidden)
	})

	t.Run("staff may create food in own restaurant only", func(t *testing.T) {
		d := Authorize(Caller{Role: models.RoleStaff, RestaurantID: ptr(1)}, ptr(2), ActionFoodCreate)
		require.True(t, d.Allowed)
		assert.NoError(t, d.Err())
		assert.Equal(t, Tenant(1), d.Scope)
	})

	t.Run("customer cannot list tenant orders", func(t *testing.T) {
		d := Authorize(Caller{Role: models.RoleCustomer}, nil, ActionOrderList)
		assert.False(t, d.Allowed)
	})

	t.Run("delivery may claim deliveries", func(t *testing.T) {
		d := Authorize(Caller{Role: models.RoleDelivery, RestaurantID: ptr(4)}, nil, ActionDeliveryAgree)
		require.True(t, d.Allowed)
		assert.Equal(t, Tenant(4), d.Scope)
	})

	t.Run("staff cannot agree delivery", func(t *testing.T) {
		d := Authorize(Caller{Role: models.RoleStaff, RestaurantID: ptr(4)}, nil, ActionDeliveryAgree)
		assert.False(t, d.Allowed)
	})

	t.Run("unbound admin is denied even when role matches", func(t *testing.T) {
		d := Authorize(Caller{Role: models.RoleAdmin}, nil, ActionOrderDelete)
		assert.False(t, d.Allowed)
		assert.ErrorIs(t, d.Err(), ErrUnbound)
	})

	t.Run("tenant management is superadmin only", func(t *testing.T) {
		assert.False(t, Authorize(Caller{Role: models.RoleAdmin, RestaurantID: ptr(1)}, nil, ActionTenantManage).Allowed)
		assert.True(t, Authorize(Caller{Role: models.RoleSuperAdmin}, nil, ActionTenantManage).Allowed)
	})

	t.Run("unknown action", func(t *testing.T) {
		d := Authorize(Caller{Role: models.RoleSuperAdmin}, nil, Action("nope"))
		assert.False(t, d.Allowed)
	})
}

func TestEveryActionHasRoles(t *testing.T) {
	for a := range policy {
		assert.NotEmpty(t, Roles(a), a)
	}
}
