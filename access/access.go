// Package access is the tenant isolation guard. Every tenant-scoped read or
// write computes its effective scope here; no handler or service uses a
// caller-supplied restaurant id directly.
package access

import (
	"errors"
	"fmt"

	"food-ordering-api/models"
)

var (
	// ErrForbidden is returned when the caller's role may not perform the
	// action, or when the caller is not bound to the tenant it targets.
	ErrForbidden = errors.New("forbidden")
	// ErrUnbound marks a tenant-scoped role that has no restaurant binding.
	// It matches ErrForbidden.
	ErrUnbound = fmt.Errorf("%w: account is not assigned to a restaurant", ErrForbidden)
)

// Caller is the resolved identity of the account making a request.
type Caller struct {
	AccountID    uint
	Role         models.UserRole
	RestaurantID *uint
}

func (c Caller) IsSuperAdmin() bool { return c.Role == models.RoleSuperAdmin }

// Is reports whether the caller has one of roles.
func (c Caller) Is(roles ...models.UserRole) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// Scope is the set of tenants an operation may touch: either every tenant or
// exactly one.
type Scope struct {
	all      bool
	tenantID uint
}

// Unrestricted is the scope of a super-admin that did not ask for a tenant.
func Unrestricted() Scope { return Scope{all: true} }

// Tenant is the scope of a single restaurant.
func Tenant(id uint) Scope { return Scope{tenantID: id} }

func (s Scope) All() bool { return s.all }

// TenantID returns the scoped tenant; ok is false for an unrestricted scope.
func (s Scope) TenantID() (id uint, ok bool) {
	if s.all {
		return 0, false
	}
	return s.tenantID, true
}

// Allows reports whether a record owned by tenantID is inside the scope.
func (s Scope) Allows(tenantID uint) bool {
	return s.all || s.tenantID == tenantID
}

func (s Scope) String() string {
	if s.all {
		return "all"
	}
	return fmt.Sprintf("restaurant:%d", s.tenantID)
}

// Resolve computes the effective scope for c. A super-admin gets requested
// when given and every tenant otherwise. Any other bound caller always gets
// its own binding, whatever it requested. Unbound callers are denied.
func Resolve(c Caller, requested *uint) (Scope, error) {
	if c.IsSuperAdmin() {
		if requested != nil && *requested != 0 {
			return Tenant(*requested), nil
		}
		return Unrestricted(), nil
	}
	if c.RestaurantID == nil || *c.RestaurantID == 0 {
		return Scope{}, ErrUnbound
	}
	return Tenant(*c.RestaurantID), nil
}

// Owns checks that a record belonging to tenantID may be mutated by c.
func Owns(c Caller, tenantID uint) error {
	scope, err := Resolve(c, nil)
	if err != nil {
		return err
	}
	if !scope.Allows(tenantID) {
		return fmt.Errorf("%w: resource belongs to another restaurant", ErrForbidden)
	}
	return nil
}
