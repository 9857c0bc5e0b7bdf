package access

import (
	"fmt"
	"strings"

	"food-ordering-api/models"
)

// Action names an operation guarded by the policy table.
type Action string

const (
	ActionFoodCreate     Action = "food:create"
	ActionFoodUpdate     Action = "food:update"
	ActionFoodDelete     Action = "food:delete"
	ActionOrderList      Action = "order:list"
	ActionOrderAccept    Action = "order:accept"
	ActionOrderReject    Action = "order:reject"
	ActionOrderStatus    Action = "order:status"
	ActionDeliveryAgree  Action = "order:delivery-agree"
	ActionDeliveryReject Action = "order:delivery-reject"
	ActionOrderDelete    Action = "order:delete"
	ActionStats          Action = "dashboard:stats"
	ActionTenantManage   Action = "restaurant:manage"
	ActionTenantView     Action = "restaurant:view-own"
	ActionStaffManage    Action = "staff:manage"
	ActionMessageTenant  Action = "message:list-restaurant"
	ActionMessageReply   Action = "message:reply"
	ActionTopRestaurants Action = "dashboard:top-restaurants"
)

var (
	kitchen   = []models.UserRole{models.RoleStaff, models.RoleAdmin, models.RoleSuperAdmin, models.RoleDelivery}
	managers  = []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin}
	courier   = []models.UserRole{models.RoleDelivery, models.RoleAdmin, models.RoleSuperAdmin}
	superOnly = []models.UserRole{models.RoleSuperAdmin}
)

// policy lists the roles allowed to perform each action.
var policy = map[Action][]models.UserRole{
	ActionFoodCreate:     {models.RoleAdmin, models.RoleStaff, models.RoleSuperAdmin},
	ActionFoodUpdate:     managers,
	ActionFoodDelete:     managers,
	ActionOrderList:      kitchen,
	ActionOrderAccept:    kitchen,
	ActionOrderReject:    kitchen,
	ActionOrderStatus:    kitchen,
	ActionDeliveryAgree:  courier,
	ActionDeliveryReject: courier,
	ActionOrderDelete:    managers,
	ActionStats:          kitchen,
	ActionTenantManage:   superOnly,
	ActionTenantView:     {models.RoleAdmin, models.RoleStaff, models.RoleDelivery},
	ActionStaffManage:    managers,
	ActionMessageTenant:  kitchen,
	ActionMessageReply:   kitchen,
	ActionTopRestaurants: superOnly,
}

// Roles returns the roles allowed to perform a.
func Roles(a Action) []models.UserRole {
	return policy[a]
}

// Decision is the outcome of Authorize: either Allowed with a Scope, or
// denied with a Reason.
type Decision struct {
	Allowed bool
	Scope   Scope
	Reason  error
}

func allow(s Scope) Decision { return Decision{Allowed: true, Scope: s} }
func deny(reason error) Decision { return Decision{Reason: reason} }

// Err returns nil for an allowed decision and the denial reason otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}

// Authorize checks that c may perform a and computes the scope it runs in.
func Authorize(c Caller, requested *uint, a Action) Decision {
	roles, ok := policy[a]
	if !ok {
		return deny(fmt.Errorf("%w: unknown action %s", ErrForbidden, a))
	}
	if !c.Is(roles...) {
		return deny(fmt.Errorf("%w: role %s is not authorized to %s (requires %s)", ErrForbidden, c.Role, a, join(roles)))
	}
	scope, err := Resolve(c, requested)
	if err != nil {
		return deny(err)
	}
	return allow(scope)
}

func join(roles []models.UserRole) string {
	s := make([]string, len(roles))
	for i, r := range roles {
		s[i] = string(r)
	}
	return strings.Join(s, ", ")
}
