package models

import (
	"fmt"
	"strings"
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleStaff      UserRole = "staff"
	RoleAdmin      UserRole = "admin" // restaurant (tenant) administrator
	RoleDelivery   UserRole = "delivery"
	RoleSuperAdmin UserRole = "superadmin"
)

// AllRoles lists every role in a stable order.
var AllRoles = []UserRole{RoleCustomer, RoleStaff, RoleAdmin, RoleDelivery, RoleSuperAdmin}

func (r UserRole) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// TenantScoped reports whether accounts with this role must be bound to a
// restaurant.
func (r UserRole) TenantScoped() bool {
	return r == RoleStaff || r == RoleAdmin || r == RoleDelivery
}

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null" validate:"required,min=3,max=64"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null" validate:"required,email"`
	PasswordHash string    `json:"-" gorm:"not null" validate:"required"`
	Phone        string    `json:"phone_number"`
	ProfileImage string    `json:"profile_image"`
	Role         UserRole  `json:"role" gorm:"not null;default:'customer';index" validate:"required,oneof=customer staff admin delivery superadmin"`
	RestaurantID *uint     `json:"restaurant_id,omitempty" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAccount builds an account and checks its invariants. passwordHash must
// already be the output of the credential hasher.
func NewAccount(username, email, passwordHash string, role UserRole, restaurantID *uint) (*User, error) {
	u := &User{
		Username:     strings.TrimSpace(username),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Role:         role,
		RestaurantID: restaurantID,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) Validate() error {
	if err := check(u); err != nil {
		return err
	}
	switch {
	case u.Role.TenantScoped() && (u.RestaurantID == nil || *u.RestaurantID == 0):
		return fmt.Errorf("%w: role %s requires a restaurant", ErrInvalid, u.Role)
	case !u.Role.TenantScoped() && u.RestaurantID != nil:
		return fmt.Errorf("%w: role %s cannot be bound to a restaurant", ErrInvalid, u.Role)
	}
	return nil
}
