package models

import (
	"strings"
	"time"
)

// Restaurant is the tenant: every food, order and message is scoped to one.
type Restaurant struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null" validate:"required"`
	Address     string    `json:"address" gorm:"not null" validate:"required"`
	Phone       string    `json:"phone" gorm:"not null" validate:"required"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	Rating      float64   `json:"rating" gorm:"default:0" validate:"gte=0,lte=5"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewRestaurant(name, address, phone, image, description string) (*Restaurant, error) {
	r := &Restaurant{
		Name:        strings.TrimSpace(name),
		Address:     strings.TrimSpace(address),
		Phone:       strings.TrimSpace(phone),
		Image:       image,
		Description: description,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Restaurant) Validate() error {
	return check(r)
}
