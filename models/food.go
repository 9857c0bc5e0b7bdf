package models

import (
	"strings"
	"time"
)

// Food is a stocked menu item. Quantity is the quantity on hand; order
// placement decrements it and it never goes below zero.
type Food struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RestaurantID uint      `json:"restaurant_id" gorm:"not null;index" validate:"required"`
	Name         string    `json:"name" gorm:"not null" validate:"required"`
	Description  string    `json:"description"`
	Price        float64   `json:"price" gorm:"not null" validate:"gte=0"`
	Image        string    `json:"image"`
	Category     string    `json:"category" gorm:"index" validate:"required"`
	Rating       float64   `json:"rating" gorm:"default:0" validate:"gte=0,lte=5"`
	Quantity     int       `json:"quantity" gorm:"not null;default:0" validate:"gte=0"`
	IsPopular    bool      `json:"is_popular" gorm:"default:false"`
	Size         string    `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewFood(restaurantID uint, name, description, category string, price float64, quantity int) (*Food, error) {
	f := &Food{
		RestaurantID: restaurantID,
		Name:         strings.TrimSpace(name),
		Description:  description,
		Category:     strings.TrimSpace(category),
		Price:        price,
		Quantity:     quantity,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Food) Validate() error {
	return check(f)
}
