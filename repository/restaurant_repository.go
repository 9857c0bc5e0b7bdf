package repository

import (
	"context"
	"fmt"

	"food-ordering-api/models"

	"gorm.io/gorm"
)

type RestaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *RestaurantRepository) WithTx(tx *gorm.DB) *RestaurantRepository {
	return &RestaurantRepository{db: tx}
}

func (r *RestaurantRepository) Create(ctx context.Context, rest *models.Restaurant) error {
	if err := r.db.WithContext(ctx).Create(rest).Error; err != nil {
		return fmt.Errorf("failed to create restaurant: %w", translate(err))
	}
	return nil
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id uint) (*models.Restaurant, error) {
	var rest models.Restaurant
	if err := r.db.WithContext(ctx).First(&rest, id).Error; err != nil {
		return nil, translate(err)
	}
	return &rest, nil
}

func (r *RestaurantRepository) List(ctx context.Context) ([]models.Restaurant, error) {
	var list []models.Restaurant
	if err := r.db.WithContext(ctx).Order("id asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	return list, nil
}

func (r *RestaurantRepository) Update(ctx context.Context, rest *models.Restaurant) error {
	if err := r.db.WithContext(ctx).Save(rest).Error; err != nil {
		return fmt.Errorf("failed to update restaurant %d: %w", rest.ID, translate(err))
	}
	return nil
}

// Delete removes only the restaurant row; foods, orders and accounts that
// reference it are left in place.
func (r *RestaurantRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Restaurant{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete restaurant %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RestaurantRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Restaurant{}).Count(&n).Error
	return n, err
}
