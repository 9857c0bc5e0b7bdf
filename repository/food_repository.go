package repository

import (
	"context"
	"fmt"

	"food-ordering-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FoodFilter narrows a food listing. Zero values mean no filter.
type FoodFilter struct {
	RestaurantID *uint
	Category     string
	PopularOnly  bool
}

type FoodRepository struct {
	db *gorm.DB
}

func NewFoodRepository(db *gorm.DB) *FoodRepository {
	return &FoodRepository{db: db}
}

func (r *FoodRepository) WithTx(tx *gorm.DB) *FoodRepository {
	return &FoodRepository{db: tx}
}

func (r *FoodRepository) Create(ctx context.Context, f *models.Food) error {
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("failed to create food: %w", translate(err))
	}
	return nil
}

func (r *FoodRepository) GetByID(ctx context.Context, id uint) (*models.Food, error) {
	var f models.Food
	if err := r.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

// GetByIDs loads every food in ids keyed by id. Missing ids are simply
// absent from the result.
func (r *FoodRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Food, error) {
	var foods []models.Food
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&foods).Error; err != nil {
		return nil, fmt.Errorf("failed to load foods: %w", err)
	}
	out := make(map[uint]models.Food, len(foods))
	for _, f := range foods {
		out[f.ID] = f
	}
	return out, nil
}

func (r *FoodRepository) List(ctx context.Context, filter FoodFilter) ([]models.Food, error) {
	q := r.db.WithContext(ctx)
	if filter.RestaurantID != nil {
		q = q.Where("restaurant_id = ?", *filter.RestaurantID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.PopularOnly {
		q = q.Where("is_popular = ?", true)
	}
	var foods []models.Food
	if err := q.Order("id asc").Find(&foods).Error; err != nil {
		return nil, fmt.Errorf("failed to list foods: %w", err)
	}
	return foods, nil
}

// Modify loads the food under a row lock and hands it to apply, which
// returns the columns to change. Only those columns are written, so a
// concurrent stock decrement is never overwritten by an edit that does not
// touch quantity. An error from apply aborts the change.
func (r *FoodRepository) Modify(ctx context.Context, id uint, apply func(f *models.Food) (map[string]any, error)) (*models.Food, error) {
	var out models.Food
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f models.Food
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&f, id).Error; err != nil {
			return translate(err)
		}
		changes, err := apply(&f)
		if err != nil {
			return err
		}
		if len(changes) > 0 {
			if err := tx.Model(&models.Food{}).Where("id = ?", id).Updates(changes).Error; err != nil {
				return fmt.Errorf("failed to update food %d: %w", id, translate(err))
			}
		}
		return translate(tx.First(&out, id).Error)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *FoodRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Food{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete food %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock removes n units from the quantity on hand in a single
// conditional update, so it never drives the quantity below zero even when
// two orders race for the last units.
func (r *FoodRepository) DecrementStock(ctx context.Context, id uint, n int) error {
	if n <= 0 {
		return fmt.Errorf("decrement must be positive, got %d", n)
	}
	res := r.db.WithContext(ctx).Model(&models.Food{}).
		Where("id = ? AND quantity >= ?", id, n).
		Update("quantity", gorm.Expr("quantity - ?", n))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock of food %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotEnough
	}
	return nil
}
