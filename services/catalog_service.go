package services

import (
	"context"
	"strings"

	"food-ordering-api/access"
	"food-ordering-api/models"
	"food-ordering-api/repository"

	"go.uber.org/zap"
)

// FoodStore is the persistence the catalog needs. It is satisfied by
// *repository.FoodRepository and by the redis-backed cache in front of it.
type FoodStore interface {
	Create(ctx context.Context, f *models.Food) error
	GetByID(ctx context.Context, id uint) (*models.Food, error)
	List(ctx context.Context, filter repository.FoodFilter) ([]models.Food, error)
	Modify(ctx context.Context, id uint, apply func(f *models.Food) (map[string]any, error)) (*models.Food, error)
	Delete(ctx context.Context, id uint) error
}

type CreateFoodRequest struct {
	RestaurantID *uint   `json:"restaurant_id"`
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" binding:"gte=0"`
	Image        string  `json:"image"`
	Category     string  `json:"category" binding:"required"`
	Quantity     int     `json:"quantity" binding:"gte=0"`
	IsPopular    bool    `json:"is_popular"`
	Size         string  `json:"size"`
}

// UpdateFoodRequest holds the fields to change; nil fields are left alone.
type UpdateFoodRequest struct {
	RestaurantID *uint    `json:"restaurant_id"`
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	Image        *string  `json:"image"`
	Category     *string  `json:"category"`
	Quantity     *int     `json:"quantity"`
	IsPopular    *bool    `json:"is_popular"`
	Size         *string  `json:"size"`
}

type CatalogService struct {
	foods FoodStore
	log   *zap.Logger
}

func NewCatalogService(foods FoodStore, log *zap.Logger) *CatalogService {
	return &CatalogService{foods: foods, log: log.Named("catalog")}
}

// List is public: browsing the menu needs no identity.
func (s *CatalogService) List(ctx context.Context, filter repository.FoodFilter) ([]models.Food, error) {
	return s.foods.List(ctx, filter)
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Food, error) {
	f, err := s.foods.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "food", id)
	}
	return f, nil
}

// Create adds a food to the caller's restaurant. Only a super-admin may pick
// the restaurant; anybody else always creates in their own.
func (s *CatalogService) Create(ctx context.Context, caller access.Caller, req CreateFoodRequest) (*models.Food, error) {
	d := access.Authorize(caller, req.RestaurantID, access.ActionFoodCreate)
	if !d.Allowed {
		return nil, d.Reason
	}
	restaurantID, ok := d.Scope.TenantID()
	if !ok {
		return nil, invalid("restaurant_id is required")
	}

	f, err := models.NewFood(restaurantID, req.Name, req.Description, req.Category, req.Price, req.Quantity)
	if err != nil {
		return nil, err
	}
	f.Image = req.Image
	f.IsPopular = req.IsPopular
	f.Size = strings.TrimSpace(req.Size)

	if err := s.foods.Create(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info("food created",
		zap.Uint("food_id", f.ID), zap.Uint("restaurant_id", restaurantID), zap.Uint("by", caller.AccountID))
	return f, nil
}

// Update changes the given fields of a food. The row is read, checked and
// written under one lock, and quantity is only written when requested.
func (s *CatalogService) Update(ctx context.Context, caller access.Caller, id uint, req UpdateFoodRequest) (*models.Food, error) {
	d := access.Authorize(caller, nil, access.ActionFoodUpdate)
	if !d.Allowed {
		return nil, d.Reason
	}

	f, err := s.foods.Modify(ctx, id, func(f *models.Food) (map[string]any, error) {
		if !d.Scope.Allows(f.RestaurantID) {
			return nil, forbidden("food %d belongs to another restaurant", id)
		}
		changes := map[string]any{}
		if req.Name != nil {
			f.Name = strings.TrimSpace(*req.Name)
			changes["name"] = f.Name
		}
		if req.Description != nil {
			f.Description = *req.Description
			changes["description"] = f.Description
		}
		if req.Price != nil {
			f.Price = *req.Price
			changes["price"] = f.Price
		}
		if req.Image != nil {
			f.Image = *req.Image
			changes["image"] = f.Image
		}
		if req.Category != nil {
			f.Category = strings.TrimSpace(*req.Category)
			changes["category"] = f.Category
		}
		if req.Quantity != nil {
			f.Quantity = *req.Quantity
			changes["quantity"] = f.Quantity
		}
		if req.IsPopular != nil {
			f.IsPopular = *req.IsPopular
			changes["is_popular"] = f.IsPopular
		}
		if req.Size != nil {
			f.Size = strings.TrimSpace(*req.Size)
			changes["size"] = f.Size
		}
		// Moving a food between restaurants is a super-admin operation; for
		// everyone else the field is ignored like any other foreign tenant id.
		if req.RestaurantID != nil && *req.RestaurantID != 0 && caller.IsSuperAdmin() {
			f.RestaurantID = *req.RestaurantID
			changes["restaurant_id"] = f.RestaurantID
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		return changes, nil
	})
	if err != nil {
		return nil, lookup(err, "food", id)
	}
	s.log.Info("food updated", zap.Uint("food_id", f.ID), zap.Uint("by", caller.AccountID))
	return f, nil
}

func (s *CatalogService) Delete(ctx context.Context, caller access.Caller, id uint) error {
	if _, err := s.owned(ctx, caller, id, access.ActionFoodDelete); err != nil {
		return err
	}
	if err := s.foods.Delete(ctx, id); err != nil {
		return lookup(err, "food", id)
	}
	s.log.Info("food deleted", zap.Uint("food_id", id), zap.Uint("by", caller.AccountID))
	return nil
}

// owned loads a food the caller may mutate. A missing food is ErrNotFound;
// a food of another restaurant is ErrForbidden.
func (s *CatalogService) owned(ctx context.Context, caller access.Caller, id uint, action access.Action) (*models.Food, error) {
	d := access.Authorize(caller, nil, action)
	if !d.Allowed {
		return nil, d.Reason
	}
	f, err := s.foods.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "food", id)
	}
	if !d.Scope.Allows(f.RestaurantID) {
		return nil, forbidden("food %d belongs to another restaurant", id)
	}
	return f, nil
}
