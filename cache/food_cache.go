// Package cache keeps read-through copies of the catalog in redis. Redis
// failures are logged and the request falls back to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-ordering-api/models"
	"food-ordering-api/repository"
	"food-ordering-api/services"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute
	// generationKey is bumped whenever any listing may have changed. Listing
	// keys embed the generation, so stale ones are simply never read again
	// and expire on their own.
	generationKey = "foods:gen"
)

// CachedFoodRepository sits in front of the food store. Single foods are
// cached by id; listings are cached per filter.
type CachedFoodRepository struct {
	store services.FoodStore
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedFoodRepository(store services.FoodStore, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedFoodRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedFoodRepository{store: store, redis: rdb, ttl: ttl, log: log.Named("cache")}
}

func foodKey(id uint) string {
	return fmt.Sprintf("food:%d", id)
}

func listKey(gen int64, f repository.FoodFilter) string {
	restaurant := "all"
	if f.RestaurantID != nil {
		restaurant = fmt.Sprint(*f.RestaurantID)
	}
	return fmt.Sprintf("foods:v%d:restaurant:%s:category:%s:popular:%t", gen, restaurant, f.Category, f.PopularOnly)
}

func (c *CachedFoodRepository) GetByID(ctx context.Context, id uint) (*models.Food, error) {
	key := foodKey(id)
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, repository.ErrNotFound
		}
		var f models.Food
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn("failed to decode cached food, using database", zap.String("key", key), zap.Error(err))
			break
		}
		return &f, nil
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("redis error, using database", zap.String("key", key), zap.Error(err))
	}

	f, err := c.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		if err := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); err != nil {
			c.log.Warn("failed to cache missing food", zap.String("key", key), zap.Error(err))
		}
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, f)
	return f, nil
}

func (c *CachedFoodRepository) List(ctx context.Context, filter repository.FoodFilter) ([]models.Food, error) {
	gen, err := c.redis.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("redis error, using database", zap.String("key", generationKey), zap.Error(err))
		return c.store.List(ctx, filter)
	}

	key := listKey(gen, filter)
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var foods []models.Food
		if err := json.Unmarshal(data, &foods); err == nil {
			return foods, nil
		}
		c.log.Warn("failed to decode cached listing, using database", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("redis error, using database", zap.String("key", key), zap.Error(err))
	}

	foods, err := c.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, foods)
	return foods, nil
}

func (c *CachedFoodRepository) Create(ctx context.Context, f *models.Food) error {
	if err := c.store.Create(ctx, f); err != nil {
		return err
	}
	c.invalidate(ctx, f.ID)
	return nil
}

// Modify always goes to the store so the edit sees the current row, never a
// cached copy.
func (c *CachedFoodRepository) Modify(ctx context.Context, id uint, apply func(f *models.Food) (map[string]any, error)) (*models.Food, error) {
	f, err := c.store.Modify(ctx, id, apply)
	c.invalidate(ctx, id)
	return f, err
}

func (c *CachedFoodRepository) Delete(ctx context.Context, id uint) error {
	err := c.store.Delete(ctx, id)
	c.invalidate(ctx, id)
	return err
}

// StockChanged drops the cached foods whose quantity was just decremented,
// and every listing.
func (c *CachedFoodRepository) StockChanged(ctx context.Context, restaurantID uint, foodIDs []uint) {
	c.invalidate(ctx, foodIDs...)
	c.log.Debug("stock changed", zap.Uint("restaurant_id", restaurantID), zap.Int("foods", len(foodIDs)))
}

func (c *CachedFoodRepository) invalidate(ctx context.Context, ids ...uint) {
	if len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = foodKey(id)
		}
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			c.log.Warn("failed to delete cached foods", zap.Strings("keys", keys), zap.Error(err))
		}
	}
	if err := c.redis.Incr(ctx, generationKey).Err(); err != nil {
		c.log.Warn("failed to invalidate cached listings", zap.Error(err))
	}
}

func (c *CachedFoodRepository) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("failed to cache", zap.String("key", key), zap.Error(err))
	}
}
