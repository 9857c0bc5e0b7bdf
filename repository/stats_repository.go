package repository

import (
	"context"
	"time"

	"food-ordering-api/access"
	"food-ordering-api/models"

	"gorm.io/gorm"
)

// TopItem is one row of the best-selling items ranking.
type TopItem struct {
	Name          string  `json:"name"`
	TotalOrders   int64   `json:"total_orders"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
	Image         string  `json:"image"`
}

// TopRestaurant is one row of the restaurant ranking.
type TopRestaurant struct {
	RestaurantID uint    `json:"restaurant_id"`
	Name         string  `json:"name"`
	Image        string  `json:"image"`
	TotalOrders  int64   `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
}

// StatsRepository runs the read-only aggregates behind the dashboards.
// Revenue and sales figures never include cancelled orders.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) orders(ctx context.Context, scope access.Scope) *gorm.DB {
	return inScope(r.db.WithContext(ctx).Model(&models.Order{}), scope, "restaurant_id")
}

func (r *StatsRepository) CountOrders(ctx context.Context, scope access.Scope, statuses ...models.OrderStatus) (int64, error) {
	q := r.orders(ctx, scope)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *StatsRepository) CountByStatus(ctx context.Context, scope access.Scope) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err := r.orders(ctx, scope).Select("status, count(*) AS count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// CountClaimable counts orders a delivery agent could still claim.
func (r *StatsRepository) CountClaimable(ctx context.Context, scope access.Scope, statuses []models.OrderStatus) (int64, error) {
	var n int64
	err := r.orders(ctx, scope).Where("status IN ? AND delivery_id IS NULL", statuses).Count(&n).Error
	return n, err
}

func (r *StatsRepository) DistinctCustomers(ctx context.Context, scope access.Scope) (int64, error) {
	var n int64
	err := r.orders(ctx, scope).Distinct("customer_id").Count(&n).Error
	return n, err
}

// Revenue sums total_amount over non-cancelled orders created in
// [from, to). Zero times leave that side open.
func (r *StatsRepository) Revenue(ctx context.Context, scope access.Scope, from, to time.Time) (float64, error) {
	q := r.orders(ctx, scope).Where("status <> ?", models.StatusCancelled)
	q = between(q, "created_at", from, to)
	var total float64
	err := q.Select("COALESCE(SUM(total_amount), 0)").Row().Scan(&total)
	return total, err
}

// CountCreated counts orders of any status created in [from, to).
func (r *StatsRepository) CountCreated(ctx context.Context, scope access.Scope, from, to time.Time) (int64, error) {
	var n int64
	err := between(r.orders(ctx, scope), "created_at", from, to).Count(&n).Error
	return n, err
}

func (r *StatsRepository) soldItems(ctx context.Context, scope access.Scope) *gorm.DB {
	q := r.db.WithContext(ctx).Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", models.StatusCancelled)
	return inScope(q, scope, "orders.restaurant_id")
}

func (r *StatsRepository) ItemsSold(ctx context.Context, scope access.Scope) (int64, error) {
	var n int64
	err := r.soldItems(ctx, scope).Select("COALESCE(SUM(order_items.quantity), 0)").Row().Scan(&n)
	return n, err
}

func (r *StatsRepository) TopItems(ctx context.Context, scope access.Scope, limit int) ([]TopItem, error) {
	var items []TopItem
	err := r.soldItems(ctx, scope).
		Select("order_items.name AS name, COUNT(*) AS total_orders, " +
			"SUM(order_items.quantity) AS total_quantity, " +
			"SUM(order_items.price * order_items.quantity) AS total_revenue, " +
			"MAX(order_items.image) AS image").
		Group("order_items.name").
		Order("total_quantity desc").Order("name asc").
		Limit(limit).
		Scan(&items).Error
	return items, err
}

func (r *StatsRepository) TopRestaurants(ctx context.Context, limit int) ([]TopRestaurant, error) {
	var out []TopRestaurant
	err := r.db.WithContext(ctx).Table("orders").
		Joins("JOIN restaurants ON restaurants.id = orders.restaurant_id").
		Where("orders.status <> ?", models.StatusCancelled).
		Select("orders.restaurant_id AS restaurant_id, MAX(restaurants.name) AS name, " +
			"MAX(restaurants.image) AS image, COUNT(*) AS total_orders, " +
			"SUM(orders.total_amount) AS total_revenue").
		Group("orders.restaurant_id").
		Order("total_orders desc").Order("restaurant_id asc").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func between(q *gorm.DB, column string, from, to time.Time) *gorm.DB {
	if !from.IsZero() {
		q = q.Where(column+" >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where(column+" < ?", to)
	}
	return q
}
