package repository

import (
	"context"
	"fmt"

	"food-ordering-api/access"
	"food-ordering-api/models"

	"gorm.io/gorm"
)

// OrderFilter narrows an order listing. Scope is always applied.
type OrderFilter struct {
	Scope      access.Scope
	Statuses   []models.OrderStatus
	CustomerID *uint
	// Unassigned keeps only orders without a delivery handler.
	Unassigned bool
	// HandlerID keeps orders where the account is the staff or delivery handler.
	HandlerID *uint
	Limit     int
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create persists the order and its line items.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	err := r.db.WithContext(ctx).
		Omit("Customer", "Restaurant", "Staff", "Delivery", "StatusHistory").
		Create(o).Error
	if err != nil {
		return fmt.Errorf("failed to create order: %w", translate(err))
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&o, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// GetDetail loads the order with its people, restaurant and history.
func (r *OrderRepository) GetDetail(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Customer").Preload("Restaurant").Preload("Staff").Preload("Delivery").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&o, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := inScope(r.db.WithContext(ctx), f.Scope, "restaurant_id")
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Unassigned {
		q = q.Where("delivery_id IS NULL")
	}
	if f.HandlerID != nil {
		q = q.Where("(staff_id = ? OR delivery_id = ?)", *f.HandlerID, *f.HandlerID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var orders []models.Order
	err := q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Customer").Preload("Restaurant").Preload("Staff").Preload("Delivery").
		Order("created_at desc").Order("id desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatusGuard moves the order from one status to another only if it is
// still in from, applying extra column updates in the same statement.
func (r *OrderRepository) UpdateStatusGuard(ctx context.Context, id uint, from, to models.OrderStatus, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %d status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// AssignDelivery sets the delivery handler if none is set yet and the order
// is still in one of statuses.
func (r *OrderRepository) AssignDelivery(ctx context.Context, id, deliveryID uint, statuses []models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND delivery_id IS NULL AND status IN ?", id, statuses).
		Update("delivery_id", deliveryID)
	if res.Error != nil {
		return fmt.Errorf("failed to assign delivery for order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// ReleaseDelivery clears the delivery handler and records why.
func (r *OrderRepository) ReleaseDelivery(ctx context.Context, id uint, reason string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"delivery_id": nil, "rejection_reason": reason})
	if res.Error != nil {
		return fmt.Errorf("failed to release delivery for order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasCustomerAt reports whether the customer ever ordered from the
// restaurant.
func (r *OrderRepository) HasCustomerAt(ctx context.Context, customerID, restaurantID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("customer_id = ? AND restaurant_id = ?", customerID, restaurantID).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up orders of customer %d: %w", customerID, err)
	}
	return n > 0, nil
}

func (r *OrderRepository) SaveRating(ctx context.Context, o *models.Order) error {
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", o.ID).
		Updates(map[string]any{"delivery_rating": o.DeliveryRating, "delivery_review": o.DeliveryReview}).Error
	if err != nil {
		return fmt.Errorf("failed to rate order %d: %w", o.ID, err)
	}
	return nil
}

func (r *OrderRepository) AppendHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}

// Delete hard-deletes the order together with its line items and history.
// Call it inside a transaction.
func (r *OrderRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete items of order %d: %w", id, err)
	}
	if err := db.Where("order_id = ?", id).Delete(&models.OrderStatusHistory{}).Error; err != nil {
		return fmt.Errorf("failed to delete history of order %d: %w", id, err)
	}
	res := db.Delete(&models.Order{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
