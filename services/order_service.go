package services

import (
	"context"
	"errors"
	"fmt"

	"food-ordering-api/access"
	"food-ordering-api/models"
	"food-ordering-api/repository"
	"food-ordering-api/statemachine"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultRejectionReason         = "No reason provided"
	DefaultDeliveryRejectionReason = "Delivery person cannot take this order"
)

// StockListener is told which foods lost stock after an order commits, so
// cached copies can be dropped.
type StockListener interface {
	StockChanged(ctx context.Context, restaurantID uint, foodIDs []uint)
}

type OrderItemRequest struct {
	FoodID   uint `json:"food_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,min=1"`
}

type PlaceOrderRequest struct {
	RestaurantID  *uint                `json:"restaurant_id"`
	Items         []OrderItemRequest   `json:"items" binding:"required,min=1,dive"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Address       string               `json:"address"`
}

type OrderService struct {
	db          *gorm.DB
	orders      *repository.OrderRepository
	foods       *repository.FoodRepository
	users       *repository.UserRepository
	stock       StockListener
	deliveryFee float64
	log         *zap.Logger
}

func NewOrderService(db *gorm.DB, deliveryFee float64, stock StockListener, log *zap.Logger) *OrderService {
	return &OrderService{
		db:          db,
		orders:      repository.NewOrderRepository(db),
		foods:       repository.NewFoodRepository(db),
		users:       repository.NewUserRepository(db),
		stock:       stock,
		deliveryFee: deliveryFee,
		log:         log.Named("orders"),
	}
}

// ----- Create -----

// Place creates a Pending order for the calling customer. Every line is
// checked against the stock on hand before anything is written, and the
// order row, its line items and the stock decrements commit together.
func (s *OrderService) Place(ctx context.Context, caller access.Caller, req PlaceOrderRequest) (*models.Order, error) {
	if !caller.Is(models.RoleCustomer) {
		return nil, forbidden("only customers can place orders")
	}
	if len(req.Items) == 0 {
		return nil, invalid("items is required")
	}

	// Merge repeated foods so availability is checked against the full
	// requested amount.
	var ids []uint
	wanted := make(map[uint]int, len(req.Items))
	for _, it := range req.Items {
		if it.FoodID == 0 || it.Quantity <= 0 {
			return nil, invalid("every item needs a food_id and a positive quantity")
		}
		if _, seen := wanted[it.FoodID]; !seen {
			ids = append(ids, it.FoodID)
		}
		wanted[it.FoodID] += it.Quantity
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foods := s.foods.WithTx(tx)
		orders := s.orders.WithTx(tx)

		stocked, err := foods.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}

		var restaurantID uint
		items := make([]models.OrderItem, 0, len(ids))
		for _, id := range ids {
			f, ok := stocked[id]
			if !ok {
				return fmt.Errorf("%w: food %d", ErrNotFound, id)
			}
			if restaurantID == 0 {
				restaurantID = f.RestaurantID
			} else if f.RestaurantID != restaurantID {
				return invalid("all items must come from the same restaurant")
			}
			items = append(items, models.SnapshotItem(&f, wanted[id]))
		}
		if req.RestaurantID != nil && *req.RestaurantID != 0 && *req.RestaurantID != restaurantID {
			return invalid("items do not belong to restaurant %d", *req.RestaurantID)
		}
		for _, id := range ids {
			if f := stocked[id]; f.Quantity < wanted[id] {
				return &InsufficientStockError{FoodID: id, Name: f.Name, Requested: wanted[id], Available: f.Quantity}
			}
		}

		o, err := models.NewOrder(caller.AccountID, restaurantID, items, s.deliveryFee, req.PaymentMethod, req.Address)
		if err != nil {
			return err
		}
		if err := orders.Create(ctx, o); err != nil {
			return err
		}

		for _, id := range ids {
			err := foods.DecrementStock(ctx, id, wanted[id])
			if errors.Is(err, repository.ErrNotEnough) {
				// Another order took the units between the check and here.
				available := 0
				if cur, gerr := foods.GetByID(ctx, id); gerr == nil {
					available = cur.Quantity
				}
				return &InsufficientStockError{FoodID: id, Name: stocked[id].Name, Requested: wanted[id], Available: available}
			}
			if err != nil {
				return err
			}
		}

		if err := orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   o.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: caller.AccountID,
			Note:      "Order placed by customer",
		}); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.stock != nil {
		s.stock.StockChanged(ctx, order.RestaurantID, ids)
	}
	s.log.Info("order placed",
		zap.Uint("order_id", order.ID),
		zap.Uint("customer_id", order.CustomerID),
		zap.Uint("restaurant_id", order.RestaurantID),
		zap.Float64("total", order.TotalAmount))
	return order, nil
}

// ----- Transitions -----

// change describes the effect of a transition on an order.
type change struct {
	to    models.OrderStatus
	extra map[string]any
	note  string
}

// transition loads the order, checks tenant isolation and the state machine,
// and applies c with a compare-and-set on the current status.
func (s *OrderService) transition(ctx context.Context, caller access.Caller, id uint, action access.Action, event statemachine.Event, decide func(o *models.Order) (change, error)) (*models.Order, error) {
	d := access.Authorize(caller, nil, action)
	if !d.Allowed {
		return nil, d.Reason
	}

	var out *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		o, err := orders.GetByID(ctx, id)
		if err != nil {
			return lookup(err, "order", id)
		}
		if !d.Scope.Allows(o.RestaurantID) {
			return forbidden("order %d belongs to another restaurant", id)
		}

		c, err := decide(o)
		if err != nil {
			return err
		}
		if err := statemachine.CanTransition(o.Status, c.to, event, caller.Role); err != nil {
			return err
		}
		err = orders.UpdateStatusGuard(ctx, o.ID, o.Status, c.to, c.extra)
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%w: order %d changed status concurrently", ErrInvalidTransition, id)
		}
		if err != nil {
			return err
		}
		if err := orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    o.ID,
			FromStatus: o.Status,
			ToStatus:   c.to,
			ChangedBy:  caller.AccountID,
			Note:       c.note,
		}); err != nil {
			return err
		}
		s.log.Info("order status changed",
			zap.Uint("order_id", o.ID),
			zap.String("from", string(o.Status)),
			zap.String("to", string(c.to)),
			zap.String("role", string(caller.Role)),
			zap.Uint("by", caller.AccountID))

		out, err = orders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Accept moves a Pending order into the pipeline. Kitchen roles become the
// staff handler and the order is Accepted; a delivery agent becomes the
// delivery handler and the order goes straight to Handed to Delivery.
func (s *OrderService) Accept(ctx context.Context, caller access.Caller, id uint) (*models.Order, error) {
	return s.transition(ctx, caller, id, access.ActionOrderAccept, statemachine.EventAccept, func(o *models.Order) (change, error) {
		to := statemachine.AcceptTarget(caller.Role)
		handler := "staff_id"
		if caller.Role == models.RoleDelivery {
			handler = "delivery_id"
		}
		return change{to: to, extra: map[string]any{handler: caller.AccountID}, note: "Order accepted"}, nil
	})
}

func (s *OrderService) Reject(ctx context.Context, caller access.Caller, id uint, reason string) (*models.Order, error) {
	if reason == "" {
		reason = DefaultRejectionReason
	}
	return s.transition(ctx, caller, id, access.ActionOrderReject, statemachine.EventReject, func(o *models.Order) (change, error) {
		return change{
			to:    models.StatusRejected,
			extra: map[string]any{"rejection_reason": reason},
			note:  "Order rejected: " + reason,
		}, nil
	})
}

// UpdateStatus is the free status update. Only the later pipeline statuses
// may be requested; anything else is a validation error.
func (s *OrderService) UpdateStatus(ctx context.Context, caller access.Caller, id uint, status models.OrderStatus) (*models.Order, error) {
	if !statemachine.IsAdvanceTarget(status) {
		return nil, invalid("invalid status update %q; allowed: %v", status, statemachine.AdvanceTargets)
	}
	return s.transition(ctx, caller, id, access.ActionOrderStatus, statemachine.EventAdvance, func(o *models.Order) (change, error) {
		return change{to: status, note: "Status updated"}, nil
	})
}

// AgreeDelivery assigns a delivery handler without touching the status.
// Delivery agents always assign themselves; admins may name an agent of the
// order's restaurant and otherwise assign themselves.
func (s *OrderService) AgreeDelivery(ctx context.Context, caller access.Caller, id uint, deliveryID *uint) (*models.Order, error) {
	d := access.Authorize(caller, nil, access.ActionDeliveryAgree)
	if !d.Allowed {
		return nil, d.Reason
	}

	var out *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		o, err := orders.GetByID(ctx, id)
		if err != nil {
			return lookup(err, "order", id)
		}
		if !d.Scope.Allows(o.RestaurantID) {
			return forbidden("order %d belongs to another restaurant", id)
		}

		handler := caller.AccountID
		if deliveryID != nil && *deliveryID != 0 && *deliveryID != caller.AccountID {
			if caller.Role == models.RoleDelivery {
				return forbidden("delivery agents can only assign themselves")
			}
			agent, err := s.users.WithTx(tx).GetByID(ctx, *deliveryID)
			if err != nil {
				return lookup(err, "user", *deliveryID)
			}
			if agent.Role != models.RoleDelivery || agent.RestaurantID == nil || *agent.RestaurantID != o.RestaurantID {
				return invalid("user %d is not a delivery agent of restaurant %d", agent.ID, o.RestaurantID)
			}
			handler = agent.ID
		}

		if !statemachine.IsClaimable(o.Status) {
			return fmt.Errorf("%w: order %d is %s; only %v orders can be claimed for delivery",
				ErrInvalidTransition, id, o.Status, statemachine.ClaimableStatuses)
		}
		if o.DeliveryID != nil {
			if *o.DeliveryID == handler {
				out = o
				return nil
			}
			return conflict("order %d already has a delivery handler", id)
		}
		err = orders.AssignDelivery(ctx, o.ID, handler, statemachine.ClaimableStatuses)
		if errors.Is(err, repository.ErrConflict) {
			return conflict("order %d was claimed concurrently", id)
		}
		if err != nil {
			return err
		}
		if err := orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    o.ID,
			FromStatus: o.Status,
			ToStatus:   o.Status,
			ChangedBy:  caller.AccountID,
			Note:       fmt.Sprintf("Delivery assigned to user %d", handler),
		}); err != nil {
			return err
		}
		out, err = orders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("delivery assigned", zap.Uint("order_id", id), zap.Uint("by", caller.AccountID))
	return out, nil
}

// RejectDelivery frees the order for another delivery agent. The order's
// status is unchanged; only the delivery handler is cleared. It applies to
// claimable orders only.
func (s *OrderService) RejectDelivery(ctx context.Context, caller access.Caller, id uint, reason string) (*models.Order, error) {
	d := access.Authorize(caller, nil, access.ActionDeliveryReject)
	if !d.Allowed {
		return nil, d.Reason
	}
	if reason == "" {
		reason = DefaultDeliveryRejectionReason
	}

	var out *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		o, err := orders.GetByID(ctx, id)
		if err != nil {
			return lookup(err, "order", id)
		}
		if !d.Scope.Allows(o.RestaurantID) {
			return forbidden("order %d belongs to another restaurant", id)
		}
		// Only orders another agent could claim may be released; a handed
		// over or finished order stays with its agent.
		if !statemachine.IsClaimable(o.Status) {
			return fmt.Errorf("%w: cannot release delivery of order %d in status %s", ErrInvalidTransition, id, o.Status)
		}
		if caller.Role == models.RoleDelivery && o.DeliveryID != nil && *o.DeliveryID != caller.AccountID {
			return forbidden("order %d is assigned to another delivery agent", id)
		}
		if err := orders.ReleaseDelivery(ctx, o.ID, reason); err != nil {
			return lookup(err, "order", id)
		}
		if err := orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    o.ID,
			FromStatus: o.Status,
			ToStatus:   o.Status,
			ChangedBy:  caller.AccountID,
			Note:       "Delivery declined: " + reason,
		}); err != nil {
			return err
		}
		out, err = orders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("delivery declined", zap.Uint("order_id", id), zap.Uint("by", caller.AccountID))
	return out, nil
}

// Delete hard-deletes an order. Stock is not restored.
func (s *OrderService) Delete(ctx context.Context, caller access.Caller, id uint) error {
	d := access.Authorize(caller, nil, access.ActionOrderDelete)
	if !d.Allowed {
		return d.Reason
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		o, err := orders.GetByID(ctx, id)
		if err != nil {
			return lookup(err, "order", id)
		}
		if !d.Scope.Allows(o.RestaurantID) {
			return forbidden("order %d belongs to another restaurant", id)
		}
		return lookup(orders.Delete(ctx, id), "order", id)
	})
	if err != nil {
		return err
	}
	s.log.Info("order deleted", zap.Uint("order_id", id), zap.Uint("by", caller.AccountID))
	return nil
}

// Rate stores the customer's rating of a delivered order.
func (s *OrderService) Rate(ctx context.Context, caller access.Caller, id uint, rating int, review string) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "order", id)
	}
	if !caller.Is(models.RoleCustomer) || o.CustomerID != caller.AccountID {
		return nil, forbidden("only the ordering customer can rate order %d", id)
	}
	if o.Status != models.StatusDelivered {
		return nil, fmt.Errorf("%w: order %d is %s; only delivered orders can be rated", ErrInvalidTransition, id, o.Status)
	}
	if err := o.Rate(rating, review); err != nil {
		return nil, err
	}
	if err := s.orders.SaveRating(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ----- Queries -----

// Get returns one order with its details. Customers see their own orders;
// other roles see the orders in their scope.
func (s *OrderService) Get(ctx context.Context, caller access.Caller, id uint) (*models.Order, error) {
	o, err := s.orders.GetDetail(ctx, id)
	if err != nil {
		return nil, lookup(err, "order", id)
	}
	if caller.Is(models.RoleCustomer) {
		if o.CustomerID != caller.AccountID {
			return nil, forbidden("order %d does not belong to you", id)
		}
		return o, nil
	}
	scope, err := access.Resolve(caller, nil)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(o.RestaurantID) {
		return nil, forbidden("order %d belongs to another restaurant", id)
	}
	return o, nil
}

// List returns the orders in the caller's scope, optionally by status.
func (s *OrderService) List(ctx context.Context, caller access.Caller, requested *uint, status models.OrderStatus) ([]models.Order, error) {
	d := access.Authorize(caller, requested, access.ActionOrderList)
	if !d.Allowed {
		return nil, d.Reason
	}
	f := repository.OrderFilter{Scope: d.Scope}
	if status != "" {
		if !status.Valid() {
			return nil, invalid("unknown status %q", status)
		}
		f.Statuses = []models.OrderStatus{status}
	}
	return s.orders.List(ctx, f)
}

// Pending returns the orders waiting on the caller. For delivery agents that
// is the claimable orders, not the literally Pending ones.
func (s *OrderService) Pending(ctx context.Context, caller access.Caller, requested *uint) ([]models.Order, error) {
	d := access.Authorize(caller, requested, access.ActionOrderList)
	if !d.Allowed {
		return nil, d.Reason
	}
	f := repository.OrderFilter{Scope: d.Scope, Statuses: []models.OrderStatus{models.StatusPending}}
	if caller.Role == models.RoleDelivery {
		f.Statuses = statemachine.ClaimableStatuses
		f.Unassigned = true
	}
	return s.orders.List(ctx, f)
}

// Managed returns in-flight orders the caller handles as staff or delivery.
func (s *OrderService) Managed(ctx context.Context, caller access.Caller) ([]models.Order, error) {
	d := access.Authorize(caller, nil, access.ActionOrderList)
	if !d.Allowed {
		return nil, d.Reason
	}
	handler := caller.AccountID
	return s.orders.List(ctx, repository.OrderFilter{
		Scope:     d.Scope,
		Statuses:  statemachine.InFlightStatuses,
		HandlerID: &handler,
	})
}

// ForCustomer lists a customer's orders. Customers may only ask for their
// own; tenant-bound roles only see that customer's orders at their
// restaurant.
func (s *OrderService) ForCustomer(ctx context.Context, caller access.Caller, customerID uint) ([]models.Order, error) {
	scope := access.Unrestricted()
	if caller.Is(models.RoleCustomer) {
		if caller.AccountID != customerID {
			return nil, forbidden("customers can only list their own orders")
		}
	} else {
		var err error
		if scope, err = access.Resolve(caller, nil); err != nil {
			return nil, err
		}
	}
	return s.orders.List(ctx, repository.OrderFilter{Scope: scope, CustomerID: &customerID})
}
