package handlers

import (
	"food-ordering-api/models"
	"food-ordering-api/pkg/resp"

	"github.com/gin-gonic/gin"
)

// GetPendingOrders returns orders waiting on the caller. Delivery agents get
// the orders they can still claim.
func (h *Handler) GetPendingOrders(c *gin.Context) {
	restaurantID, ok := optionalID(c, "restaurantId", "restaurant_id")
	if !ok {
		return
	}
	orders, err := h.Orders.Pending(c.Request.Context(), caller(c), restaurantID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, orders)
}

// GetManagedOrders returns in-flight orders the caller handles
func (h *Handler) GetManagedOrders(c *gin.Context) {
	orders, err := h.Orders.Managed(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, orders)
}

// ListOrders returns the orders in the caller's scope, optionally by status
func (h *Handler) ListOrders(c *gin.Context) {
	restaurantID, ok := optionalID(c, "restaurantId", "restaurant_id")
	if !ok {
		return
	}
	orders, err := h.Orders.List(c.Request.Context(), caller(c), restaurantID, models.OrderStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}

	// Group counts by status for the dashboard header.
	summary := map[models.OrderStatus]int{}
	for _, o := range orders {
		summary[o.Status]++
	}
	resp.OK(c, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

func (h *Handler) AcceptOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Accept(c.Request.Context(), caller(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, o)
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req RejectRequest
	// The body is optional.
	_ = c.ShouldBindJSON(&req)
	o, err := h.Orders.Reject(c.Request.Context(), caller(c), id, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, o)
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus moves an order forward through the kitchen pipeline
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.Orders.UpdateStatus(c.Request.Context(), caller(c), id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, o)
}
