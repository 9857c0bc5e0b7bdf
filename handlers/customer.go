package handlers

import (
	"food-ordering-api/pkg/resp"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// PlaceOrder creates an order for the authenticated customer
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.Orders.Place(c.Request.Context(), caller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Created(c, o)
}

// GetCustomerOrders lists a customer's orders
func (h *Handler) GetCustomerOrders(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	orders, err := h.Orders.ForCustomer(c.Request.Context(), caller(c), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, orders)
}

// GetOrder returns an order with its items, people and status history
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, o)
}

type RateOrderRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review"`
}

// RateOrder records the customer's rating of a delivered order
func (h *Handler) RateOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req RateOrderRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.Orders.Rate(c.Request.Context(), caller(c), id, req.Rating, req.Review)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, o)
}

// DeleteOrder hard-deletes an order; restaurant admins and super-admins only
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Orders.Delete(c.Request.Context(), caller(c), id); err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, gin.H{"message": "Order deleted"})
}
