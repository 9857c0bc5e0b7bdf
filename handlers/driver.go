package handlers

import (
	"food-ordering-api/pkg/resp"

	"github.com/gin-gonic/gin"
)

type AgreeDeliveryRequest struct {
	DeliveryID *uint `json:"delivery_id"`
}

// AgreeDelivery assigns the order's delivery handler; the status is unchanged
func (h *Handler) AgreeDelivery(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AgreeDeliveryRequest
	_ = c.ShouldBindJSON(&req)
	o, err := h.Orders.AgreeDelivery(c.Request.Context(), caller(c), id, req.DeliveryID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, o)
}

// RejectDelivery frees the order for another delivery agent
func (h *Handler) RejectDelivery(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req RejectRequest
	_ = c.ShouldBindJSON(&req)
	o, err := h.Orders.RejectDelivery(c.Request.Context(), caller(c), id, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, o)
}
