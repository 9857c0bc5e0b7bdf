package handlers

import (
	"food-ordering-api/pkg/resp"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// CreateFood adds a food to the caller's restaurant
func (h *Handler) CreateFood(c *gin.Context) {
	var req services.CreateFoodRequest
	if !bind(c, &req) {
		return
	}
	f, err := h.Catalog.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Created(c, f)
}

// UpdateFood edits a food of the caller's restaurant
func (h *Handler) UpdateFood(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateFoodRequest
	if !bind(c, &req) {
		return
	}
	f, err := h.Catalog.Update(c.Request.Context(), caller(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, f)
}

func (h *Handler) DeleteFood(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.Delete(c.Request.Context(), caller(c), id); err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, gin.H{"message": "Food deleted"})
}
