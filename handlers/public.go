package handlers

import (
	"net/http"

	"food-ordering-api/models"
	"food-ordering-api/pkg/resp"
	"food-ordering-api/repository"
	"food-ordering-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListFoods returns the menu, optionally for one restaurant (public)
func (h *Handler) ListFoods(c *gin.Context) {
	restaurantID, ok := optionalID(c, "restaurantId", "restaurant_id")
	if !ok {
		return
	}
	foods, err := h.Catalog.List(c.Request.Context(), repository.FoodFilter{
		RestaurantID: restaurantID,
		Category:     c.Query("category"),
		PopularOnly:  c.Query("popular") == "true",
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, foods)
}

// GetFood returns a single food (public)
func (h *Handler) GetFood(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	f, err := h.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, f)
}

// ListRestaurants returns every restaurant (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	rests, err := h.Tenants.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, rests)
}

// GetRestaurant returns a single restaurant (public)
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r, err := h.Tenants.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, r)
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	resp.OK(c, gin.H{
		"transitions":        statemachine.GetAllTransitions(),
		"terminal_states":    []models.OrderStatus{models.StatusDelivered, models.StatusRejected, models.StatusCancelled},
		"update_targets":     statemachine.AdvanceTargets,
		"claimable_statuses": statemachine.ClaimableStatuses,
		"description":        "Restaurant order lifecycle",
	})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "food-ordering-api"})
}
