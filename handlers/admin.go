package handlers

import (
	"food-ordering-api/models"
	"food-ordering-api/pkg/resp"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// GetStats returns the dashboard figures in the caller's scope
func (h *Handler) GetStats(c *gin.Context) {
	restaurantID, ok := optionalID(c, "restaurantId", "restaurant_id")
	if !ok {
		return
	}
	stats, err := h.Dashboard.Stats(c.Request.Context(), caller(c), restaurantID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, stats)
}

// GetPerformance returns the last seven days of orders and revenue
func (h *Handler) GetPerformance(c *gin.Context) {
	restaurantID, ok := optionalID(c, "restaurantId", "restaurant_id")
	if !ok {
		return
	}
	series, err := h.Dashboard.Performance(c.Request.Context(), caller(c), restaurantID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, series)
}

func (h *Handler) GetTopRestaurants(c *gin.Context) {
	top, err := h.Dashboard.TopRestaurants(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, top)
}

func (h *Handler) GetRestaurantsWithStats(c *gin.Context) {
	rows, err := h.Dashboard.RestaurantsWithStats(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, rows)
}

// GetMyRestaurant returns the restaurant the caller works for
func (h *Handler) GetMyRestaurant(c *gin.Context) {
	r, err := h.Tenants.Mine(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, r)
}

// CreateRestaurant adds a restaurant, optionally with its first admin
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req services.CreateRestaurantRequest
	if !bind(c, &req) {
		return
	}
	r, admin, err := h.Tenants.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Created(c, gin.H{"restaurant": r, "admin": admin})
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateRestaurantRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.Tenants.Update(c.Request.Context(), caller(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, r)
}

func (h *Handler) DeleteRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Tenants.Delete(c.Request.Context(), caller(c), id); err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, gin.H{"message": "Restaurant deleted successfully"})
}

// CreateStaff adds a staff, delivery or admin account
func (h *Handler) CreateStaff(c *gin.Context) {
	var req services.CreateStaffRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.Accounts.CreateStaff(c.Request.Context(), caller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Created(c, u)
}

func (h *Handler) ListStaff(c *gin.Context) {
	restaurantID, ok := optionalID(c, "restaurantId", "restaurant_id")
	if !ok {
		return
	}
	users, err := h.Accounts.ListStaff(c.Request.Context(), caller(c), restaurantID, models.UserRole(c.Query("role")))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, users)
}

func (h *Handler) DeleteStaff(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Accounts.DeleteStaff(c.Request.Context(), caller(c), id); err != nil {
		h.fail(c, err)
		return
	}
	resp.OK(c, gin.H{"message": "Staff member deleted"})
}
