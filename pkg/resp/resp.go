// Package resp writes the JSON envelope shared by every endpoint:
// {"success": bool, "data": ..., "error": "..."}.
package resp

import (
	"errors"
	"net/http"

	"food-ordering-api/repository"
	"food-ordering-api/services"
	"food-ordering-api/upload"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// StockDetails is attached to insufficient-stock conflicts so the client can
// correct the order and retry.
type StockDetails struct {
	FoodID    uint   `json:"food_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Error: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{Error: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Envelope{Error: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusNotFound, Envelope{Error: msg})
}

// Status maps a service error onto an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, upload.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Error writes err with its mapped status. Internal errors are logged and
// reported without detail.
func Error(c *gin.Context, log *zap.Logger, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.Error(err))
		c.AbortWithStatusJSON(status, Envelope{Error: "internal server error"})
		return
	}

	body := Envelope{Error: err.Error()}
	var stock *services.InsufficientStockError
	if errors.As(err, &stock) {
		body.Details = StockDetails{
			FoodID:    stock.FoodID,
			Name:      stock.Name,
			Requested: stock.Requested,
			Available: stock.Available,
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"
