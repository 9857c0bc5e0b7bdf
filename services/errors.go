package services

import (
	"errors"
	"fmt"

	"food-ordering-api/access"
	"food-ordering-api/models"
	"food-ordering-api/repository"
	"food-ordering-api/statemachine"
)

// Error taxonomy shared by every service. Handlers map these onto HTTP
// statuses with errors.Is; everything else is an internal error.
var (
	ErrValidation        = models.ErrInvalid
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = access.ErrForbidden
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = statemachine.ErrInvalidTransition
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// InsufficientStockError reports the food that could not cover an order.
// It matches ErrConflict.
type InsufficientStockError struct {
	FoodID    uint
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrConflict
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrForbidden}, args...)...)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// lookup turns a repository miss into ErrNotFound naming the entity.
func lookup(err error, what string, id uint) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}
