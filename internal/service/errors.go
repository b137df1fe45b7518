package service

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pharmacrm/internal/repository"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnknownEvent       = errors.New("unknown webhook event")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Re-exported so callers only need this package for errors.Is checks.
	ErrNotFound  = repository.ErrNotFound
	ErrDuplicate = repository.ErrDuplicate
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InsufficientStockError rejects an order line or decrement that asks for
// more than is on hand.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.label(), e.Available, e.Requested)
}

func (e InsufficientStockError) label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ProductID
}

type ProductNotFoundError struct {
	ProductID string
}

func (e ProductNotFoundError) Error() string {
	return "product not found: " + e.ProductID
}

// ParseID parses a hex object id, reporting malformed ids as invalid input.
func ParseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, invalidInput("invalid id %q", raw)
	}
	return id, nil
}
