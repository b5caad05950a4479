package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// Sentinel errors for customer persistence.
var (
	// ErrNotFound is returned when a requested customer does not exist.
	ErrNotFound = errors.New("customer not found")
	// ErrDuplicateEmail is returned when a customer with the same email
	// address already exists.
	ErrDuplicateEmail = errors.New("customer email already exists")
)

// Customer represents a registered buyer. Customers are immutable once
// created.
type Customer struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// Repository defines persistence operations for the customer registry.
// Create assigns the generated identifier to the passed customer.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	List(ctx context.Context) ([]Customer, error)
	GetByID(ctx context.Context, id string) (*Customer, error)
}
