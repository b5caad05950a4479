package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is the header of a completed sale. Customer fields are snapshotted
// at sale time so later edits to the customer never alter history.
type Order struct {
	ID            string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Total         decimal.Decimal
	Date          string
	Time          string
	CreatedAt     time.Time
}

// Line is a single billed product within an order. Name and price are
// snapshotted at sale time. Keyed by (order id, product id).
type Line struct {
	ProductID   string
	ProductName string
	PriceAtSale decimal.Decimal
	Quantity    int
}

// InsufficientStockError indicates a line requested more units than the
// product has on hand at the moment the checkout transaction evaluated it.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough quantity for product %s: available %d", e.ProductName, e.Available)
}

// ProductNotFoundError indicates a line referenced a product that does not
// exist in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Ledger defines the append-only order history plus the atomic checkout
// write. Checkout must validate stock, decrement it, and persist the order
// with all lines in a single transaction: any failure leaves both the
// catalog and the ledger untouched.
type Ledger interface {
	Checkout(ctx context.Context, o *Order, lines []Line) error
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, []Line, error)
}
