package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/smart-billing/internal/domain/order"
)

const (
	// FOR UPDATE serializes concurrent checkouts touching the same product:
	// the second transaction blocks on the row lock until the first commits,
	// then revalidates against the decremented quantity.
	lockProductSQL = `SELECT quantity FROM products WHERE id = $1 FOR UPDATE`

	decrementStockSQL = `UPDATE products SET quantity = quantity - $2 WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (id, customer_id, customer_name, customer_email, total_amount, order_date, order_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertOrderLineSQL = `INSERT INTO order_lines (order_id, product_id, product_name, price_at_sale, quantity)
		VALUES ($1, $2, $3, $4, $5)`

	listOrdersSQL = `SELECT id, customer_id, customer_name, customer_email, total_amount, order_date, order_time, created_at
		FROM orders ORDER BY created_at DESC`

	getOrderByIDSQL = `SELECT id, customer_id, customer_name, customer_email, total_amount, order_date, order_time, created_at
		FROM orders WHERE id = $1`

	getOrderLinesSQL = `SELECT product_id, product_name, price_at_sale, quantity
		FROM order_lines WHERE order_id = $1 ORDER BY product_id`
)

var _ order.Ledger = (*OrderRepository)(nil)

// OrderRepository implements order.Ledger backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Checkout validates and decrements stock for every line, then appends the
// order and its lines, all in one transaction. Every referenced product row
// is locked before any quantity changes, so a failure on any line rolls the
// whole sale back with no partial decrements.
func (r *OrderRepository) Checkout(ctx context.Context, o *order.Order, lines []order.Line) error {
	// Locks are always acquired in product id order, so two checkouts
	// touching the same products cannot deadlock on each other.
	sorted := make([]order.Line, len(lines))
	copy(sorted, lines)
	slices.SortFunc(sorted, func(a, b order.Line) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock and validate the full line list before touching any stock.
		for _, line := range sorted {
			var available int
			err := tx.QueryRow(ctx, lockProductSQL, line.ProductID).Scan(&available)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return &order.ProductNotFoundError{ProductID: line.ProductID}
				}
				return fmt.Errorf("locking product %q: %w", line.ProductID, err)
			}
			if available < line.Quantity {
				return &order.InsufficientStockError{
					ProductID:   line.ProductID,
					ProductName: line.ProductName,
					Available:   available,
				}
			}
		}

		for _, line := range sorted {
			if _, err := tx.Exec(ctx, decrementStockSQL, line.ProductID, line.Quantity); err != nil {
				return fmt.Errorf("decrementing stock for %q: %w", line.ProductID, err)
			}
		}

		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.CustomerID, o.CustomerName, o.CustomerEmail, o.Total, o.Date, o.Time,
		); err != nil {
			return fmt.Errorf("inserting order %q: %w", o.ID, err)
		}

		for _, line := range lines {
			if _, err := tx.Exec(ctx, insertOrderLineSQL,
				o.ID, line.ProductID, line.ProductName, line.PriceAtSale, line.Quantity,
			); err != nil {
				return fmt.Errorf("inserting order line %q/%q: %w", o.ID, line.ProductID, err)
			}
		}
		return nil
	})
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetByID returns a single order and its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, []order.Line, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, order.ErrNotFound
		}
		return nil, nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	lineRows, err := r.pool.Query(ctx, getOrderLinesSQL, id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting order lines %q: %w", id, err)
	}
	lines, err := pgx.CollectRows(lineRows, scanOrderLine)
	if err != nil {
		return nil, nil, fmt.Errorf("getting order lines %q: %w", id, err)
	}

	return &o, lines, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &o.CustomerEmail,
		&o.Total, &o.Date, &o.Time, &o.CreatedAt,
	)
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(&l.ProductID, &l.ProductName, &l.PriceAtSale, &l.Quantity)
	return l, err
}
