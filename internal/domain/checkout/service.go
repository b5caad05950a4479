// Package checkout orchestrates the sale workflow: stock validation and
// decrement, order recording, invoice rendering, and email delivery.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/smart-billing/internal/domain/order"
	"github.com/xenking/smart-billing/internal/invoice"
)

// Sentinel errors for checkout validation.
var ErrEmptyItems = errors.New("items required")

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// DuplicateItemError indicates the same product appears in more than one
// line of a single checkout request.
type DuplicateItemError struct {
	ProductID string
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("product %s appears more than once", e.ProductID)
}

// DeliveryError reports that the sale committed but the invoice email could
// not be sent. The order id identifies the already-recorded sale.
type DeliveryError struct {
	OrderID string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("order %s committed but invoice delivery failed: %v", e.OrderID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Customer identifies the buyer. The fields are snapshotted into the order
// header and printed on the invoice.
type Customer struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// Item is one product/quantity pair within a checkout request. Name and
// price are the values shown to the buyer at sale time and are recorded
// as-is on the order line.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// Request holds the input for a checkout.
type Request struct {
	Customer Customer
	Items    []Item
	Total    decimal.Decimal
	Date     string
	Time     string
}

// Result holds the outcome of a committed checkout.
type Result struct {
	OrderID string
}

// Sender delivers a rendered invoice to the customer. Implementations talk
// to an external mail relay and are expected to have variable latency, so
// the service only calls Send after the sale transaction has committed.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string, attachment []byte, filename string) error
}

const mailBody = "Dear Customer,\n\n" +
	"Thank you for your recent purchase from Smart Billing. " +
	"Please find your detailed invoice attached.\n\n" +
	"We appreciate your business!\n\n" +
	"Sincerely,\nYour Shop Team"

// Service encapsulates the checkout business logic.
type Service struct {
	ledger order.Ledger
	sender Sender
	now    func() time.Time
}

// NewService creates a checkout Service with the required dependencies.
func NewService(ledger order.Ledger, sender Sender) *Service {
	return &Service{
		ledger: ledger,
		sender: sender,
		now:    time.Now,
	}
}

// Checkout validates the request, atomically decrements stock and records
// the order, then renders the invoice and emails it to the customer.
//
// Stock validation and the order insert happen inside a single ledger
// transaction: if any line references a missing product or exceeds the
// available quantity, nothing is persisted. Rendering and delivery run
// after commit; a delivery failure is reported as *DeliveryError carrying
// the committed order id, and never rolls back the sale.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, &DuplicateItemError{ProductID: item.ProductID}
		}
		seen[item.ProductID] = struct{}{}
	}

	o := &order.Order{
		ID:            "order_" + uuid.New().String(),
		CustomerID:    req.Customer.ID,
		CustomerName:  req.Customer.Name,
		CustomerEmail: req.Customer.Email,
		Total:         req.Total.Round(2),
		Date:          req.Date,
		Time:          req.Time,
	}

	lines := make([]order.Line, len(req.Items))
	for i, item := range req.Items {
		lines[i] = order.Line{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			PriceAtSale: item.Price,
			Quantity:    item.Quantity,
		}
	}

	if err := s.ledger.Checkout(ctx, o, lines); err != nil {
		return nil, errors.Wrap(err, "checkout")
	}

	zctx.From(ctx).Info("Order committed",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.String("total", o.Total.StringFixed(2)),
	)

	if err := s.deliver(ctx, req, o, lines); err != nil {
		return nil, &DeliveryError{OrderID: o.ID, Err: err}
	}

	return &Result{OrderID: o.ID}, nil
}

// deliver renders the invoice PDF and sends it to the customer's address.
func (s *Service) deliver(ctx context.Context, req Request, o *order.Order, lines []order.Line) error {
	pdf, err := invoice.Render(invoice.Data{
		CustomerName:  req.Customer.Name,
		CustomerPhone: req.Customer.Phone,
		CustomerEmail: req.Customer.Email,
		Lines:         lines,
		Total:         o.Total,
		Date:          req.Date,
		Time:          req.Time,
	})
	if err != nil {
		return errors.Wrap(err, "render invoice")
	}

	subject := fmt.Sprintf("Your Purchase Receipt from Smart Billing - Invoice #%s", o.ID)
	filename := fmt.Sprintf("Invoice_%s_%s.pdf",
		strings.ReplaceAll(req.Customer.Name, " ", "_"),
		s.now().Format("2006-01-02"),
	)

	if err := s.sender.Send(ctx, req.Customer.Email, subject, mailBody, pdf, filename); err != nil {
		return errors.Wrap(err, "send invoice")
	}
	return nil
}
