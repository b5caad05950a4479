package checkout

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/smart-billing/internal/domain/order"
)

// --- Mock implementations ---

type mockLedger struct {
	lastOrder *order.Order
	lastLines []order.Line
	err       error
}

func (m *mockLedger) Checkout(_ context.Context, o *order.Order, lines []order.Line) error {
	if m.err != nil {
		return m.err
	}
	m.lastOrder = o
	m.lastLines = lines
	return nil
}

func (m *mockLedger) List(_ context.Context) ([]order.Order, error) {
	return nil, nil
}

func (m *mockLedger) GetByID(_ context.Context, _ string) (*order.Order, []order.Line, error) {
	return nil, nil, order.ErrNotFound
}

type mockSender struct {
	recipient  string
	subject    string
	body       string
	attachment []byte
	filename   string
	calls      int
	err        error
}

func (m *mockSender) Send(_ context.Context, recipient, subject, body string, attachment []byte, filename string) error {
	m.calls++
	m.recipient = recipient
	m.subject = subject
	m.body = body
	m.attachment = attachment
	m.filename = filename
	return m.err
}

// --- Helpers ---

func validRequest() Request {
	return Request{
		Customer: Customer{
			ID:    "cust_1",
			Name:  "Jane Doe",
			Phone: "555-0101",
			Email: "jane@example.com",
		},
		Items: []Item{
			{ProductID: "p1", Name: "Widget", Price: decimal.RequireFromString("10.00"), Quantity: 2},
			{ProductID: "p2", Name: "Gadget", Price: decimal.RequireFromString("20.00"), Quantity: 1},
		},
		Total: decimal.RequireFromString("40.00"),
		Date:  "2025-03-14",
		Time:  "15:04:05",
	}
}

// --- Tests ---

func TestCheckout_EmptyItems(t *testing.T) {
	svc := NewService(&mockLedger{}, &mockSender{})

	_, err := svc.Checkout(context.Background(), Request{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCheckout_InvalidQuantity(t *testing.T) {
	svc := NewService(&mockLedger{}, &mockSender{})

	req := validRequest()
	req.Items[1].Quantity = 0
	_, err := svc.Checkout(context.Background(), req)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p2", iqErr.ProductID)
}

func TestCheckout_DuplicateItem(t *testing.T) {
	svc := NewService(&mockLedger{}, &mockSender{})

	req := validRequest()
	req.Items[1].ProductID = "p1"
	_, err := svc.Checkout(context.Background(), req)

	var dupErr *DuplicateItemError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "p1", dupErr.ProductID)
}

func TestCheckout_ProductNotFound(t *testing.T) {
	ledger := &mockLedger{err: &order.ProductNotFoundError{ProductID: "p1"}}
	sender := &mockSender{}
	svc := NewService(ledger, sender)

	_, err := svc.Checkout(context.Background(), validRequest())

	var pnfErr *order.ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "p1", pnfErr.ProductID)
	assert.Zero(t, sender.calls, "no invoice may be sent for a failed sale")
}

func TestCheckout_InsufficientStock(t *testing.T) {
	ledger := &mockLedger{err: &order.InsufficientStockError{
		ProductID:   "p1",
		ProductName: "Widget",
		Available:   5,
	}}
	sender := &mockSender{}
	svc := NewService(ledger, sender)

	_, err := svc.Checkout(context.Background(), validRequest())

	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)
	assert.Zero(t, sender.calls)
}

func TestCheckout_Success(t *testing.T) {
	ledger := &mockLedger{}
	sender := &mockSender{}
	svc := NewService(ledger, sender)

	result, err := svc.Checkout(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.OrderID, "order_"))

	// Order header snapshots the customer and total.
	require.NotNil(t, ledger.lastOrder)
	assert.Equal(t, result.OrderID, ledger.lastOrder.ID)
	assert.Equal(t, "cust_1", ledger.lastOrder.CustomerID)
	assert.Equal(t, "Jane Doe", ledger.lastOrder.CustomerName)
	assert.Equal(t, "jane@example.com", ledger.lastOrder.CustomerEmail)
	assert.True(t, decimal.RequireFromString("40.00").Equal(ledger.lastOrder.Total))
	assert.Equal(t, "2025-03-14", ledger.lastOrder.Date)
	assert.Equal(t, "15:04:05", ledger.lastOrder.Time)

	// Lines snapshot product name and price at sale time.
	require.Len(t, ledger.lastLines, 2)
	assert.Equal(t, "Widget", ledger.lastLines[0].ProductName)
	assert.True(t, decimal.RequireFromString("10.00").Equal(ledger.lastLines[0].PriceAtSale))
	assert.Equal(t, 2, ledger.lastLines[0].Quantity)

	// Invoice was rendered and mailed to the customer.
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "jane@example.com", sender.recipient)
	assert.Contains(t, sender.subject, result.OrderID)
	assert.True(t, bytes.HasPrefix(sender.attachment, []byte("%PDF")))
	assert.True(t, strings.HasPrefix(sender.filename, "Invoice_Jane_Doe_"))
	assert.True(t, strings.HasSuffix(sender.filename, ".pdf"))
}

func TestCheckout_LedgerError(t *testing.T) {
	ledger := &mockLedger{err: errors.New("db write failed")}
	sender := &mockSender{}
	svc := NewService(ledger, sender)

	_, err := svc.Checkout(context.Background(), validRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout")
	assert.Zero(t, sender.calls)
}

func TestCheckout_DeliveryFailure(t *testing.T) {
	ledger := &mockLedger{}
	sender := &mockSender{err: errors.New("relay unreachable")}
	svc := NewService(ledger, sender)

	_, err := svc.Checkout(context.Background(), validRequest())

	// The sale is committed; only the notification failed.
	var dErr *DeliveryError
	require.ErrorAs(t, err, &dErr)
	require.NotNil(t, ledger.lastOrder)
	assert.Equal(t, ledger.lastOrder.ID, dErr.OrderID)
}

func TestCheckout_TotalRounded(t *testing.T) {
	ledger := &mockLedger{}
	svc := NewService(ledger, &mockSender{})

	req := validRequest()
	req.Total = decimal.RequireFromString("40.005")
	_, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "40.01", ledger.lastOrder.Total.StringFixed(2))
}
