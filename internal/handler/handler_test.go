package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/smart-billing/internal/domain/checkout"
	"github.com/xenking/smart-billing/internal/domain/customer"
	"github.com/xenking/smart-billing/internal/domain/order"
	"github.com/xenking/smart-billing/internal/domain/product"
)

// --- In-memory fakes ---

type fakeProductRepo struct {
	seq  int
	byID map[string]product.Product
}

func newFakeProductRepo(products ...product.Product) *fakeProductRepo {
	r := &fakeProductRepo{byID: make(map[string]product.Product)}
	for _, p := range products {
		r.byID[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(_ context.Context, p *product.Product) error {
	r.seq++
	p.ID = fmt.Sprintf("prod_%d", r.seq)
	r.byID[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *product.Product) error {
	if _, ok := r.byID[p.ID]; !ok {
		return product.ErrNotFound
	}
	r.byID[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type fakeCustomerRepo struct {
	seq  int
	byID map[string]customer.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{byID: make(map[string]customer.Customer)}
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *customer.Customer) error {
	for _, existing := range r.byID {
		if existing.Email == c.Email {
			return customer.ErrDuplicateEmail
		}
	}
	r.seq++
	c.ID = fmt.Sprintf("cust_%d", r.seq)
	r.byID[c.ID] = *c
	return nil
}

func (r *fakeCustomerRepo) List(_ context.Context) ([]customer.Customer, error) {
	out := make([]customer.Customer, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

// fakeLedger validates and decrements stock held by the product repo,
// mirroring the transactional repository: on any failure nothing changes.
type fakeLedger struct {
	products *fakeProductRepo
	orders   map[string]order.Order
	lines    map[string][]order.Line
}

func newFakeLedger(products *fakeProductRepo) *fakeLedger {
	return &fakeLedger{
		products: products,
		orders:   make(map[string]order.Order),
		lines:    make(map[string][]order.Line),
	}
}

func (l *fakeLedger) Checkout(_ context.Context, o *order.Order, lines []order.Line) error {
	for _, line := range lines {
		p, ok := l.products.byID[line.ProductID]
		if !ok {
			return &order.ProductNotFoundError{ProductID: line.ProductID}
		}
		if p.Quantity < line.Quantity {
			return &order.InsufficientStockError{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Available:   p.Quantity,
			}
		}
	}
	for _, line := range lines {
		p := l.products.byID[line.ProductID]
		p.Quantity -= line.Quantity
		l.products.byID[line.ProductID] = p
	}
	l.orders[o.ID] = *o
	l.lines[o.ID] = lines
	return nil
}

func (l *fakeLedger) List(_ context.Context) ([]order.Order, error) {
	out := make([]order.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o)
	}
	return out, nil
}

func (l *fakeLedger) GetByID(_ context.Context, id string) (*order.Order, []order.Line, error) {
	o, ok := l.orders[id]
	if !ok {
		return nil, nil, order.ErrNotFound
	}
	return &o, l.lines[id], nil
}

type fakeSender struct {
	calls int
	err   error
}

func (s *fakeSender) Send(_ context.Context, _, _, _ string, _ []byte, _ string) error {
	s.calls++
	return s.err
}

// --- Helpers ---

type testEnv struct {
	products *fakeProductRepo
	ledger   *fakeLedger
	sender   *fakeSender
	server   http.Handler
}

func newTestEnv(products ...product.Product) *testEnv {
	productRepo := newFakeProductRepo(products...)
	ledger := newFakeLedger(productRepo)
	sender := &fakeSender{}
	h := New(productRepo, newFakeCustomerRepo(), ledger, checkout.NewService(ledger, sender))
	return &testEnv{
		products: productRepo,
		ledger:   ledger,
		sender:   sender,
		server:   h.Routes(),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func checkoutBody(productID string, qty int) map[string]any {
	price := decimal.NewFromInt(10)
	total := price.Mul(decimal.NewFromInt(int64(qty)))
	return map[string]any{
		"customer": map[string]any{
			"id":    "cust_1",
			"name":  "Jane Doe",
			"phone": "555-0101",
			"email": "jane@example.com",
		},
		"items": []map[string]any{
			{"id": productID, "name": "Widget", "price": 10.00, "billedQuantity": qty},
		},
		"total": total.InexactFloat64(),
		"date":  "2025-03-14",
		"time":  "15:04:05",
	}
}

// --- Product endpoints ---

func TestCreateProduct(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/products/", map[string]any{
		"name":     "Widget",
		"price":    10.50,
		"quantity": 5,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeBody[productResponse](t, w)
	assert.True(t, strings.HasPrefix(resp.ID, "prod_"))
	assert.Equal(t, "Widget", resp.Name)
	assert.Equal(t, 10.50, resp.Price)
	assert.Equal(t, 5, resp.Quantity)
}

func TestCreateProduct_MissingName(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/products/", map[string]any{
		"price":    10.50,
		"quantity": 5,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, "validation_error", resp.Code)
}

func TestCreateProduct_NegativePrice(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/products/", map[string]any{
		"name":     "Widget",
		"price":    -1,
		"quantity": 5,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/products/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, "not_found", resp.Code)
}

func TestUpdateProduct(t *testing.T) {
	env := newTestEnv(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	w := env.do(t, http.MethodPut, "/products/p1", map[string]any{
		"name":     "Widget v2",
		"price":    12.00,
		"quantity": 7,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Widget v2", env.products.byID["p1"].Name)
	assert.Equal(t, 7, env.products.byID["p1"].Quantity)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPut, "/products/missing", map[string]any{
		"name":     "Widget",
		"price":    1.00,
		"quantity": 1,
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	w := env.do(t, http.MethodDelete, "/products/p1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/products/p1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Customer endpoints ---

func TestCreateCustomer(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/customers/", map[string]any{
		"name":  "Jane Doe",
		"phone": "555-0101",
		"email": "jane@example.com",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeBody[customerResponse](t, w)
	assert.True(t, strings.HasPrefix(resp.ID, "cust_"))
	assert.Equal(t, "jane@example.com", resp.Email)
}

func TestCreateCustomer_DuplicateEmail(t *testing.T) {
	env := newTestEnv()

	body := map[string]any{
		"name":  "Jane Doe",
		"phone": "555-0101",
		"email": "jane@example.com",
	}
	w := env.do(t, http.MethodPost, "/customers/", body)
	require.Equal(t, http.StatusCreated, w.Code)

	// Second create with the same email conflicts; the first remains.
	w = env.do(t, http.MethodPost, "/customers/", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, "conflict", resp.Code)

	w = env.do(t, http.MethodGet, "/customers/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	customers := decodeBody[[]customerResponse](t, w)
	assert.Len(t, customers, 1)
}

func TestCreateCustomer_InvalidEmail(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/customers/", map[string]any{
		"name":  "Jane Doe",
		"email": "not-an-address",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Checkout ---

func TestCheckout_Success(t *testing.T) {
	env := newTestEnv(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	w := env.do(t, http.MethodPost, "/checkout", checkoutBody("p1", 2))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[checkoutResponse](t, w)
	assert.True(t, strings.HasPrefix(resp.OrderID, "order_"))

	// Stock decremented, order recorded, invoice mailed.
	assert.Equal(t, 3, env.products.byID["p1"].Quantity)
	assert.Len(t, env.ledger.orders, 1)
	assert.Equal(t, 1, env.sender.calls)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	env := newTestEnv(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	w := env.do(t, http.MethodPost, "/checkout", checkoutBody("p1", 10))

	require.Equal(t, http.StatusConflict, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, "insufficient_stock", resp.Code)
	require.NotNil(t, resp.Available)
	assert.Equal(t, 5, *resp.Available)

	// Nothing changed.
	assert.Equal(t, 5, env.products.byID["p1"].Quantity)
	assert.Empty(t, env.ledger.orders)
	assert.Zero(t, env.sender.calls)
}

func TestCheckout_UnknownProduct(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/checkout", checkoutBody("missing", 1))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, env.ledger.orders)
}

func TestCheckout_EmptyItems(t *testing.T) {
	env := newTestEnv()

	body := checkoutBody("p1", 1)
	body["items"] = []map[string]any{}
	w := env.do(t, http.MethodPost, "/checkout", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout_ZeroQuantity(t *testing.T) {
	env := newTestEnv(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	w := env.do(t, http.MethodPost, "/checkout", checkoutBody("p1", 0))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 5, env.products.byID["p1"].Quantity)
}

func TestCheckout_DeliveryFailure(t *testing.T) {
	env := newTestEnv(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 5,
	})
	env.sender.err = errors.New("relay unreachable")

	w := env.do(t, http.MethodPost, "/checkout", checkoutBody("p1", 2))

	// The sale committed; the caller gets the order id with the failure.
	require.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, "delivery_failed", resp.Code)
	assert.True(t, strings.HasPrefix(resp.OrderID, "order_"))

	assert.Equal(t, 3, env.products.byID["p1"].Quantity)
	assert.Len(t, env.ledger.orders, 1)
}

// --- Orders ---

func TestGetOrder(t *testing.T) {
	env := newTestEnv(product.Product{
		ID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	w := env.do(t, http.MethodPost, "/checkout", checkoutBody("p1", 2))
	require.Equal(t, http.StatusOK, w.Code)
	placed := decodeBody[checkoutResponse](t, w)

	w = env.do(t, http.MethodGet, "/orders/"+placed.OrderID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[orderResponse](t, w)
	assert.Equal(t, placed.OrderID, resp.ID)
	assert.Equal(t, 20.0, resp.Total)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "p1", resp.Lines[0].ProductID)
	assert.Equal(t, 2, resp.Lines[0].Quantity)
	assert.Equal(t, 10.0, resp.Lines[0].PriceAtSale)
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
