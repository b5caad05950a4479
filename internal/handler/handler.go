// Package handler exposes the billing API over HTTP. Request decoding,
// field validation, and the mapping from domain errors to the caller-facing
// taxonomy all live here; business logic stays in the domain packages.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/smart-billing/internal/domain/checkout"
	"github.com/xenking/smart-billing/internal/domain/customer"
	"github.com/xenking/smart-billing/internal/domain/order"
	"github.com/xenking/smart-billing/internal/domain/product"
)

// Handler serves the catalog, customer, order, and checkout endpoints.
type Handler struct {
	products  product.Repository
	customers customer.Repository
	orders    order.Ledger
	checkout  *checkout.Service
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	customers customer.Repository,
	orders order.Ledger,
	checkoutSvc *checkout.Service,
) *Handler {
	return &Handler{
		products:  products,
		customers: customers,
		orders:    orders,
		checkout:  checkoutSvc,
	}
}

// Routes returns the chi router for all API endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
	})

	r.Post("/checkout", h.Checkout)

	return r
}

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// OrderID is set only for delivery failures, where the sale has already
	// committed and the caller needs the recorded order identifier.
	OrderID string `json:"order_id,omitempty"`
	// Available is set only for insufficient-stock errors.
	Available *int `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeDomainError translates domain errors into the HTTP error taxonomy:
// validation 400, not-found 404, conflict/insufficient-stock 409,
// committed-but-undelivered 502, everything else 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty  *checkout.InvalidQuantityError
		duplicate   *checkout.DuplicateItemError
		notFound    *order.ProductNotFoundError
		noStock     *order.InsufficientStockError
		undelivered *checkout.DeliveryError
	)

	switch {
	case errors.Is(err, checkout.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "validation_error", "items required")
	case errors.As(err, &invalidQty):
		writeError(w, http.StatusBadRequest, "validation_error", invalidQty.Error())
	case errors.As(err, &duplicate):
		writeError(w, http.StatusBadRequest, "validation_error", duplicate.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "not_found", notFound.Error())
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, customer.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "customer not found")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.As(err, &noStock):
		writeJSON(w, http.StatusConflict, errorResponse{
			Code:      "insufficient_stock",
			Message:   noStock.Error(),
			Available: &noStock.Available,
		})
	case errors.Is(err, customer.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "conflict", "customer with this email already exists")
	case errors.As(err, &undelivered):
		// The sale is final; only the notification failed.
		zctx.From(r.Context()).Error("Invoice delivery failed",
			zap.String("order_id", undelivered.OrderID),
			zap.Error(undelivered.Err),
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Code:    "delivery_failed",
			Message: "order recorded but invoice email could not be sent",
			OrderID: undelivered.OrderID,
		})
	default:
		zctx.From(r.Context()).Error("Internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
