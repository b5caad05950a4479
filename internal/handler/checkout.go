package handler

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/smart-billing/internal/domain/checkout"
)

type checkoutCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type checkoutItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	BilledQuantity int             `json:"billedQuantity"`
}

type checkoutRequest struct {
	Customer checkoutCustomer `json:"customer"`
	Items    []checkoutItem   `json:"items"`
	Total    decimal.Decimal  `json:"total"`
	Date     string           `json:"date"`
	Time     string           `json:"time"`
}

type checkoutResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

func (req *checkoutRequest) validate() string {
	switch {
	case req.Customer.ID == "":
		return "customer.id is required"
	case req.Customer.Name == "":
		return "customer.name is required"
	case req.Customer.Email == "":
		return "customer.email is required"
	case len(req.Items) == 0:
		return "items must not be empty"
	case req.Total.IsNegative():
		return "total must not be negative"
	case req.Date == "":
		return "date is required"
	case req.Time == "":
		return "time is required"
	}
	for i, item := range req.Items {
		if item.ID == "" {
			return fmt.Sprintf("items[%d].id is required", i)
		}
		if item.Name == "" {
			return fmt.Sprintf("items[%d].name is required", i)
		}
		if item.Price.IsNegative() {
			return fmt.Sprintf("items[%d].price must not be negative", i)
		}
	}
	return ""
}

// Checkout handles POST /checkout: atomically decrements stock, records the
// order, then renders and emails the invoice.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}

	items := make([]checkout.Item, len(req.Items))
	for i, item := range req.Items {
		items[i] = checkout.Item{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.BilledQuantity,
		}
	}

	result, err := h.checkout.Checkout(r.Context(), checkout.Request{
		Customer: checkout.Customer{
			ID:    req.Customer.ID,
			Name:  req.Customer.Name,
			Phone: req.Customer.Phone,
			Email: req.Customer.Email,
		},
		Items: items,
		Total: req.Total,
		Date:  req.Date,
		Time:  req.Time,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Message: "Bill generated, inventory updated, order recorded, and email sent successfully!",
		OrderID: result.OrderID,
	})
}
