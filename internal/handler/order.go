package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/smart-billing/internal/domain/order"
)

type orderLineResponse struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	PriceAtSale float64 `json:"price_at_sale"`
	Quantity    int     `json:"quantity"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customer_id"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	Total         float64             `json:"total_amount"`
	Date          string              `json:"order_date"`
	Time          string              `json:"order_time"`
	CreatedAt     time.Time           `json:"created_at"`
	Lines         []orderLineResponse `json:"lines,omitempty"`
}

func toOrderResponse(o order.Order, lines []order.Line) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Total:         o.Total.InexactFloat64(),
		Date:          o.Date,
		Time:          o.Time,
		CreatedAt:     o.CreatedAt,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			PriceAtSale: l.PriceAtSale.InexactFloat64(),
			Quantity:    l.Quantity,
		})
	}
	return resp
}

// ListOrders handles GET /orders. Lines are omitted from the listing; fetch
// a single order to see them.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, lines, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*o, lines))
}
