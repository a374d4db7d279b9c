// Package api exposes the order core over a small JSON HTTP surface: the
// operations the desktop forms used to drive, minus the widgets.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/ordax/salesdesk/internal/batch"
	"github.com/ordax/salesdesk/internal/domain/order"
	"github.com/ordax/salesdesk/internal/domain/product"
)

// Handler serves the admin API, delegating all business logic to the order
// service, the inventory ledger and the batch driver.
type Handler struct {
	orders   *order.Service
	products product.Repository
	store    order.Store
	batches  *batch.Driver

	ordersCreated   metric.Int64Counter
	ordersCancelled metric.Int64Counter
}

// NewHandler constructs a Handler and registers its metric instruments.
func NewHandler(
	orders *order.Service,
	products product.Repository,
	store order.Store,
	batches *batch.Driver,
	meter metric.Meter,
) (*Handler, error) {
	created, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders created through the API"))
	if err != nil {
		return nil, errors.Wrap(err, "create orders_created counter")
	}
	cancelled, err := meter.Int64Counter("orders_cancelled_total",
		metric.WithDescription("Orders cancelled through the API"))
	if err != nil {
		return nil, errors.Wrap(err, "create orders_cancelled counter")
	}

	return &Handler{
		orders:          orders,
		products:        products,
		store:           store,
		batches:         batches,
		ordersCreated:   created,
		ordersCancelled: cancelled,
	}, nil
}

// Routes registers all API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/stats", h.orderStats)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /api/orders/{id}/verify", h.verifyOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("POST /api/orders/{id}/status", h.transitionOrder)
	mux.HandleFunc("GET /api/customers/{id}/orders", h.listCustomerOrders)
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}/stock", h.getStock)
	mux.HandleFunc("POST /api/products/{id}/stock", h.adjustStock)
	mux.HandleFunc("GET /api/products/{id}/inventory-logs", h.listInventoryLogs)
	mux.HandleFunc("POST /api/batches", h.runBatch)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// readJSON decodes the request body, rejecting unknown fields so ambiguous
// requests fail at the boundary.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
