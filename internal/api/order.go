package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/ordax/salesdesk/internal/domain/inventory"
	"github.com/ordax/salesdesk/internal/domain/order"
	"github.com/ordax/salesdesk/internal/storage/postgres"
)

type createOrderRequest struct {
	CustomerID int64              `json:"customerId"`
	Items      []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type orderResponse struct {
	ID            int64               `json:"id"`
	CustomerID    int64               `json:"customerId"`
	TotalAmount   float64             `json:"totalAmount"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	OrderDate     time.Time           `json:"orderDate"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		TotalAmount:   o.Total.InexactFloat64(),
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		OrderDate:     o.OrderDate,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			Subtotal:  item.Subtotal.InexactFloat64(),
		})
	}
	return resp
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	id, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		CustomerID: req.CustomerID,
		Items:      items,
	})
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.ordersCreated.Add(r.Context(), 1)

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orders.CancelOrder(r.Context(), id); err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.ordersCancelled.Add(r.Context(), 1)

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req transitionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orders.Transition(r.Context(), id, status); err != nil {
		h.writeOrderError(w, err)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type orderStatsResponse struct {
	Pending   int64 `json:"pending"`
	Shipping  int64 `json:"shipping"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.orders.StatusCounts(r.Context())
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderStatsResponse{
		Pending:   counts[order.StatusPending],
		Shipping:  counts[order.StatusShipping],
		Completed: counts[order.StatusCompleted],
		Cancelled: counts[order.StatusCancelled],
	})
}

type verifyResponse struct {
	OrderID int64 `json:"orderId"`
	Valid   bool  `json:"valid"`
}

// verifyOrder re-checks the stored totals of one order against its items.
func (h *Handler) verifyOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orders.VerifyOrder(r.Context(), id); err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{OrderID: id, Valid: true})
}

func (h *Handler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	orders, err := h.orders.ListCustomerOrders(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeOrderError maps domain errors to HTTP responses following the error
// taxonomy: validation failures get specific 4xx codes, resource and
// transient store failures get 503, everything else is a 500.
func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	var (
		custErr  *order.CustomerNotFoundError
		prodErr  *order.ProductNotFoundError
		qtyErr   *order.InvalidQuantityError
		stockErr *inventory.InsufficientStockError
		transErr *order.IllegalTransitionError
		invErr   *order.InvariantViolationError
	)

	switch {
	case errors.Is(err, order.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &qtyErr):
		writeError(w, http.StatusBadRequest, qtyErr.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.As(err, &custErr):
		writeError(w, http.StatusUnprocessableEntity, custErr.Error())
	case errors.As(err, &prodErr):
		writeError(w, http.StatusUnprocessableEntity, prodErr.Error())
	case errors.As(err, &stockErr):
		writeError(w, http.StatusConflict, stockErr.Error())
	case errors.As(err, &transErr):
		writeError(w, http.StatusConflict, transErr.Error())
	case errors.Is(err, postgres.ErrConnectionUnavailable), postgres.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, "store temporarily unavailable, retry later")
	case errors.As(err, &invErr):
		writeError(w, http.StatusInternalServerError, invErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
