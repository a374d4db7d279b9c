package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/ordax/salesdesk/internal/domain/inventory"
	"github.com/ordax/salesdesk/internal/domain/order"
	"github.com/ordax/salesdesk/internal/domain/product"
)

type productResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type stockResponse struct {
	ProductID int64 `json:"productId"`
	Stock     int   `json:"stock"`
}

type inventoryLogResponse struct {
	ProductID int64     `json:"productId"`
	Previous  int       `json:"previousQuantity"`
	Current   int       `json:"currentQuantity"`
	Change    int       `json:"changeAmount"`
	Reason    string    `json:"changeType"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.writeProductError(w, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ID:    p.ID,
			Name:  p.Name,
			Price: p.Price.InexactFloat64(),
			Stock: p.Stock,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	stock, err := h.store.Ledger().CurrentStock(r.Context(), id)
	if err != nil {
		h.writeProductError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{ProductID: id, Stock: stock})
}

type adjustStockRequest struct {
	Change int `json:"change"`
}

// adjustStock applies a manual stock correction inside one transaction so the
// stock write and its audit entry land together.
func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req adjustStockRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Change == 0 {
		writeError(w, http.StatusBadRequest, "change must be non-zero")
		return
	}

	var newStock int
	err := h.store.WithinTx(r.Context(), func(ctx context.Context, tx order.Tx) error {
		var err error
		newStock, err = tx.Ledger().Adjust(ctx, id, req.Change, "api")
		return err
	})
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		if errors.As(err, &stockErr) {
			writeError(w, http.StatusConflict, stockErr.Error())
			return
		}
		h.writeProductError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{ProductID: id, Stock: newStock})
}

func (h *Handler) listInventoryLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	entries, err := h.store.Ledger().Entries(r.Context(), id)
	if err != nil {
		h.writeProductError(w, err)
		return
	}

	resp := make([]inventoryLogResponse, len(entries))
	for i, e := range entries {
		resp[i] = inventoryLogResponse{
			ProductID: e.ProductID,
			Previous:  e.Previous,
			Current:   e.Current,
			Change:    e.Change,
			Reason:    string(e.Reason),
			ChangedBy: e.ChangedBy,
			ChangedAt: e.ChangedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeProductError(w http.ResponseWriter, err error) {
	if errors.Is(err, product.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	h.writeOrderError(w, err)
}
