package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/ordax/salesdesk/internal/storage/postgres"
)

type runBatchRequest struct {
	Count int `json:"count"`
}

type batchResponse struct {
	BatchID   string  `json:"batchId"`
	Requested int     `json:"requested"`
	Created   int     `json:"created"`
	Failed    int     `json:"failed"`
	Attempts  int     `json:"attempts"`
	ElapsedMS float64 `json:"elapsedMs"`
}

// runBatch executes a synchronous batch order generation run. Batches are
// issued sequentially; large counts simply take longer.
func (h *Handler) runBatch(w http.ResponseWriter, r *http.Request) {
	var req runBatchRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Count <= 0 || req.Count > 10_000 {
		writeError(w, http.StatusBadRequest, "count must be between 1 and 10000")
		return
	}

	res, err := h.batches.RunBatch(r.Context(), req.Count)
	if err != nil && !errors.Is(err, postgres.ErrNoCustomers) {
		// Partial results still carry useful counts, but infrastructure
		// failures should be visible to the caller.
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if errors.Is(err, postgres.ErrNoCustomers) {
		writeError(w, http.StatusUnprocessableEntity, "no customers to generate orders for")
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{
		BatchID:   res.BatchID.String(),
		Requested: res.Requested,
		Created:   res.Created,
		Failed:    res.Failed,
		Attempts:  res.Attempts,
		ElapsedMS: float64(res.Elapsed.Milliseconds()),
	})
}
