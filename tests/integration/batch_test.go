//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestRunBatch(t *testing.T) {
	resp := doPost(t, "/api/batches", map[string]int{"count": 20})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	batch := decodeJSON[batchResponse](t, resp)
	if batch.BatchID == "" {
		t.Error("batch id is empty")
	}
	if batch.Requested != 20 {
		t.Errorf("requested: got %d, want 20", batch.Requested)
	}
	if batch.Created+batch.Failed != batch.Requested {
		t.Errorf("accounting: created %d + failed %d != requested %d",
			batch.Created, batch.Failed, batch.Requested)
	}
	if batch.Created == 0 {
		t.Error("expected at least one created order against seeded data")
	}
	if batch.Attempts < batch.Created {
		t.Errorf("attempts %d < created %d", batch.Attempts, batch.Created)
	}
}

func TestRunBatch_InvalidCount(t *testing.T) {
	for _, count := range []int{0, -5, 10001} {
		resp := doPost(t, "/api/batches", map[string]int{"count": count})
		resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("count %d: expected 400, got %d", count, resp.StatusCode)
		}
	}
}
