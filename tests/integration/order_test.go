//go:build integration

package integration

import (
	"fmt"
	"math"
	"net/http"
	"testing"
)

func TestCreateOrder_EmptyItems(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{CustomerID: 1})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	p := pickProduct(t, 1)
	resp := doPost(t, "/api/orders", orderRequest{
		CustomerID: 1,
		Items:      []orderItemRequest{{ProductID: p.ID, Quantity: 0}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_UnknownCustomer(t *testing.T) {
	p := pickProduct(t, 1)
	resp := doPost(t, "/api/orders", orderRequest{
		CustomerID: 99999,
		Items:      []orderItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{
		CustomerID: 1,
		Items:      []orderItemRequest{{ProductID: 99999, Quantity: 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	p := pickProduct(t, 1)
	resp := doPost(t, "/api/orders", orderRequest{
		CustomerID: 1,
		Items:      []orderItemRequest{{ProductID: p.ID, Quantity: p.Stock + 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	// No stock may have been consumed.
	after := getStock(t, p.ID)
	if after != p.Stock {
		t.Errorf("stock after rejected order: got %d, want %d", after, p.Stock)
	}
}

func TestCreateOrder_HappyPath(t *testing.T) {
	p := pickProduct(t, 3)

	order := createTestOrder(t, p.ID, 2)

	if order.ID <= 0 {
		t.Errorf("order id: got %d, want > 0", order.ID)
	}
	if order.Status != "pending" {
		t.Errorf("status: got %q, want %q", order.Status, "pending")
	}
	if order.PaymentStatus != "unpaid" {
		t.Errorf("payment status: got %q, want %q", order.PaymentStatus, "unpaid")
	}

	want := 2 * p.Price
	if math.Abs(order.TotalAmount-want) > 0.001 {
		t.Errorf("total: got %v, want %v", order.TotalAmount, want)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	if order.Items[0].Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", order.Items[0].Quantity)
	}

	// Stock decremented by exactly the ordered quantity.
	after := getStock(t, p.ID)
	if after != p.Stock-2 {
		t.Errorf("stock: got %d, want %d", after, p.Stock-2)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/99999999")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	p := pickProduct(t, 3)
	order := createTestOrder(t, p.ID, 2)

	resp := doPost(t, fmt.Sprintf("/api/orders/%d/cancel", order.ID), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancelled := decodeJSON[orderResponse](t, resp)
	if cancelled.Status != "cancelled" {
		t.Errorf("status: got %q, want %q", cancelled.Status, "cancelled")
	}

	after := getStock(t, p.ID)
	if after != p.Stock {
		t.Errorf("stock after cancel: got %d, want %d", after, p.Stock)
	}
}

func TestCancelOrder_AlreadyCancelled(t *testing.T) {
	p := pickProduct(t, 2)
	order := createTestOrder(t, p.ID, 1)

	resp := doPost(t, fmt.Sprintf("/api/orders/%d/cancel", order.ID), nil)
	resp.Body.Close()

	resp = doPost(t, fmt.Sprintf("/api/orders/%d/cancel", order.ID), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestTransition_Lifecycle(t *testing.T) {
	p := pickProduct(t, 2)
	order := createTestOrder(t, p.ID, 1)

	// pending -> shipping
	resp := doPost(t, fmt.Sprintf("/api/orders/%d/status", order.ID), map[string]string{"status": "shipping"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("to shipping: expected 200, got %d", resp.StatusCode)
	}
	shipped := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if shipped.Status != "shipping" {
		t.Errorf("status: got %q, want %q", shipped.Status, "shipping")
	}

	// shipping -> completed marks the order paid.
	resp = doPost(t, fmt.Sprintf("/api/orders/%d/status", order.ID), map[string]string{"status": "completed"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("to completed: expected 200, got %d", resp.StatusCode)
	}
	completed := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if completed.Status != "completed" {
		t.Errorf("status: got %q, want %q", completed.Status, "completed")
	}
	if completed.PaymentStatus != "paid" {
		t.Errorf("payment status: got %q, want %q", completed.PaymentStatus, "paid")
	}

	// completed admits no outgoing transitions.
	resp = doPost(t, fmt.Sprintf("/api/orders/%d/status", order.ID), map[string]string{"status": "shipping"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("from completed: expected 409, got %d", resp.StatusCode)
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	p := pickProduct(t, 2)
	order := createTestOrder(t, p.ID, 1)

	resp := doPost(t, fmt.Sprintf("/api/orders/%d/status", order.ID), map[string]string{"status": "teleported"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOrderStats(t *testing.T) {
	p := pickProduct(t, 2)
	order := createTestOrder(t, p.ID, 1)

	resp := doPost(t, fmt.Sprintf("/api/orders/%d/cancel", order.ID), nil)
	resp.Body.Close()

	resp = doGet(t, "/api/orders/stats")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	stats := decodeJSON[map[string]int64](t, resp)
	for _, key := range []string{"pending", "shipping", "completed", "cancelled"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("stats missing %q", key)
		}
	}
	if stats["cancelled"] == 0 {
		t.Error("expected at least one cancelled order")
	}
}

func TestVerifyOrder(t *testing.T) {
	p := pickProduct(t, 2)
	order := createTestOrder(t, p.ID, 1)

	resp := doGet(t, fmt.Sprintf("/api/orders/%d/verify", order.ID))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	verdict := decodeJSON[map[string]any](t, resp)
	if valid, _ := verdict["valid"].(bool); !valid {
		t.Error("expected stored totals to verify")
	}
}

func TestListCustomerOrders(t *testing.T) {
	p := pickProduct(t, 2)
	createTestOrder(t, p.ID, 1)

	resp := doGet(t, "/api/customers/1/orders")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	orders := decodeJSON[[]orderResponse](t, resp)
	if len(orders) == 0 {
		t.Fatal("expected at least one order for customer 1")
	}
	for _, o := range orders {
		if o.CustomerID != 1 {
			t.Errorf("customer id: got %d, want 1", o.CustomerID)
		}
	}
}
