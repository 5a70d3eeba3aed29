package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"library-ledger-go/internal/models"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, func()) {
	t.Helper()
	server := httptest.NewServer(handler)

	service, err := NewService(models.GatewayConfig{
		BaseURL:        server.URL,
		KeyId:          "key_test",
		KeySecret:      "secret_test",
		Currency:       "INR",
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		server.Close()
		t.Fatalf("NewService failed: %v", err)
	}
	return service, server.Close
}

func TestCreateOrder_Success(t *testing.T) {
	var gotRequest orderRequest
	var gotAuthUser, gotAuthPass string

	service, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(orderResponse{
			Id:       "order_test_1",
			Amount:   gotRequest.Amount,
			Currency: gotRequest.Currency,
			Receipt:  gotRequest.Receipt,
		})
	})
	defer cleanup()

	order, err := service.CreateOrder(context.Background(), CreateOrderParams{
		AmountMinor: 49900,
		Currency:    "INR",
		Receipt:     "LBR_abc123_45678",
		Notes:       map[string]string{"book": "Monsoon Letters"},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if order.Id != "order_test_1" {
		t.Errorf("Expected order id order_test_1, got %s", order.Id)
	}
	if order.Amount != 49900 {
		t.Errorf("Expected amount 49900, got %d", order.Amount)
	}
	if gotRequest.Notes["book"] != "Monsoon Letters" {
		t.Errorf("Expected notes to carry book name, got %v", gotRequest.Notes)
	}
	if gotAuthUser != "key_test" || gotAuthPass != "secret_test" {
		t.Errorf("Expected basic auth credentials, got %s/%s", gotAuthUser, gotAuthPass)
	}
}

func TestCreateOrder_GatewayError(t *testing.T) {
	service, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"BAD_REQUEST_ERROR"}`, http.StatusBadGateway)
	})
	defer cleanup()

	_, err := service.CreateOrder(context.Background(), CreateOrderParams{
		AmountMinor: 49900,
		Currency:    "INR",
		Receipt:     "LBR_abc123_45678",
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}

func TestCreateOrder_UnreachableGateway(t *testing.T) {
	service, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	cleanup() // close immediately so the dial fails

	_, err := service.CreateOrder(context.Background(), CreateOrderParams{
		AmountMinor: 100,
		Currency:    "INR",
		Receipt:     "LBR_abc123_45678",
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}

func TestCreateOrder_RejectsBadInput(t *testing.T) {
	service, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Gateway should not be called for invalid input")
	})
	defer cleanup()

	if _, err := service.CreateOrder(context.Background(), CreateOrderParams{
		AmountMinor: 0,
		Currency:    "INR",
		Receipt:     "r",
	}); err == nil {
		t.Error("Expected error for non-positive amount")
	}

	longReceipt := make([]byte, MaxReceiptLen+1)
	for i := range longReceipt {
		longReceipt[i] = 'r'
	}
	if _, err := service.CreateOrder(context.Background(), CreateOrderParams{
		AmountMinor: 100,
		Currency:    "INR",
		Receipt:     string(longReceipt),
	}); err == nil {
		t.Error("Expected error for oversized receipt")
	}
}

func TestCreateOrder_MissingOrderId(t *testing.T) {
	service, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(orderResponse{Amount: 100, Currency: "INR"})
	})
	defer cleanup()

	_, err := service.CreateOrder(context.Background(), CreateOrderParams{
		AmountMinor: 100,
		Currency:    "INR",
		Receipt:     "LBR_abc123_45678",
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable for missing order id, got %v", err)
	}
}
