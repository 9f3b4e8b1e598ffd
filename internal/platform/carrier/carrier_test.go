package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Reference != "ORD-42" {
			t.Errorf("unexpected reference %q", req.Reference)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"trackingNumber": "TRK123",
			"labels":         []string{"labels/trk123.pdf"},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key-1", 5*time.Second)
	res, err := c.CreateOrder(context.Background(), OrderRequest{
		Reference: "ORD-42",
		Address:   Address{Name: "Jo Bloggs", Line1: "1 High St", City: "Leeds", Postcode: "LS1 1AA", Country: "GB"},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if got := res.TrackingNumber(); got != "TRK123" {
		t.Errorf("tracking number = %q, want TRK123", got)
	}
	if len(res.LabelPaths) != 1 || res.LabelPaths[0] != "labels/trk123.pdf" {
		t.Errorf("unexpected labels %v", res.LabelPaths)
	}
}

func TestTrackingNumberFallbacks(t *testing.T) {
	cases := []struct {
		name string
		resp map[string]any
		want string
	}{
		{"snake case", map[string]any{"tracking_number": "A1"}, "A1"},
		{"barcode", map[string]any{"barcode": "B2"}, "B2"},
		{"nested shipment", map[string]any{"shipment": map[string]any{"trackingNumber": "C3"}}, "C3"},
		{"absent", map[string]any{"status": "ok"}, ""},
		{"non-string ignored", map[string]any{"trackingNumber": 99, "barcode": "D4"}, "D4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShipmentResult{Response: tc.resp}.TrackingNumber()
			if got != tc.want {
				t.Errorf("tracking number = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHTTPClientCreateOrderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", 5*time.Second)
	if _, err := c.CreateOrder(context.Background(), OrderRequest{Reference: "ORD-1"}); err == nil {
		t.Fatal("expected error on 422 status")
	}
}

func TestMockRecordsOrders(t *testing.T) {
	m := &Mock{Result: ShipmentResult{Response: map[string]any{"trackingNumber": "X"}}}
	if _, err := m.CreateOrder(context.Background(), OrderRequest{Reference: "R1"}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	orders := m.Orders()
	if len(orders) != 1 || orders[0].Reference != "R1" {
		t.Errorf("unexpected orders %v", orders)
	}
}
