// Package carrier talks to the shipping carrier API. Order creation returns
// the raw carrier response for audit alongside any label documents.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Address is the delivery destination in carrier terms.
type Address struct {
	Name     string `json:"name"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// OrderRequest describes the shipment to book.
type OrderRequest struct {
	Reference string  `json:"reference"`
	Address   Address `json:"address"`
	Weight    float64 `json:"weight,omitempty"`
	Service   string  `json:"service,omitempty"`
}

// ShipmentResult carries the full carrier response plus rendered label paths.
type ShipmentResult struct {
	Response   map[string]any
	LabelPaths []string
}

// TrackingNumber digs the tracking reference out of the carrier response.
// Carriers disagree on field naming, so several known spellings are tried.
func (r ShipmentResult) TrackingNumber() string {
	for _, key := range []string{"trackingNumber", "tracking_number", "trackingRef", "barcode"} {
		if v, ok := r.Response[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	if shipment, ok := r.Response["shipment"].(map[string]any); ok {
		for _, key := range []string{"trackingNumber", "tracking_number"} {
			if s, ok := shipment[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Client books shipments with the carrier.
type Client interface {
	CreateOrder(ctx context.Context, req OrderRequest) (ShipmentResult, error)
}

// HTTPClient is the production carrier client.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateOrder(ctx context.Context, req OrderRequest) (ShipmentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ShipmentResult{}, fmt.Errorf("encode carrier order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return ShipmentResult{}, fmt.Errorf("build carrier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return ShipmentResult{}, fmt.Errorf("create carrier order %s: %w", req.Reference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return ShipmentResult{}, fmt.Errorf("create carrier order %s: status %d", req.Reference, resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return ShipmentResult{}, fmt.Errorf("decode carrier response: %w", err)
	}

	result := ShipmentResult{Response: raw}
	if labels, ok := raw["labels"].([]any); ok {
		for _, l := range labels {
			if s, ok := l.(string); ok && s != "" {
				result.LabelPaths = append(result.LabelPaths, s)
			}
		}
	}
	return result, nil
}

// Mock is a test double recording booked orders.
type Mock struct {
	mu         sync.Mutex
	orders     []OrderRequest
	Result     ShipmentResult
	ShouldFail bool
}

func (m *Mock) CreateOrder(_ context.Context, req OrderRequest) (ShipmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, req)
	if m.ShouldFail {
		return ShipmentResult{}, fmt.Errorf("carrier unavailable")
	}
	return m.Result, nil
}

// Orders returns a copy of booked order requests.
func (m *Mock) Orders() []OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderRequest, len(m.orders))
	copy(out, m.orders)
	return out
}
