// Package pdfgen wraps the external clinical document renderer. The renderer
// is a black box invoked with a session id; re-invocation overwrites its
// prior output deterministically, so callers may retry freely.
package pdfgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Documents are the paths of the rendered clinical PDFs. NotificationPath is
// only produced for services that send a GP letter.
type Documents struct {
	RecordOfSupplyPath string `json:"record_of_supply_path"`
	InvoicePath        string `json:"invoice_path"`
	NotificationPath   string `json:"notification_path,omitempty"`
}

// Generator renders the completion document set for a session.
type Generator interface {
	Generate(ctx context.Context, sessionID string) (Documents, error)
}

// HTTPGenerator calls the rendering service over HTTP.
type HTTPGenerator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGenerator(baseURL string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, sessionID string) (Documents, error) {
	url := fmt.Sprintf("%s/render/%s", g.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return Documents{}, fmt.Errorf("build render request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Documents{}, fmt.Errorf("render documents for session %s: %w", sessionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Documents{}, fmt.Errorf("render documents for session %s: status %d", sessionID, resp.StatusCode)
	}

	var docs Documents
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return Documents{}, fmt.Errorf("decode render response: %w", err)
	}
	return docs, nil
}

// Mock is a test double recording every Generate call.
type Mock struct {
	mu         sync.Mutex
	calls      []string
	Docs       Documents
	ShouldFail bool
}

func (m *Mock) Generate(_ context.Context, sessionID string) (Documents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sessionID)
	if m.ShouldFail {
		return Documents{}, fmt.Errorf("renderer unavailable")
	}
	return m.Docs, nil
}

// Calls returns a copy of recorded session ids.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
