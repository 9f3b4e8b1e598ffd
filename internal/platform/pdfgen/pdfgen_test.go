package pdfgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPGeneratorGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/render/sess-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Documents{
			RecordOfSupplyPath: "docs/ros.pdf",
			InvoicePath:        "docs/invoice.pdf",
		})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, 5*time.Second)
	docs, err := g.Generate(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if docs.RecordOfSupplyPath != "docs/ros.pdf" {
		t.Errorf("unexpected record of supply path %q", docs.RecordOfSupplyPath)
	}
	if docs.NotificationPath != "" {
		t.Errorf("expected empty notification path, got %q", docs.NotificationPath)
	}
}

func TestHTTPGeneratorGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, 5*time.Second)
	if _, err := g.Generate(context.Background(), "sess-2"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestMockRecordsCalls(t *testing.T) {
	m := &Mock{Docs: Documents{InvoicePath: "inv.pdf"}}
	docs, err := m.Generate(context.Background(), "abc")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if docs.InvoicePath != "inv.pdf" {
		t.Errorf("unexpected invoice path %q", docs.InvoicePath)
	}
	calls := m.Calls()
	if len(calls) != 1 || calls[0] != "abc" {
		t.Errorf("unexpected calls %v", calls)
	}
}
