package mail

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildMIMEPlainBody(t *testing.T) {
	body, err := buildMIME("clinic@example.com", Message{
		To:      []string{"patient@example.com"},
		Subject: "Your order",
		Body:    "<p>Dispatched</p>",
	})
	if err != nil {
		t.Fatalf("build mime: %v", err)
	}
	s := string(body)
	if !strings.Contains(s, "Subject: Your order") {
		t.Error("missing subject header")
	}
	if !strings.Contains(s, "Content-Type: text/html") {
		t.Error("missing html content type")
	}
	if strings.Contains(s, "multipart/mixed") {
		t.Error("plain body should not be multipart")
	}
}

func TestBuildMIMEWithAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}

	body, err := buildMIME("clinic@example.com", Message{
		To:          []string{"patient@example.com"},
		Subject:     "Documents",
		Body:        "<p>Attached</p>",
		Attachments: []Attachment{{Path: path, DisplayName: "Invoice.pdf"}},
	})
	if err != nil {
		t.Fatalf("build mime: %v", err)
	}
	s := string(body)
	if !strings.Contains(s, "multipart/mixed") {
		t.Error("expected multipart message")
	}
	if !strings.Contains(s, `filename="Invoice.pdf"`) {
		t.Error("missing attachment disposition")
	}
	if !strings.Contains(s, "base64") {
		t.Error("missing base64 transfer encoding")
	}
}

func TestBuildMIMEMissingAttachment(t *testing.T) {
	_, err := buildMIME("a@example.com", Message{
		To:          []string{"b@example.com"},
		Attachments: []Attachment{{Path: "/nonexistent/file.pdf"}},
	})
	if err == nil {
		t.Fatal("expected error for missing attachment file")
	}
}

func TestSendRejectsEmptyRecipients(t *testing.T) {
	s := NewSMTPSender("localhost", 25, "a@example.com", "", "")
	if err := s.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatal("expected error for empty recipients")
	}
}

func TestMockRecordsMessages(t *testing.T) {
	m := &Mock{}
	if err := m.Send(context.Background(), Message{To: []string{"x@example.com"}, Subject: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	msgs := m.Messages()
	if len(msgs) != 1 || msgs[0].Subject != "hi" {
		t.Errorf("unexpected messages %v", msgs)
	}
}
