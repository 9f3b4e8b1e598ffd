package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStoreSaveAndLocate(t *testing.T) {
	store := NewDiskStore(t.TempDir(), t.TempDir())

	f, err := store.Save(context.Background(), "consent form.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Size != 8 {
		t.Errorf("expected size 8, got %d", f.Size)
	}
	if !strings.HasPrefix(f.Path, "uploads/") {
		t.Errorf("expected relative uploads path, got %q", f.Path)
	}
	if strings.Contains(f.Path, " ") {
		t.Errorf("expected sanitized stored name, got %q", f.Path)
	}

	abs, err := store.Locate(f.Path)
	if err != nil {
		t.Fatalf("locate saved path: %v", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestDiskStoreLocateConventions(t *testing.T) {
	public := t.TempDir()
	store := NewDiskStore(t.TempDir(), public)

	target := filepath.Join(public, "guides", "wegovy-guide.pdf")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("guide"), 0o644); err != nil {
		t.Fatal(err)
	}

	refs := []string{
		target,                           // absolute
		"guides/wegovy-guide.pdf",        // public-relative
		"storage/guides/wegovy-guide.pdf", // legacy storage/ prefix
	}
	for _, ref := range refs {
		if _, err := store.Locate(ref); err != nil {
			t.Errorf("Locate(%q): %v", ref, err)
		}
	}

	// Bare filename falls back to the public root.
	bare := filepath.Join(public, "invoice.pdf")
	if err := os.WriteFile(bare, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Locate("invoice.pdf"); err != nil {
		t.Errorf("bare filename: %v", err)
	}
}

func TestDiskStoreLocateMissing(t *testing.T) {
	store := NewDiskStore(t.TempDir(), t.TempDir())
	_, err := store.Locate("nope.pdf")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Locate("  "); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for blank ref, got %v", err)
	}
}

func TestMemStore(t *testing.T) {
	store := NewMemStore()
	f, err := store.Save(context.Background(), "sig.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Locate(f.Path); err != nil {
		t.Errorf("locate: %v", err)
	}
	if _, err := store.Locate("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
