package main

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/forms"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/storage"
)

func TestUploadSaver(t *testing.T) {
	saver := uploadSaver{store: storage.NewMemStore()}

	sf, err := saver.SaveUpload(context.Background(), forms.Upload{
		Filename: "passport.jpg",
		MimeType: "image/jpeg",
		Size:     4,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data")), nil
		},
	})
	if err != nil {
		t.Fatalf("save upload: %v", err)
	}
	if sf.Name != "passport.jpg" {
		t.Errorf("unexpected name %q", sf.Name)
	}
	if sf.Path == "" {
		t.Error("expected a stored path")
	}
	if sf.MimeType != "image/jpeg" {
		t.Errorf("unexpected mime type %q", sf.MimeType)
	}
}
