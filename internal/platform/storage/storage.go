// Package storage persists uploaded files and resolves historical path
// conventions back to readable files. Callers only ever see opaque relative
// paths ("store and return a path"); the mechanics stay in here.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored file cannot be located.
var ErrNotFound = errors.New("stored file not found")

// MaxUploadSize bounds a single uploaded file (25 MB).
const MaxUploadSize = 25 * 1024 * 1024

// File describes one stored upload.
type File struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Store is the contract for durable file storage.
type Store interface {
	// Save persists the content and returns its stored representation.
	Save(ctx context.Context, filename, mimeType string, content io.Reader) (File, error)
	// Locate resolves a stored reference to an absolute path on disk. It
	// tolerates the path conventions accumulated over the product's
	// history: public-storage relative paths, absolute paths, and bare
	// filenames.
	Locate(ref string) (string, error)
}

// ---------------------------------------------------------------------------
// Disk implementation
// ---------------------------------------------------------------------------

// DiskStore writes uploads under root/uploads/<year>/<month>/ and resolves
// references against both the private root and the legacy public directory.
type DiskStore struct {
	root       string
	publicRoot string
}

func NewDiskStore(root, publicRoot string) *DiskStore {
	return &DiskStore{root: root, publicRoot: publicRoot}
}

func (s *DiskStore) Save(_ context.Context, filename, mimeType string, content io.Reader) (File, error) {
	if filename == "" {
		return File{}, fmt.Errorf("file name is required")
	}
	now := time.Now().UTC()
	rel := filepath.Join("uploads", now.Format("2006"), now.Format("01"),
		uuid.New().String()+"_"+sanitizeName(filename))
	abs := filepath.Join(s.root, rel)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return File{}, fmt.Errorf("create upload directory: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return File{}, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(content, MaxUploadSize+1))
	if err != nil {
		return File{}, fmt.Errorf("write upload: %w", err)
	}
	if n > MaxUploadSize {
		os.Remove(abs)
		return File{}, fmt.Errorf("upload exceeds maximum size")
	}

	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(filename))
	}

	return File{
		Name:     filename,
		Path:     filepath.ToSlash(rel),
		MimeType: mimeType,
		Size:     n,
	}, nil
}

func (s *DiskStore) Locate(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrNotFound
	}

	candidates := []string{}
	if filepath.IsAbs(ref) {
		candidates = append(candidates, ref)
	}
	// Older records prefix public-storage paths with "storage/" or
	// "public/storage/".
	trimmed := strings.TrimPrefix(strings.TrimPrefix(ref, "public/"), "storage/")
	candidates = append(candidates,
		filepath.Join(s.root, ref),
		filepath.Join(s.root, trimmed),
		filepath.Join(s.publicRoot, ref),
		filepath.Join(s.publicRoot, trimmed),
		// Bare filename: look in the public root directly.
		filepath.Join(s.publicRoot, filepath.Base(ref)),
	)

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

// ---------------------------------------------------------------------------
// In-memory implementation (tests and development)
// ---------------------------------------------------------------------------

// MemStore keeps uploads in memory and resolves every saved path.
type MemStore struct {
	files map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string][]byte)}
}

func (s *MemStore) Save(_ context.Context, filename, mimeType string, content io.Reader) (File, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return File{}, err
	}
	rel := "uploads/" + uuid.New().String() + "_" + sanitizeName(filename)
	s.files[rel] = data
	return File{Name: filename, Path: rel, MimeType: mimeType, Size: int64(len(data))}, nil
}

func (s *MemStore) Locate(ref string) (string, error) {
	if _, ok := s.files[ref]; ok {
		return ref, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
}
