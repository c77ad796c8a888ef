package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/timmy/moments/internal/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	data := []byte("not really a jpeg")
	if err := s.Upload(ctx, "a.jpg", bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	ok, err := s.Exists(ctx, "a.jpg")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v; want true, nil", ok, err)
	}

	got, err := ReadAll(ctx, s, "a.jpg")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("ReadAll() = %q, want %q", got, data)
	}

	if want := filepath.Join(s.Root(), "a.jpg"); s.Locate("a.jpg") != want {
		t.Fatalf("Locate() = %q, want %q", s.Locate("a.jpg"), want)
	}

	if err := s.Delete(ctx, "a.jpg"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "a.jpg"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func TestLocalStorageMissing(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	if _, err := s.Download(ctx, "nope.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Download() error = %v, want ErrNotFound", err)
	}
	ok, err := s.Exists(ctx, "nope.jpg")
	if err != nil || ok {
		t.Fatalf("Exists() = %v, %v; want false, nil", ok, err)
	}
}

func TestLocalStorageRejectsEscape(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	if _, err := s.Download(context.Background(), "../etc/passwd"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Download() error = %v, want invalid key error", err)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://acc.r2.cloudflarestorage.com/", "acc.r2.cloudflarestorage.com"},
		{"http://localhost:9000/bucket/path", "localhost:9000"},
		{"s3.amazonaws.com", "s3.amazonaws.com"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeEndpoint(tt.in); got != tt.want {
				t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"https://acc.R2.cloudflarestorage.com", StorageTypeR2},
		{"s3.eu-west-1.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			if got := detectStorageType(tt.endpoint); got != tt.want {
				t.Errorf("detectStorageType(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestNewStorage(t *testing.T) {
	root := t.TempDir()
	s, err := NewStorage(context.Background(), &config.StorageConfig{Type: "local", UploadRoot: root})
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	if _, ok := s.(*LocalStorage); !ok {
		t.Fatalf("NewStorage() = %T, want *LocalStorage", s)
	}

	if _, err := NewStorage(context.Background(), &config.StorageConfig{Type: "ftp"}); err == nil {
		t.Fatal("NewStorage(ftp) error = nil, want error")
	}
}
