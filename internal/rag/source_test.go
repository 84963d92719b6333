package rag

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("pdf bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(nil)
	data, err := f.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Errorf("Fetch() = %q, want %q", data, "pdf bytes")
	}
}

func TestFetchMissingFile(t *testing.T) {
	f := NewFetcher(nil)
	if _, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.pdf")); err == nil {
		t.Error("Fetch() error = nil, want error")
	}
}

func TestFetchEmptySource(t *testing.T) {
	f := NewFetcher(nil)
	if _, err := f.Fetch(context.Background(), ""); err == nil {
		t.Error("Fetch(\"\") error = nil, want error")
	}
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("remote pdf"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	data, err := f.Fetch(context.Background(), srv.URL+"/doc.pdf")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "remote pdf" {
		t.Errorf("Fetch() = %q, want %q", data, "remote pdf")
	}
}

func TestFetchURLNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Fetch() error = nil, want error for 404")
	}
}

func TestFetchURLCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("slow"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(srv.Client())
	if _, err := f.Fetch(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}
