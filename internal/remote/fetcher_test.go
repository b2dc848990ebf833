package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const sampleCSV = "Timestamp,GHI\n2021-08-09 00:00,100\n"

func TestFetchStoresDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(srv.Client(), dir)

	path, err := f.Fetch(context.Background(), srv.URL, "benin.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "benin.csv") {
		t.Errorf("unexpected path %q", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(content) != sampleCSV {
		t.Errorf("unexpected content %q", content)
	}
}

func TestFetchRejectsBadNames(t *testing.T) {
	f := NewFetcher(http.DefaultClient, t.TempDir())

	for _, name := range []string{"", "benin.txt", "../benin.csv", "sub/benin.csv"} {
		_, err := f.Fetch(context.Background(), "http://example.com/data", name)
		if !errors.Is(err, ErrBadDatasetName) {
			t.Errorf("expected %q to be rejected, got %v", name, err)
		}
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), t.TempDir())

	if _, err := f.Fetch(context.Background(), srv.URL, "togo.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected one retry, got %d attempts", attempts)
	}
}

func TestFetchRequiresClient(t *testing.T) {
	f := NewFetcher(nil, t.TempDir())
	if _, err := f.Fetch(context.Background(), "http://example.com/data", "benin.csv"); err == nil {
		t.Error("expected error without an http client")
	}
}

func TestFetchHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(http.DefaultClient, t.TempDir())
	if _, err := f.Fetch(ctx, "http://example.com/data", "benin.csv"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
