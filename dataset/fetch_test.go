package dataset

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const payload = "0123456789abcdefghij"

func rangeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rg := r.Header.Get("Range"); rg != "" {
			from, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(rg, "bytes="), "-"))
			if err != nil {
				http.Error(w, "bad range", http.StatusBadRequest)
				return
			}
			if from >= len(payload) {
				w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", len(payload)))
				w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
				return
			}
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", from, len(payload)-1, len(payload)))
			w.WriteHeader(http.StatusPartialContent)
			w.Write([]byte(payload[from:]))
			return
		}
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := rangeServer(t)
	dest := filepath.Join(t.TempDir(), "bundle.zip")

	var last int64
	if err := Fetch(context.Background(), srv.URL+"/bundle.zip", dest, func(done, total int64) { last = done }); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != payload {
		t.Errorf("content = %q; want %q", got, payload)
	}
	if last != int64(len(payload)) {
		t.Errorf("last progress = %d; want %d", last, len(payload))
	}
}

func TestFetchResumes(t *testing.T) {
	srv := rangeServer(t)
	dest := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(dest, []byte(payload[:8]), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Fetch(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != payload {
		t.Errorf("content = %q; want %q", got, payload)
	}
}

func TestFetchAlreadyComplete(t *testing.T) {
	srv := rangeServer(t)
	dest := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(dest, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	var last int64
	if err := Fetch(context.Background(), srv.URL, dest, func(done, total int64) { last = done }); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != payload {
		t.Errorf("content = %q; want %q", got, payload)
	}
	if last != int64(len(payload)) {
		t.Errorf("last progress = %d; want %d", last, len(payload))
	}
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	old := FetchRetryDelay
	FetchRetryDelay = 0
	defer func() { FetchRetryDelay = old }()

	err := Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), nil)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Fetch() error = %v; want 404 status", err)
	}
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/data/kitti.7z", "kitti.7z"},
		{"https://example.com/a/b.tar.gz?token=1", "b.tar.gz"},
		{"http://host/c.zip#frag", "c.zip"},
	}
	for _, tt := range tests {
		if got := ArchiveName(tt.url); got != tt.want {
			t.Errorf("ArchiveName(%q) = %q; want %q", tt.url, got, tt.want)
		}
		if !IsURL(tt.url) {
			t.Errorf("IsURL(%q) = false", tt.url)
		}
	}
	if IsURL("/tmp/kitti.zip") {
		t.Error("IsURL should reject local paths")
	}
}
