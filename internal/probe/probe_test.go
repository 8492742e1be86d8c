package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHTTPReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := HTTP(srv.URL, srv.Client())
	if err := p(context.Background()); err != nil {
		t.Errorf("expected reachable, got %v", err)
	}
}

func TestHTTPServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := HTTP(srv.URL, srv.Client())
	if err := p(context.Background()); err == nil {
		t.Error("5xx response must count as unreachable")
	}
}

func TestHTTPConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := HTTP(url, nil)
	if err := p(context.Background()); err == nil {
		t.Error("closed server must count as unreachable")
	}
}

func TestDiskWritable(t *testing.T) {
	dir := t.TempDir()
	p := Disk(dir)
	if err := p(context.Background()); err != nil {
		t.Errorf("temp dir should be writable: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".diskprobe")); !os.IsNotExist(err) {
		t.Error("marker file should be removed after the probe")
	}
}

func TestDiskUnwritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	// Directory does not exist: writes must fail.
	p := Disk(dir)
	if err := p(context.Background()); err == nil {
		t.Error("missing directory must count as unwritable")
	}
}
