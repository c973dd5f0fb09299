package dataserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestServeHTTPServesFileContentWithRangeSupport(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sample.bam"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	h := New(dir, "/data")

	req := httptest.NewRequest(http.MethodGet, "/data/sample.bam", nil)
	req.Header.Set("Range", "bytes=2-4")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if rec.Body.String() != "234" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "234")
	}
}

func TestServeHTTPMissingFileReturns404(t *testing.T) {
	h := New(t.TempDir(), "/data")
	req := httptest.NewRequest(http.MethodGet, "/data/nonexistent.bam", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServeHTTPPathTraversalIsForbidden(t *testing.T) {
	h := New(t.TempDir(), "/data")
	req := httptest.NewRequest(http.MethodGet, "/data/../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden && rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 403 or 404 for a traversal attempt", rec.Code)
	}
}

func TestServeHTTPRejectsUnsupportedMethod(t *testing.T) {
	h := New(t.TempDir(), "/data")
	req := httptest.NewRequest(http.MethodPost, "/data/sample.bam", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestNewMuxServesHealthz(t *testing.T) {
	mux := NewMux(New(t.TempDir(), "/data"))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz returned status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestNewMuxServesFileUnderConfiguredPrefix(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "sample.bam"), []byte("hello"), 0o644)
	mux := NewMux(New(dir, "/data"))

	req := httptest.NewRequest(http.MethodGet, "/data/sample.bam", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}
