package localstorage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

func newTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sample.bam"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	st, err := New(dir, "http", "localhost:8081", "/data")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st, dir
}

func TestGetReturnsWholeObjectWithoutRange(t *testing.T) {
	st, _ := newTestStorage(t)
	rc, err := st.Get(context.Background(), "sample.bam", storage.GetOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "0123456789" {
		t.Fatalf("got %q", got)
	}
}

func TestGetHonoursBoundedRange(t *testing.T) {
	st, _ := newTestStorage(t)
	s, e := uint64(2), uint64(4)
	rc, err := st.Get(context.Background(), "sample.bam", storage.GetOptions{
		Range: byterange.BytesRange{Start: &s, End: &e},
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "234" {
		t.Fatalf("got %q, want %q", got, "234")
	}
}

func TestGetMissingKeyReturnsKeyNotFound(t *testing.T) {
	st, _ := newTestStorage(t)
	_, err := st.Get(context.Background(), "missing.bam", storage.GetOptions{})
	if err == nil {
		t.Fatal("expected an error for a missing key")
	}
	if e, ok := htserr.As(err); !ok || e.Kind != htserr.KeyNotFound {
		t.Fatalf("error = %v, want KeyNotFound", err)
	}
}

func TestGetRejectsPathTraversal(t *testing.T) {
	st, _ := newTestStorage(t)
	_, err := st.Get(context.Background(), "../../etc/passwd", storage.GetOptions{})
	if err == nil {
		t.Fatal("expected an error for a key that escapes the storage root")
	}
}

func TestHeadReportsFileSize(t *testing.T) {
	st, _ := newTestStorage(t)
	n, err := st.Head(context.Background(), "sample.bam", storage.HeadOptions{})
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if n != 10 {
		t.Fatalf("Head = %d, want 10", n)
	}
}

func TestRangeURLRendersSchemeAuthorityAndPrefix(t *testing.T) {
	st, _ := newTestStorage(t)
	s, e := uint64(0), uint64(9)
	u, err := st.RangeURL(context.Background(), "sample.bam", storage.RangeUrlOptions{Range: byterange.BytesRange{Start: &s, End: &e}})
	if err != nil {
		t.Fatalf("RangeURL: %v", err)
	}
	if u.URL != "http://localhost:8081/data/sample.bam" {
		t.Fatalf("URL = %q", u.URL)
	}
	if u.Headers["Range"] == "" {
		t.Fatal("expected a Range header")
	}
}

func TestRangeURLMissingKeyReturnsKeyNotFound(t *testing.T) {
	st, _ := newTestStorage(t)
	_, err := st.RangeURL(context.Background(), "missing.bam", storage.RangeUrlOptions{})
	if err == nil {
		t.Fatal("expected an error for a missing key")
	}
}
