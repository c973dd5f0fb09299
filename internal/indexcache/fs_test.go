package indexcache

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
)

func TestFSStorePutThenGetWithMetaRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir)
	ctx := context.Background()

	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	want := []byte("index bytes go here")
	if err := store.Put(ctx, "sample.bam.bai", bytes.NewReader(want), ObjectMeta{ContentLength: int64(len(want))}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, err := store.GetWithMeta(ctx, "sample.bam.bai")
	if err != nil {
		t.Fatalf("GetWithMeta: %v", err)
	}
	defer result.Body.Close()

	got, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("body = %q, want %q", got, want)
	}
	if result.Meta.ContentLength != int64(len(want)) {
		t.Fatalf("ContentLength = %d, want %d", result.Meta.ContentLength, len(want))
	}
}

func TestFSStoreGetWithMetaMissingKeyErrors(t *testing.T) {
	store := NewFSStore(t.TempDir())
	if _, err := store.GetWithMeta(context.Background(), "nope.crai"); err == nil {
		t.Fatal("expected an error for a missing key")
	}
}

func TestFSStoreHeadReturnsCachedMetadataWithoutOpeningData(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir)
	ctx := context.Background()
	store.Init(ctx)

	data := []byte("abc")
	if err := store.Put(ctx, "sub/dir/sample.vcf.gz.tbi", bytes.NewReader(data), ObjectMeta{ETag: "abc123", ContentLength: 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	meta, err := store.Head(ctx, "sub/dir/sample.vcf.gz.tbi")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if meta.ETag != "abc123" || meta.ContentLength != 3 {
		t.Fatalf("meta = %+v, want ETag=abc123 ContentLength=3", meta)
	}
}

func TestFSStorePutOverwritesPreviousValue(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir)
	ctx := context.Background()
	store.Init(ctx)

	store.Put(ctx, "k", bytes.NewReader([]byte("first")), ObjectMeta{ContentLength: 5})
	if err := store.Put(ctx, "k", bytes.NewReader([]byte("second-value")), ObjectMeta{ContentLength: 12}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, err := store.GetWithMeta(ctx, "k")
	if err != nil {
		t.Fatalf("GetWithMeta: %v", err)
	}
	defer result.Body.Close()
	got, _ := io.ReadAll(result.Body)
	if string(got) != "second-value" {
		t.Fatalf("got %q, want %q", got, "second-value")
	}

	// No leftover temp files from the atomic rename dance.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if len(e.Name()) >= 5 && e.Name()[:5] == ".tmp-" {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}
