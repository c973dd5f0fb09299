// Package indexcache caches the raw bytes of companion index files
// (BAI/CRAI/TBI/CSI/GZI) so that repeated requests against the same
// data file don't re-fetch the index from the storage backend on every
// call (the cached bytes are still parsed on each request), spec.md
// §4.3/§4.6.3.
package indexcache

import (
	"context"
	"encoding/json"
	"io"
)

// Store is the interface for index-byte cache backends.
type Store interface {
	Init(ctx context.Context) error
	Head(ctx context.Context, key string) (ObjectMeta, error)
	GetWithMeta(ctx context.Context, key string) (*GetResult, error)
	Put(ctx context.Context, key string, body io.Reader, meta ObjectMeta) error
}

// ObjectMeta holds metadata for a cached index object. ETag carries the
// backing storage's version marker (where available) so a future lookup
// could validate freshness; the gateway does not currently revalidate
// and treats entries as immutable for the process lifetime.
type ObjectMeta struct {
	ETag          string
	ContentLength int64
}

// MarshalMeta serializes an ObjectMeta to JSON for sidecar storage.
func MarshalMeta(m ObjectMeta) ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMeta deserializes JSON from a sidecar into an ObjectMeta.
func UnmarshalMeta(data []byte) (ObjectMeta, error) {
	var m ObjectMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return ObjectMeta{}, err
	}
	return m, nil
}

// GetResult holds the body and metadata from a single get call.
type GetResult struct {
	Body io.ReadCloser
	Meta ObjectMeta
}
