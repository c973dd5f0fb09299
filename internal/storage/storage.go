// Package storage defines the polymorphic storage abstraction of
// spec.md §4.2/§9: a capability set of Get/RangeURL/Head/DataURL plus
// Preprocess/Postprocess middleware hooks, implemented by the local
// filesystem, S3, remote-HTTP, and Crypt4GH-decorator backends.
package storage

import (
	"context"
	"encoding/base64"
	"io"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/query"
)

// GetOptions parameterizes Storage.Get.
type GetOptions struct {
	Range          byterange.BytesRange
	RequestHeaders query.Headers
}

// RangeUrlOptions parameterizes Storage.RangeURL.
type RangeUrlOptions struct {
	Range           byterange.BytesRange
	ResponseHeaders query.Headers
}

// HeadOptions parameterizes Storage.Head.
type HeadOptions struct {
	RequestHeaders query.Headers
}

// PreprocessOptions parameterizes Storage.Preprocess.
type PreprocessOptions struct {
	Query *query.Query
}

// PostprocessOptions parameterizes Storage.Postprocess.
type PostprocessOptions struct {
	Query           *query.Query
	ResponseHeaders query.Headers
}

// Storage is the capability set the search engine is written against.
// Implementations: localstorage.Storage, s3storage.Storage,
// urlstorage.Storage, and crypt4gh.Storage (a decorator over any of the
// above).
type Storage interface {
	// Get streams the object, or the byte range in opts if set.
	Get(ctx context.Context, key string, opts GetOptions) (io.ReadCloser, error)
	// RangeURL produces a client-fetchable URL for the given range.
	RangeURL(ctx context.Context, key string, opts RangeUrlOptions) (query.Url, error)
	// Head reports the object's total length in bytes.
	Head(ctx context.Context, key string, opts HeadOptions) (uint64, error)
	// DataURL base64-encodes bytes into an inline "data:;base64,..." URL.
	DataURL(data []byte, class *byterange.Class) query.Url
	// Preprocess runs before a search pipeline consults this storage.
	// The default implementation is a no-op; the Crypt4GH decorator
	// overrides it to parse the encryption header.
	Preprocess(ctx context.Context, key string, opts PreprocessOptions) error
	// Postprocess converts merged byte positions into data blocks ready
	// for rendering. The default returns one Range block per merged
	// position; the Crypt4GH decorator overrides it to translate
	// unencrypted positions into encrypted ones plus header/edit-list
	// blocks.
	Postprocess(ctx context.Context, key string, positions []byterange.BytesPosition, opts PostprocessOptions) ([]byterange.DataBlock, error)
}

// Base provides the default Preprocess/Postprocess/DataURL behaviour
// described in spec.md §4.2, for embedding into concrete backends so
// they only need to implement Get/RangeURL/Head.
type Base struct{}

// Preprocess is a no-op by default.
func (Base) Preprocess(_ context.Context, _ string, _ PreprocessOptions) error {
	return nil
}

// Postprocess returns one Range data block per merged position.
func (Base) Postprocess(_ context.Context, _ string, positions []byterange.BytesPosition, _ PostprocessOptions) ([]byterange.DataBlock, error) {
	return byterange.FromBytesPositions(positions), nil
}

// DataURL base64-encodes data into a data: URI. The class argument is
// ignored and the returned Url carries no class; the orchestrator
// attaches the block's class when rendering.
func (Base) DataURL(data []byte, _ *byterange.Class) query.Url {
	return query.Url{URL: "data:;base64," + base64.StdEncoding.EncodeToString(data)}
}

// ApplyRange attaches a Range header (if non-open) to a Url's header map.
func ApplyRange(u query.Url, r byterange.BytesRange) query.Url {
	if r.IsOpen() {
		return u
	}
	if u.Headers == nil {
		u.Headers = map[string]string{}
	}
	u.Headers["Range"] = r.HTTPRangeHeader()
	return u
}
