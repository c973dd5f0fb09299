// Package search implements the per-format pipelines of spec.md §4.6:
// given an index and a container header, compute the minimal set of
// byte positions that, concatenated, form a valid file covering the
// requested region.
package search

import (
	"context"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/query"
)

// SearchAll is implemented by every format pipeline.
type SearchAll interface {
	// GetByteRangesForAll returns the whole-file body range.
	GetByteRangesForAll(q *query.Query) ([]byterange.BytesPosition, error)
	// GetHeaderEndOffset returns the offset at which the header ends.
	GetHeaderEndOffset(ctx context.Context) (uint64, error)
	// GetByteRangesForHeader returns the header range.
	GetByteRangesForHeader(ctx context.Context, q *query.Query) ([]byterange.BytesPosition, error)
	// GetEOFDataBlock returns the format's fixed EOF marker, if any.
	GetEOFDataBlock() ([]byte, bool)
}

// Search adds format-specific reference-name resolution.
type Search interface {
	SearchAll
	GetByteRangesForReferenceName(ctx context.Context, name string, q *query.Query) ([]byterange.BytesPosition, error)
}

// SearchReads is implemented by BAM and CRAM, which additionally
// distinguish unmapped reads.
type SearchReads interface {
	Search
	GetByteRangesForUnmappedReads(ctx context.Context, q *query.Query) ([]byterange.BytesPosition, error)
}

// PositionAtEOF returns file_size - eofMarkerLen, the offset of the
// start of the format's fixed EOF marker.
func PositionAtEOF(fileSize uint64, eofMarkerLen uint64) uint64 {
	if fileSize < eofMarkerLen {
		return 0
	}
	return fileSize - eofMarkerLen
}
