package search

import (
	"context"
	"io"
	"sort"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/index"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

// bgzfEngine implements the BGZF-family algorithm of spec.md §4.6.1,
// shared by the BAM, VCF, and BCF pipelines. Each format wraps it and
// supplies its own header reader and record-skip function.
type bgzfEngine struct {
	Storage   storage.Storage
	Key       string
	Index     *index.BinningIndex
	GZI       []bgzf.GZIEntry
	FileSize  uint64
	EOFMarker []byte

	readHeader func(r *bgzf.Reader) (headerBoundary bgzf.VirtualPosition, err error)
	skipRecord func(r *bgzf.Reader) (bool, error)
}

func (e *bgzfEngine) openReader(ctx context.Context) (*bgzf.Reader, io.Closer, error) {
	rc, err := e.Storage.Get(ctx, e.Key, storage.GetOptions{})
	if err != nil {
		return nil, nil, err
	}
	return bgzf.NewReader(rc), rc, nil
}

// PositionAtEOF is this engine's format-specific file_size - len(EOF).
func (e *bgzfEngine) positionAtEOF() uint64 {
	return PositionAtEOF(e.FileSize, uint64(len(e.EOFMarker)))
}

// GetByteRangesForAll returns the whole body range, spec.md §4.6.1.
func (e *bgzfEngine) GetByteRangesForAll() []byterange.BytesPosition {
	return []byterange.BytesPosition{
		byterange.NewBytesPosition(byterange.U64Ptr(0), byterange.U64Ptr(e.positionAtEOF()), byterange.ClassPtr(byterange.ClassBody)),
	}
}

// GetHeaderEndOffset is first_index_position + 65536, spec.md §4.6.1.
func (e *bgzfEngine) GetHeaderEndOffset() uint64 {
	positions := e.Index.IndexPositions()
	if len(positions) == 0 {
		return 0
	}
	return positions[0] + bgzf.MaxBlockISize
}

// GetByteRangesForHeader implements the reader-advance algorithm of
// spec.md §4.6.1.
func (e *bgzfEngine) GetByteRangesForHeader(ctx context.Context) ([]byterange.BytesPosition, error) {
	r, closer, err := e.openReader(ctx)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	headerVP, err := e.readHeader(r)
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading container header")
	}

	var end uint64
	if headerVP.Uncompressed() == 0 {
		end = headerVP.Compressed()
	} else {
		for {
			ok, err := e.skipRecord(r)
			if err != nil {
				return nil, htserr.Wrap(htserr.ParseError, err, "advancing past header block")
			}
			if !ok {
				break
			}
			cur := r.VirtualPosition().Compressed()
			if cur > headerVP.Compressed() {
				end = cur
				break
			}
		}
	}

	if end == 0 {
		positions := e.Index.IndexPositions()
		if len(positions) > 1 {
			end = positions[1]
		}
		if end == 0 {
			end = e.positionAtEOF()
		}
	}

	return []byterange.BytesPosition{
		byterange.NewBytesPosition(byterange.U64Ptr(0), byterange.U64Ptr(end), byterange.ClassPtr(byterange.ClassHeader)),
	}, nil
}

// GetEOFDataBlock returns the fixed EOF marker bytes for this format.
func (e *bgzfEngine) GetEOFDataBlock() []byte {
	return e.EOFMarker
}

// byteRangesForReferenceSequence implements
// get_byte_ranges_for_reference_sequence_bgzf, spec.md §4.6.1: chunks
// from the binning index, ends resolved against GZI (or the
// index-positions fallback) with a shared, non-resetting cursor.
func (e *bgzfEngine) byteRangesForReferenceSequence(refSeqID int, interval byterange.Interval) ([]byterange.BytesPosition, error) {
	begOneBased, endOneBased := interval.ToOneBased()
	chunks, err := e.Index.Query(refSeqID, begOneBased, endOneBased)
	if err != nil {
		return nil, err
	}

	boundaries := e.boundaryOracle()
	cursor := 0
	posAtEOF := e.positionAtEOF()

	positions := make([]byterange.BytesPosition, 0, len(chunks))
	for _, c := range chunks {
		end := posAtEOF
		if v, ok := bgzf.NextBoundaryAfter(boundaries, &cursor, c.End.Compressed()); ok {
			end = v
		}
		positions = append(positions, byterange.NewBytesPosition(
			byterange.U64Ptr(c.Start.Compressed()),
			byterange.U64Ptr(end),
			byterange.ClassPtr(byterange.ClassBody),
		))
	}
	return positions, nil
}

// boundaryOracle returns the sorted compressed-offset boundaries used
// to resolve chunk ends: the GZI entries when present (tight BGZF block
// boundaries), or the index's own chunk/metadata endpoints otherwise
// (spec.md §9 "GZI fallback").
func (e *bgzfEngine) boundaryOracle() []uint64 {
	if len(e.GZI) > 0 {
		out := make([]uint64, len(e.GZI))
		for i, g := range e.GZI {
			out[i] = g.Compressed
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}
	return e.Index.IndexPositions()
}
