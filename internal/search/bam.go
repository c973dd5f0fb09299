package search

import (
	"context"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/container"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/index"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

// BAMSearch implements SearchReads for BAM/BAI, spec.md §4.6.1.
type BAMSearch struct {
	engine *bgzfEngine
	index  *index.BinningIndex
}

// NewBAMSearch builds a BAM search pipeline over an already-parsed BAI
// index and the storage backend holding the BAM file itself.
func NewBAMSearch(st storage.Storage, key string, idx *index.BinningIndex, gzi []bgzf.GZIEntry, fileSize uint64) *BAMSearch {
	e := &bgzfEngine{
		Storage:   st,
		Key:       key,
		Index:     idx,
		GZI:       gzi,
		FileSize:  fileSize,
		EOFMarker: bgzf.EOF,
	}
	e.readHeader = func(r *bgzf.Reader) (bgzf.VirtualPosition, error) {
		_, vp, err := container.ReadBAMHeader(r)
		return vp, err
	}
	e.skipRecord = container.SkipBAMRecord
	return &BAMSearch{engine: e, index: idx}
}

func (s *BAMSearch) GetByteRangesForAll(q *query.Query) ([]byterange.BytesPosition, error) {
	return s.engine.GetByteRangesForAll(), nil
}

func (s *BAMSearch) GetHeaderEndOffset(ctx context.Context) (uint64, error) {
	return s.engine.GetHeaderEndOffset(), nil
}

func (s *BAMSearch) GetByteRangesForHeader(ctx context.Context, q *query.Query) ([]byterange.BytesPosition, error) {
	return s.engine.GetByteRangesForHeader(ctx)
}

func (s *BAMSearch) GetEOFDataBlock() ([]byte, bool) {
	return s.engine.GetEOFDataBlock(), true
}

func (s *BAMSearch) GetByteRangesForReferenceName(ctx context.Context, name string, q *query.Query) ([]byterange.BytesPosition, error) {
	if name == "*" {
		return s.GetByteRangesForUnmappedReads(ctx, q)
	}

	r, closer, err := s.engine.openReader(ctx)
	if err != nil {
		return nil, err
	}
	header, _, err := container.ReadBAMHeader(r)
	closer.Close()
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading BAM header")
	}

	refSeqID, ok := header.IndexOfName(name)
	if !ok {
		return nil, htserr.New(htserr.NotFound, "reference name not found: %s", name)
	}

	return s.engine.byteRangesForReferenceSequence(refSeqID, q.Interval)
}

// GetByteRangesForUnmappedReads implements spec.md §4.6.1's unmapped
// reads rule: from the last linear-index bin's first record start (or
// the header end if the index carries none) through to EOF.
func (s *BAMSearch) GetByteRangesForUnmappedReads(ctx context.Context, q *query.Query) ([]byterange.BytesPosition, error) {
	var start uint64
	if vp, ok := s.index.LastFirstRecordStartPosition(); ok {
		start = vp.Compressed()
	} else {
		start = s.engine.GetHeaderEndOffset()
	}
	return []byterange.BytesPosition{
		byterange.NewBytesPosition(byterange.U64Ptr(start), byterange.U64Ptr(s.engine.positionAtEOF()), byterange.ClassPtr(byterange.ClassBody)),
	}, nil
}
