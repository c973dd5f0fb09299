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

// BCFSearch implements Search for BCF/CSI, spec.md §4.6.1. Reference
// names are resolved against the BCF header's own ##contig declarations
// (CSI does not always carry a name table the way TBI does).
type BCFSearch struct {
	engine *bgzfEngine
	st     storage.Storage
	key    string
}

// NewBCFSearch builds a BCF search pipeline over a parsed CSI index and
// the storage backend holding the BCF file.
func NewBCFSearch(st storage.Storage, key string, idx *index.BinningIndex, gzi []bgzf.GZIEntry, fileSize uint64) *BCFSearch {
	e := &bgzfEngine{
		Storage:   st,
		Key:       key,
		Index:     idx,
		GZI:       gzi,
		FileSize:  fileSize,
		EOFMarker: bgzf.EOF,
	}
	e.readHeader = func(r *bgzf.Reader) (bgzf.VirtualPosition, error) {
		_, vp, err := container.ReadBCFHeader(r)
		return vp, err
	}
	e.skipRecord = container.SkipBCFRecord
	return &BCFSearch{engine: e, st: st, key: key}
}

func (s *BCFSearch) GetByteRangesForAll(q *query.Query) ([]byterange.BytesPosition, error) {
	return s.engine.GetByteRangesForAll(), nil
}

func (s *BCFSearch) GetHeaderEndOffset(ctx context.Context) (uint64, error) {
	return s.engine.GetHeaderEndOffset(), nil
}

func (s *BCFSearch) GetByteRangesForHeader(ctx context.Context, q *query.Query) ([]byterange.BytesPosition, error) {
	return s.engine.GetByteRangesForHeader(ctx)
}

func (s *BCFSearch) GetEOFDataBlock() ([]byte, bool) {
	return s.engine.GetEOFDataBlock(), true
}

func (s *BCFSearch) GetByteRangesForReferenceName(ctx context.Context, name string, q *query.Query) ([]byterange.BytesPosition, error) {
	r, closer, err := s.engine.openReader(ctx)
	if err != nil {
		return nil, err
	}
	header, _, err := container.ReadBCFHeader(r)
	closer.Close()
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading BCF header")
	}

	refSeqID, ok := resolveReferenceIndex(ctx, header.ReferenceSequenceNames, name)
	if !ok {
		return nil, htserr.New(htserr.NotFound, "reference name not found: %s", name)
	}
	return s.engine.byteRangesForReferenceSequence(refSeqID, q.Interval)
}
