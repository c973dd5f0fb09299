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

// VCFSearch implements Search for VCF.gz/TBI, spec.md §4.6.1. Reference
// names are resolved against the TBI index's own name table.
type VCFSearch struct {
	engine *bgzfEngine
	index  *index.BinningIndex
}

// NewVCFSearch builds a VCF search pipeline over a parsed TBI (or CSI)
// index and the storage backend holding the VCF.gz file.
func NewVCFSearch(st storage.Storage, key string, idx *index.BinningIndex, gzi []bgzf.GZIEntry, fileSize uint64) *VCFSearch {
	e := &bgzfEngine{
		Storage:   st,
		Key:       key,
		Index:     idx,
		GZI:       gzi,
		FileSize:  fileSize,
		EOFMarker: bgzf.EOF,
	}
	e.readHeader = func(r *bgzf.Reader) (bgzf.VirtualPosition, error) {
		return container.ReadVCFHeaderEnd(r)
	}
	e.skipRecord = skipTextLine
	return &VCFSearch{engine: e, index: idx}
}

func (s *VCFSearch) GetByteRangesForAll(q *query.Query) ([]byterange.BytesPosition, error) {
	return s.engine.GetByteRangesForAll(), nil
}

func (s *VCFSearch) GetHeaderEndOffset(ctx context.Context) (uint64, error) {
	return s.engine.GetHeaderEndOffset(), nil
}

func (s *VCFSearch) GetByteRangesForHeader(ctx context.Context, q *query.Query) ([]byterange.BytesPosition, error) {
	return s.engine.GetByteRangesForHeader(ctx)
}

func (s *VCFSearch) GetEOFDataBlock() ([]byte, bool) {
	return s.engine.GetEOFDataBlock(), true
}

func (s *VCFSearch) GetByteRangesForReferenceName(ctx context.Context, name string, q *query.Query) ([]byterange.BytesPosition, error) {
	refSeqID, ok := resolveReferenceIndex(ctx, s.index.ReferenceSequenceNames(), name)
	if !ok {
		return nil, htserr.New(htserr.NotFound, "reference name not found: %s", name)
	}
	return s.engine.byteRangesForReferenceSequence(refSeqID, q.Interval)
}
