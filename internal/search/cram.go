package search

import (
	"context"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/container"
	"github.com/ga4gh/htsget-gateway/internal/cramformat"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/index"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

// CRAMSearch implements SearchReads for CRAM/CRAI, spec.md §4.6.2. Byte
// ranges are derived entirely from the CRAI index's sorted offsets;
// there is no BGZF block structure to align to.
type CRAMSearch struct {
	st       storage.Storage
	key      string
	records  []index.CRAIRecord
	fileSize uint64
}

// NewCRAMSearch builds a CRAM search pipeline over a parsed CRAI index
// and the storage backend holding the CRAM file itself.
func NewCRAMSearch(st storage.Storage, key string, records []index.CRAIRecord, fileSize uint64) *CRAMSearch {
	return &CRAMSearch{st: st, key: key, records: records, fileSize: fileSize}
}

func (s *CRAMSearch) positionAtEOF() uint64 {
	return PositionAtEOF(s.fileSize, uint64(len(cramformat.EOF)))
}

func (s *CRAMSearch) GetByteRangesForAll(q *query.Query) ([]byterange.BytesPosition, error) {
	return []byterange.BytesPosition{
		byterange.NewBytesPosition(byterange.U64Ptr(0), byterange.U64Ptr(s.positionAtEOF()), byterange.ClassPtr(byterange.ClassBody)),
	}, nil
}

// GetHeaderEndOffset is the minimum record offset across the CRAI
// index: the CRAM header container ends where the first data
// container begins, spec.md §4.6.2.
func (s *CRAMSearch) GetHeaderEndOffset(ctx context.Context) (uint64, error) {
	if len(s.records) == 0 {
		return s.positionAtEOF(), nil
	}
	min := s.records[0].Offset
	for _, rec := range s.records[1:] {
		if rec.Offset < min {
			min = rec.Offset
		}
	}
	return min, nil
}

func (s *CRAMSearch) GetByteRangesForHeader(ctx context.Context, q *query.Query) ([]byterange.BytesPosition, error) {
	end, err := s.GetHeaderEndOffset(ctx)
	if err != nil {
		return nil, err
	}
	return []byterange.BytesPosition{
		byterange.NewBytesPosition(byterange.U64Ptr(0), byterange.U64Ptr(end), byterange.ClassPtr(byterange.ClassHeader)),
	}, nil
}

func (s *CRAMSearch) GetEOFDataBlock() ([]byte, bool) {
	return cramformat.EOF, true
}

func (s *CRAMSearch) GetByteRangesForReferenceName(ctx context.Context, name string, q *query.Query) ([]byterange.BytesPosition, error) {
	if name == "*" {
		return s.GetByteRangesForUnmappedReads(ctx, q)
	}

	rc, err := s.st.Get(ctx, s.key, storage.GetOptions{})
	if err != nil {
		return nil, err
	}
	header, err := container.ReadCRAMHeader(rc)
	rc.Close()
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading CRAM header")
	}

	refSeqID, ok := resolveReferenceIndex(ctx, header.ReferenceSequenceNames, name)
	if !ok {
		return nil, htserr.New(htserr.NotFound, "reference name not found: %s", name)
	}

	begOneBased, endOneBased := q.Interval.ToOneBased()
	predicate := func(rec index.CRAIRecord) bool {
		return rec.RefSeqID != nil && *rec.RefSeqID == refSeqID
	}
	return s.bytesRangesFromIndex(predicate, true, begOneBased, endOneBased), nil
}

func (s *CRAMSearch) GetByteRangesForUnmappedReads(ctx context.Context, q *query.Query) ([]byterange.BytesPosition, error) {
	predicate := func(rec index.CRAIRecord) bool {
		return rec.RefSeqID == nil
	}
	return s.bytesRangesFromIndex(predicate, false, 0, 0), nil
}

// bytesRangesFromIndex implements spec.md §4.6.2's bytes_ranges_from_index:
// pair consecutive CRAI entries, emit [record.offset, next.offset) for
// every matching record whose interval overlaps the query (when
// checkOverlap is set), and [last.offset, position_at_eof) for a
// matching final record.
func (s *CRAMSearch) bytesRangesFromIndex(predicate func(index.CRAIRecord) bool, checkOverlap bool, begOneBased, endOneBased int64) []byterange.BytesPosition {
	var positions []byterange.BytesPosition
	for i, rec := range s.records {
		if !predicate(rec) {
			continue
		}
		if checkOverlap && !rec.Overlaps1Based(begOneBased, endOneBased) {
			continue
		}
		var end uint64
		if i+1 < len(s.records) {
			end = s.records[i+1].Offset
		} else {
			end = s.positionAtEOF()
		}
		positions = append(positions, byterange.NewBytesPosition(
			byterange.U64Ptr(rec.Offset),
			byterange.U64Ptr(end),
			byterange.ClassPtr(byterange.ClassBody),
		))
	}
	return positions
}
