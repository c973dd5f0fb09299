package index

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

// CRAIRecord is one line of a CRAI index: a tab-separated record naming
// the reference sequence (absent for unmapped reads), the alignment
// start/span, and the byte offset of the container it lives in
// (spec.md §4.4).
type CRAIRecord struct {
	RefSeqID       *int
	AlignmentStart *int64
	AlignmentSpan  int64
	Offset         uint64
	SliceOffset    uint64
	SliceSize      uint64
}

// Overlaps1Based reports whether the record's 1-based interval
// [AlignmentStart, AlignmentStart+AlignmentSpan], both ends inclusive,
// overlaps the given
// 1-based closed interval. Unmapped records (absent AlignmentStart)
// never overlap a positioned query.
func (r CRAIRecord) Overlaps1Based(begOneBased, endOneBased int64) bool {
	if r.AlignmentStart == nil {
		return false
	}
	start := *r.AlignmentStart
	end := start + r.AlignmentSpan
	return start <= endOneBased && end >= begOneBased
}

// ReadCRAI parses a CRAM index (.crai): a gzip-compressed, newline
// delimited, tab-separated text file, sorted by offset.
func ReadCRAI(r io.Reader) ([]CRAIRecord, error) {
	decompressed, err := decompressWhole(r)
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "decompressing CRAI")
	}

	var records []CRAIRecord
	scanner := bufio.NewScanner(strings.NewReader(string(decompressed)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseCRAILine(line)
		if err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "parsing CRAI line %q", line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "scanning CRAI")
	}
	return records, nil
}

// parseCRAILine parses one CRAI record: reference_sequence_id,
// alignment_start, alignment_span, container_offset, slice_offset,
// slice_size. reference_sequence_id == -1 means unmapped.
func parseCRAILine(line string) (CRAIRecord, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 6 {
		return CRAIRecord{}, htserr.New(htserr.ParseError, "expected 6 fields, got %d", len(fields))
	}
	nums := make([]int64, 6)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return CRAIRecord{}, err
		}
		nums[i] = v
	}

	rec := CRAIRecord{
		AlignmentSpan: nums[2],
		Offset:        uint64(nums[3]),
		SliceOffset:   uint64(nums[4]),
		SliceSize:     uint64(nums[5]),
	}
	if nums[0] != -1 {
		id := int(nums[0])
		rec.RefSeqID = &id
	}
	if nums[1] != 0 || nums[0] != -1 {
		start := nums[1]
		rec.AlignmentStart = &start
	}
	return rec, nil
}
