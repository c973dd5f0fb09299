package container

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

var bcfMagic = [3]byte{'B', 'C', 'F'}

// ReadBCFHeader reads a BCF header from a positioned bgzf.Reader and
// returns the contig names parsed out of its embedded VCF header text
// (in ##contig declaration order, which is the order BCF record
// rid fields index into), together with the virtual position of the
// first record.
func ReadBCFHeader(r *bgzf.Reader) (Header, bgzf.VirtualPosition, error) {
	var magic [3]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, 0, htserr.Wrap(htserr.ParseError, err, "reading BCF magic")
	}
	if magic != bcfMagic {
		return Header{}, 0, htserr.New(htserr.ParseError, "not a BCF file (bad magic)")
	}

	var versions [2]byte
	if _, err := io.ReadFull(r, versions[:]); err != nil {
		return Header{}, 0, err
	}

	lText, err := readU32LE(r)
	if err != nil {
		return Header{}, 0, err
	}
	text := make([]byte, lText)
	if _, err := io.ReadFull(r, text); err != nil {
		return Header{}, 0, err
	}

	return Header{ReferenceSequenceNames: parseContigNames(string(text))}, r.VirtualPosition(), nil
}

// SkipBCFRecord advances r past one record, returning false at end of
// stream.
func SkipBCFRecord(r *bgzf.Reader) (bool, error) {
	lShared, err := readU32LE(r)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	lIndiv, err := readU32LE(r)
	if err != nil {
		return false, err
	}
	if _, err := io.CopyN(io.Discard, r, int64(lShared)+int64(lIndiv)); err != nil {
		return false, err
	}
	return true, nil
}

func parseContigNames(headerText string) []string {
	var names []string
	for _, line := range strings.Split(headerText, "\n") {
		line = strings.TrimRight(line, "\r\x00")
		if !strings.HasPrefix(line, "##contig=<") {
			continue
		}
		body := strings.TrimSuffix(strings.TrimPrefix(line, "##contig=<"), ">")
		for _, kv := range strings.Split(body, ",") {
			if strings.HasPrefix(kv, "ID=") {
				names = append(names, strings.TrimPrefix(kv, "ID="))
				break
			}
		}
	}
	return names
}

func readU32LE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
