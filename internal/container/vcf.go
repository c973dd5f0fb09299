package container

import (
	"io"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
)

// ReadVCFHeaderEnd advances a positioned bgzf.Reader past every header
// line (lines beginning with '#', including the final #CHROM column
// line) and returns the virtual position of the first data record.
// VCF carries no binary reference-sequence table of its own; reference
// names for a VCF query come from its TBI/CSI index instead.
func ReadVCFHeaderEnd(r *bgzf.Reader) (bgzf.VirtualPosition, error) {
	pos := r.VirtualPosition()
	for {
		b, err := readByte(r)
		if err == io.EOF {
			return pos, nil
		}
		if err != nil {
			return 0, err
		}
		if b != '#' {
			return pos, nil
		}
		if err := skipLine(r); err != nil {
			if err == io.EOF {
				return r.VirtualPosition(), nil
			}
			return 0, err
		}
		pos = r.VirtualPosition()
	}
}

func skipLine(r *bgzf.Reader) error {
	for {
		b, err := readByte(r)
		if err != nil {
			return err
		}
		if b == '\n' {
			return nil
		}
	}
}

func readByte(r *bgzf.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
