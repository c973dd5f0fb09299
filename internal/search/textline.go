package search

import (
	"io"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
)

// skipTextLine advances r past one newline-terminated line, used as the
// VCF "record" unit when the header-boundary algorithm needs to walk
// forward to the next BGZF block boundary. Returns false at EOF.
func skipTextLine(r *bgzf.Reader) (bool, error) {
	var buf [1]byte
	read := false
	for {
		_, err := io.ReadFull(r, buf[:])
		if err == io.EOF {
			return read, nil
		}
		if err != nil {
			return false, err
		}
		read = true
		if buf[0] == '\n' {
			return true, nil
		}
	}
}
