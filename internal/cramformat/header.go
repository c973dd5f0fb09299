package cramformat

import (
	"bufio"
	"strings"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

// Header is the information spec-driven CRAM header-end resolution and
// reference-name lookup need: the embedded SAM header text, and the
// reference sequence names in the order their @SQ lines appear (this
// is the order CRAM container ref_seq_id values index into).
type Header struct {
	Text                  string
	ReferenceSequenceNames []string
}

// ReadHeader reads the CRAM file definition and header container from r,
// returning the embedded SAM header text and its reference names.
func ReadHeader(r *bufio.Reader) (Header, error) {
	if _, err := ReadFileDefinition(r); err != nil {
		return Header{}, err
	}

	containerHeader, err := ReadContainerHeader(r)
	if err != nil {
		return Header{}, htserr.Wrap(htserr.ParseError, err, "reading CRAM header container")
	}
	if containerHeader.NumBlocks < 1 {
		return Header{}, htserr.New(htserr.ParseError, "CRAM header container has no blocks")
	}

	blockHeader, payload, err := ReadBlock(r)
	if err != nil {
		return Header{}, htserr.Wrap(htserr.ParseError, err, "reading CRAM header block")
	}
	if blockHeader.ContentType != BlockFileHeader {
		return Header{}, htserr.New(htserr.ParseError, "expected CRAM file header block, got content type %d", blockHeader.ContentType)
	}

	text, err := parseHeaderBlockPayload(payload)
	if err != nil {
		return Header{}, err
	}

	return Header{Text: text, ReferenceSequenceNames: parseSQNames(text)}, nil
}

// parseHeaderBlockPayload strips the int32 length prefix the CRAM file
// header block wraps the SAM header text in.
func parseHeaderBlockPayload(payload []byte) (string, error) {
	if len(payload) < 4 {
		return "", htserr.New(htserr.ParseError, "truncated CRAM file header block")
	}
	length := int32(payload[0]) | int32(payload[1])<<8 | int32(payload[2])<<16 | int32(payload[3])<<24
	payload = payload[4:]
	if int(length) > len(payload) {
		length = int32(len(payload))
	}
	return string(payload[:length]), nil
}

// parseSQNames extracts SN: values from @SQ lines of a SAM header, in
// order of appearance.
func parseSQNames(headerText string) []string {
	var names []string
	for _, line := range strings.Split(headerText, "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "@SQ") {
			continue
		}
		for _, field := range strings.Split(line, "\t") {
			if strings.HasPrefix(field, "SN:") {
				names = append(names, strings.TrimPrefix(field, "SN:"))
				break
			}
		}
	}
	return names
}
