// Package query defines the htsget Query/ticket data model of spec.md
// §3/§4.9: the incoming Query record, the outgoing Response ticket, and
// the supporting Url/Headers types.
package query

import (
	"net/textproto"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
)

// Format is one of the four formats the gateway serves.
type Format string

const (
	FormatBAM Format = "BAM"
	FormatCRAM Format = "CRAM"
	FormatVCF Format = "VCF"
	FormatBCF Format = "BCF"
)

// ParseFormat validates a format string case-insensitively against the
// four supported formats.
func ParseFormat(s string) (Format, bool) {
	switch Format(upper(s)) {
	case FormatBAM:
		return FormatBAM, true
	case FormatCRAM:
		return FormatCRAM, true
	case FormatVCF:
		return FormatVCF, true
	case FormatBCF:
		return FormatBCF, true
	default:
		return "", false
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

// Class is re-exported from byterange so callers of this package don't
// need to import it directly for the common case of tagging a Query's
// requested class.
type Class = byterange.Class

const (
	ClassHeader = byterange.ClassHeader
	ClassBody   = byterange.ClassBody
)

// Headers is a case-insensitive key→value map, matching the semantics of
// net/http.Header but keyed the way htsget tickets render them (a single
// string value per header, since the only multi-valued header the core
// emits is Range, which is always singular).
type Headers map[string]string

// Get performs a case-insensitive header lookup.
func (h Headers) Get(key string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h[textproto.CanonicalMIMEHeaderKey(key)]
	return v, ok
}

// Set stores a header under its canonical key.
func (h Headers) Set(key, value string) {
	h[textproto.CanonicalMIMEHeaderKey(key)] = value
}

// NewHeaders builds an empty canonicalized header map.
func NewHeaders() Headers {
	return Headers{}
}

// Query is the core's representation of a single htsget search request.
// It is immutable after construction, except for ID which the resolver
// rewrites in place (spec.md §4.7 resolve_request).
type Query struct {
	ID              string
	Format          Format
	Class           Class
	ReferenceName   *string
	Interval        byterange.Interval
	Fields          []string
	Tags            []string
	NoTags          []string
	EncryptionScheme string
	RequestHeaders  Headers
}

// SetID rewrites the query's id. Used only by the resolver.
func (q *Query) SetID(id string) { q.ID = id }

// IsUnmapped reports whether the reference name names the unmapped-reads
// pseudo-reference "*".
func (q *Query) IsUnmapped() bool {
	return q.ReferenceName != nil && *q.ReferenceName == "*"
}

// Url is a single ticket entry: a fetchable URL, optional headers, and
// an optional class tag. Spec.md §3/§6.1.
type Url struct {
	URL     string          `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Class   *Class          `json:"class,omitempty"`
}

// Response is the JSON ticket body returned to the client, wrapped under
// the "htsget" key by the HTTP adapter per spec.md §6.1.
type Response struct {
	Format Format `json:"format"`
	URLs   []Url  `json:"urls"`
}

// Ticket wraps Response under the "htsget" envelope key, matching the
// response schema of spec.md §6.1.
type Ticket struct {
	HtsGet Response `json:"htsget"`
}
