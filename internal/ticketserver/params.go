package ticketserver

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/query"
)

// region is one referenceName/start/end triple: the top-level query
// parameters form an implicit single region, and a POST body's
// "regions" array supplies one explicitly per entry.
type region struct {
	ReferenceName *string
	Start         *uint32
	End           *uint32
}

// requestParams is the format-agnostic parse of either a GET query
// string or a POST body, before it is fanned out into one query.Query
// per region.
type requestParams struct {
	Format           string
	Class            string
	Fields           []string
	Tags             []string
	NoTags           []string
	EncryptionScheme string
	Regions          []region
}

func splitCommaList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseGETParams(q url.Values) requestParams {
	get := func(k string) string {
		return q.Get(k)
	}

	var reg region
	if v := get("referenceName"); v != "" {
		reg.ReferenceName = &v
	}
	if v := get("start"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			u := uint32(n)
			reg.Start = &u
		}
	}
	if v := get("end"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			u := uint32(n)
			reg.End = &u
		}
	}

	return requestParams{
		Format:           get("format"),
		Class:            get("class"),
		Fields:           splitCommaList(get("fields")),
		Tags:             splitCommaList(get("tags")),
		NoTags:           splitCommaList(get("notags")),
		EncryptionScheme: get("encryptionScheme"),
		Regions:          []region{reg},
	}
}

// postBody is the JSON shape of a POST /reads or /variants request,
// spec.md §6.1.
type postBody struct {
	Format           string           `json:"format"`
	Class            string           `json:"class"`
	ReferenceName    *string          `json:"referenceName"`
	Start            *uint32          `json:"start"`
	End              *uint32          `json:"end"`
	Fields           []string         `json:"fields"`
	Tags             []string         `json:"tags"`
	NoTags           []string         `json:"notags"`
	EncryptionScheme string           `json:"encryptionScheme"`
	Regions          []postBodyRegion `json:"regions"`
}

type postBodyRegion struct {
	ReferenceName string  `json:"referenceName"`
	Start         *uint32 `json:"start"`
	End           *uint32 `json:"end"`
}

func paramsFromPostBody(b postBody) requestParams {
	params := requestParams{
		Format:           b.Format,
		Class:            b.Class,
		Fields:           b.Fields,
		Tags:             b.Tags,
		NoTags:           b.NoTags,
		EncryptionScheme: b.EncryptionScheme,
	}
	if len(b.Regions) > 0 {
		params.Regions = make([]region, len(b.Regions))
		for i, r := range b.Regions {
			name := r.ReferenceName
			params.Regions[i] = region{ReferenceName: &name, Start: r.Start, End: r.End}
		}
		return params
	}
	params.Regions = []region{{ReferenceName: b.ReferenceName, Start: b.Start, End: b.End}}
	return params
}

// toQuery validates params for one region against allowedFormats and
// builds the core query.Query, per spec.md §6.1's input validation
// rules.
func toQuery(id string, params requestParams, reg region, allowedFormats []query.Format) (*query.Query, error) {
	format, ok := query.ParseFormat(params.Format)
	if !ok {
		if params.Format == "" && len(allowedFormats) > 0 {
			format = allowedFormats[0]
		} else {
			return nil, htserr.New(htserr.UnsupportedFormat, "unsupported format %q", params.Format)
		}
	}
	if !formatAllowed(format, allowedFormats) {
		return nil, htserr.New(htserr.UnsupportedFormat, "format %q not served by this endpoint", format)
	}

	class := query.ClassBody
	if params.Class != "" {
		class = query.Class(params.Class)
		if class != query.ClassHeader && class != query.ClassBody {
			return nil, htserr.New(htserr.InvalidInput, "unsupported class %q", params.Class)
		}
	}

	if reg.Start != nil && reg.ReferenceName == nil {
		return nil, htserr.New(htserr.InvalidInput, "start requires referenceName")
	}
	if reg.Start != nil && reg.End != nil && *reg.Start > *reg.End {
		return nil, htserr.New(htserr.InvalidRange, "start must be <= end")
	}
	if intersects(params.Tags, params.NoTags) {
		return nil, htserr.New(htserr.InvalidInput, "tags and notags must not intersect")
	}

	return &query.Query{
		ID:               id,
		Format:           format,
		Class:            class,
		ReferenceName:    reg.ReferenceName,
		Interval:         byterange.NewInterval(reg.Start, reg.End),
		Fields:           params.Fields,
		Tags:             params.Tags,
		NoTags:           params.NoTags,
		EncryptionScheme: params.EncryptionScheme,
	}, nil
}

func formatAllowed(f query.Format, allowed []query.Format) bool {
	for _, a := range allowed {
		if a == f {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	for _, v := range a {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
