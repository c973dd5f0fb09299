// Package orchestrator implements the dispatch-by-format/class logic of
// spec.md §4.6.3: build the right search pipeline for a query, compute
// its byte positions, merge and classify them, and render the final
// ticket URLs.
package orchestrator

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/index"
	"github.com/ga4gh/htsget-gateway/internal/indexcache"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/search"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

// Orchestrator resolves a Query against a single storage backend and
// data-file key into a rendered htsget Response (spec.md §4.6.3).
type Orchestrator struct {
	Storage storage.Storage

	// IndexCache, when set, short-circuits repeated fetches of a data
	// file's companion index (BAI/CRAI/TBI/CSI/GZI) across requests.
	// Nil disables caching; every request re-fetches from Storage.
	IndexCache indexcache.Store
}

// New builds an Orchestrator over the given storage backend.
func New(st storage.Storage) *Orchestrator {
	return &Orchestrator{Storage: st}
}

// WithIndexCache sets the orchestrator's companion-index cache.
func (o *Orchestrator) WithIndexCache(c indexcache.Store) *Orchestrator {
	o.IndexCache = c
	return o
}

// openIndexKey opens the given companion index key, serving from
// IndexCache when present and populating it on a miss. Index files are
// small enough to buffer fully rather than streamed.
func (o *Orchestrator) openIndexKey(ctx context.Context, key string) (io.ReadCloser, error) {
	if o.IndexCache == nil {
		return o.Storage.Get(ctx, key, storage.GetOptions{})
	}

	if cached, err := o.IndexCache.GetWithMeta(ctx, key); err == nil {
		return cached.Body, nil
	}

	rc, err := o.Storage.Get(ctx, key, storage.GetOptions{})
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if err := o.IndexCache.Put(ctx, key, bytes.NewReader(data), indexcache.ObjectMeta{ContentLength: int64(len(data))}); err != nil {
		slog.Warn("caching index failed", "key", key, "error", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// indexSuffix returns the conventional companion-index file extension
// for a format.
func indexSuffix(format query.Format) string {
	switch format {
	case query.FormatBAM:
		return ".bai"
	case query.FormatCRAM:
		return ".crai"
	case query.FormatVCF:
		return ".tbi"
	case query.FormatBCF:
		return ".csi"
	default:
		return ""
	}
}

// Resolve runs the full orchestration algorithm for q against the
// object named by key, producing a rendered ticket Response.
func (o *Orchestrator) Resolve(ctx context.Context, q *query.Query, key string) (query.Response, error) {
	if err := o.Storage.Preprocess(ctx, key, storage.PreprocessOptions{Query: q}); err != nil {
		return query.Response{}, err
	}

	pipeline, err := o.buildPipeline(ctx, q, key)
	if err != nil {
		return query.Response{}, err
	}

	var positions []byterange.BytesPosition
	if q.Class == query.ClassHeader {
		positions, err = pipeline.GetByteRangesForHeader(ctx, q)
		if err != nil {
			return query.Response{}, err
		}
	} else {
		positions, err = o.bodyPositions(ctx, pipeline, q)
		if err != nil {
			return query.Response{}, err
		}
	}

	merged := byterange.MergeAll(positions)
	blocks, err := o.Storage.Postprocess(ctx, key, merged, storage.PostprocessOptions{Query: q})
	if err != nil {
		return query.Response{}, err
	}

	if q.Class != query.ClassHeader {
		if marker, ok := pipeline.GetEOFDataBlock(); ok {
			blocks = append(blocks, byterange.NewDataBlock(marker, byterange.ClassPtr(byterange.ClassBody)))
		}
	}
	blocks = byterange.UpdateClasses(blocks)

	urls, err := o.renderURLs(ctx, key, blocks)
	if err != nil {
		return query.Response{}, err
	}

	return query.Response{Format: q.Format, URLs: urls}, nil
}

// bodyPositions implements the Class=Body half of spec.md §4.6.3: the
// whole-file range when no reference is named, else the header bytes
// plus the reference/unmapped body ranges.
func (o *Orchestrator) bodyPositions(ctx context.Context, pipeline search.SearchAll, q *query.Query) ([]byterange.BytesPosition, error) {
	if q.ReferenceName == nil {
		return pipeline.GetByteRangesForAll(q)
	}

	searcher, ok := pipeline.(search.Search)
	if !ok {
		return nil, htserr.New(htserr.UnsupportedFormat, "format does not support reference-name search")
	}

	var body []byterange.BytesPosition
	var err error
	if *q.ReferenceName == "*" {
		reads, ok := pipeline.(search.SearchReads)
		if !ok {
			return nil, htserr.New(htserr.UnsupportedFormat, "format does not support unmapped-read search")
		}
		body, err = reads.GetByteRangesForUnmappedReads(ctx, q)
	} else {
		body, err = searcher.GetByteRangesForReferenceName(ctx, *q.ReferenceName, q)
	}
	if err != nil {
		return nil, err
	}

	header, err := pipeline.GetByteRangesForHeader(ctx, q)
	if err != nil {
		return nil, err
	}

	return append(header, body...), nil
}

// renderURLs converts data blocks into ticket Urls: Range blocks become
// signed/relative range URLs via storage.RangeURL; Data blocks become
// inline data URLs via storage.DataURL.
func (o *Orchestrator) renderURLs(ctx context.Context, key string, blocks []byterange.DataBlock) ([]query.Url, error) {
	urls := make([]query.Url, 0, len(blocks))
	for _, b := range blocks {
		if b.Range != nil {
			u, err := o.Storage.RangeURL(ctx, key, storage.RangeUrlOptions{Range: byterange.FromBytesPosition(*b.Range)})
			if err != nil {
				return nil, err
			}
			if b.Range.Class != nil {
				c := *b.Range.Class
				u.Class = &c
			}
			urls = append(urls, u)
			continue
		}
		u := o.Storage.DataURL(b.Data, b.DataClass)
		if b.DataClass != nil {
			c := *b.DataClass
			u.Class = &c
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// buildPipeline loads the companion index (and, for BGZF formats, the
// optional GZI) and constructs the matching search pipeline.
func (o *Orchestrator) buildPipeline(ctx context.Context, q *query.Query, key string) (search.SearchAll, error) {
	fileSize, err := o.Storage.Head(ctx, key, storage.HeadOptions{})
	if err != nil {
		return nil, err
	}

	switch q.Format {
	case query.FormatBAM:
		idx, err := o.loadBAI(ctx, key)
		if err != nil {
			return nil, err
		}
		gzi := o.loadGZI(ctx, key)
		return search.NewBAMSearch(o.Storage, key, idx, gzi, fileSize), nil
	case query.FormatVCF:
		idx, err := o.loadTBIOrCSI(ctx, key)
		if err != nil {
			return nil, err
		}
		gzi := o.loadGZI(ctx, key)
		return search.NewVCFSearch(o.Storage, key, idx, gzi, fileSize), nil
	case query.FormatBCF:
		idx, err := o.loadCSI(ctx, key)
		if err != nil {
			return nil, err
		}
		gzi := o.loadGZI(ctx, key)
		return search.NewBCFSearch(o.Storage, key, idx, gzi, fileSize), nil
	case query.FormatCRAM:
		records, err := o.loadCRAI(ctx, key)
		if err != nil {
			return nil, err
		}
		return search.NewCRAMSearch(o.Storage, key, records, fileSize), nil
	default:
		return nil, htserr.New(htserr.UnsupportedFormat, "unsupported format: %s", q.Format)
	}
}

func (o *Orchestrator) loadBAI(ctx context.Context, key string) (*index.BinningIndex, error) {
	r, err := o.openIndexKey(ctx, key+".bai")
	if err != nil {
		return nil, htserr.Wrap(htserr.NotFound, err, "BAI index not found for %s", key)
	}
	defer r.Close()
	return index.ReadBAI(r)
}

func (o *Orchestrator) loadCRAI(ctx context.Context, key string) ([]index.CRAIRecord, error) {
	r, err := o.openIndexKey(ctx, key+".crai")
	if err != nil {
		return nil, htserr.Wrap(htserr.NotFound, err, "CRAI index not found for %s", key)
	}
	defer r.Close()
	return index.ReadCRAI(r)
}

func (o *Orchestrator) loadTBIOrCSI(ctx context.Context, key string) (*index.BinningIndex, error) {
	if r, err := o.openIndexKey(ctx, key+".tbi"); err == nil {
		defer r.Close()
		return index.ReadTBI(r)
	}
	r, err := o.openIndexKey(ctx, key+".csi")
	if err != nil {
		return nil, htserr.Wrap(htserr.NotFound, err, "no TBI or CSI index found for %s", key)
	}
	defer r.Close()
	return index.ReadCSI(r)
}

func (o *Orchestrator) loadCSI(ctx context.Context, key string) (*index.BinningIndex, error) {
	r, err := o.openIndexKey(ctx, key+indexSuffix(query.FormatBCF))
	if err != nil {
		return nil, htserr.Wrap(htserr.NotFound, err, "CSI index not found for %s", key)
	}
	defer r.Close()
	return index.ReadCSI(r)
}

// loadGZI returns the auxiliary GZI table if present, or nil if absent
// — the engine falls back to the index's own chunk endpoints in that
// case (spec.md §9 "GZI fallback").
func (o *Orchestrator) loadGZI(ctx context.Context, key string) []bgzf.GZIEntry {
	r, err := o.openIndexKey(ctx, key+".gzi")
	if err != nil {
		return nil
	}
	defer r.Close()
	entries, err := bgzf.ReadGZI(r)
	if err != nil {
		return nil
	}
	return entries
}
