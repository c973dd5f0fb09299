// Package urlstorage implements the Storage abstraction by rewriting
// keys onto a remote HTTP endpoint and forwarding request headers (minus
// a configurable blacklist), per spec.md §4.2's "Remote HTTP:" case.
package urlstorage

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

// Storage rewrites keys onto url_prefix/key and fetches/serves them over
// HTTP. response_url is the prefix clients are told to fetch ranges
// from; it may differ from url_prefix (e.g. an internal vs. public
// hostname for the same objects).
type Storage struct {
	storage.Base
	client        *http.Client
	urlPrefix     string
	responseURL   string
	forwardHeaders bool
	headerBlacklist map[string]struct{}
}

// New builds a remote-HTTP storage backend.
func New(client *http.Client, urlPrefix, responseURL string, forwardHeaders bool, blacklist []string) *Storage {
	bl := make(map[string]struct{}, len(blacklist))
	for _, h := range blacklist {
		bl[http.CanonicalHeaderKey(h)] = struct{}{}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Storage{
		client:          client,
		urlPrefix:       strings.TrimSuffix(urlPrefix, "/"),
		responseURL:     strings.TrimSuffix(responseURL, "/"),
		forwardHeaders:  forwardHeaders,
		headerBlacklist: bl,
	}
}

func (s *Storage) fetchURL(key string) string {
	return s.urlPrefix + "/" + key
}

func (s *Storage) responseURLFor(key string) string {
	return s.responseURL + "/" + key
}

func (s *Storage) newRequest(ctx context.Context, method, key string, rangeHeader string, requestHeaders query.Headers) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.fetchURL(key), nil)
	if err != nil {
		return nil, htserr.Wrap(htserr.URLParseError, err, "building request for key %q", key)
	}
	if s.forwardHeaders {
		for k, v := range requestHeaders {
			if _, blocked := s.headerBlacklist[http.CanonicalHeaderKey(k)]; blocked {
				continue
			}
			req.Header.Set(k, v)
		}
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	return req, nil
}

// Get fetches the object, or a range of it, from the remote endpoint.
func (s *Storage) Get(ctx context.Context, key string, opts storage.GetOptions) (io.ReadCloser, error) {
	req, err := s.newRequest(ctx, http.MethodGet, key, opts.Range.HTTPRangeHeader(), opts.RequestHeaders)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, htserr.Wrap(htserr.IOError, err, "fetching key %q", key)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, htserr.New(htserr.KeyNotFound, "key %q not found upstream", key)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, htserr.New(htserr.IOError, "upstream returned status %d for key %q", resp.StatusCode, key)
	}
	return resp.Body, nil
}

// Head issues a HEAD request to discover the object's length.
func (s *Storage) Head(ctx context.Context, key string, opts storage.HeadOptions) (uint64, error) {
	req, err := s.newRequest(ctx, http.MethodHead, key, "", opts.RequestHeaders)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, htserr.Wrap(htserr.IOError, err, "HEAD for key %q", key)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return 0, htserr.New(htserr.KeyNotFound, "key %q not found upstream", key)
	}
	if resp.ContentLength >= 0 {
		return uint64(resp.ContentLength), nil
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseUint(cl, 10, 64)
		if err == nil {
			return n, nil
		}
	}
	return 0, htserr.New(htserr.IOError, "upstream did not report Content-Length for key %q", key)
}

// RangeURL rewrites the key onto the response_url prefix, forwarding the
// range as a Range header.
func (s *Storage) RangeURL(_ context.Context, key string, opts storage.RangeUrlOptions) (query.Url, error) {
	u := query.Url{URL: s.responseURLFor(key)}
	u = storage.ApplyRange(u, opts.Range)
	for k, v := range opts.ResponseHeaders {
		if u.Headers == nil {
			u.Headers = map[string]string{}
		}
		u.Headers[k] = v
	}
	return u, nil
}
