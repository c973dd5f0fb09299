// Package localstorage implements the Storage abstraction over the
// local filesystem: a base directory plus path-joined keys, generalized
// to the read-only, range-aware contract of spec.md §4.2.
package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

// Storage serves objects rooted at a base directory, and renders range
// URLs as "{scheme}://{authority}{pathPrefix}/{key}" with a Range
// header, for a co-located data server (spec.md §6.3 data_server) to
// resolve.
type Storage struct {
	storage.Base
	root       string
	scheme     string
	authority  string
	pathPrefix string
}

// New creates a local filesystem storage backend rooted at root. scheme
// and authority (e.g. "http", "localhost:8081") and pathPrefix (e.g.
// "/data") are used only to render range URLs; the data server
// referenced by them is an external collaborator (spec.md §6.3
// data_server).
func New(root, scheme, authority, pathPrefix string) (*Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, htserr.Wrap(htserr.KeyNotFound, err, "resolving local storage root %q", root)
	}
	return &Storage{root: abs, scheme: scheme, authority: authority, pathPrefix: strings.TrimSuffix(pathPrefix, "/")}, nil
}

func (s *Storage) pathFromKey(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	// Guard against path traversal outside the configured root.
	rel, err := filepath.Rel(s.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", htserr.New(htserr.InvalidInput, "key %q escapes storage root", key)
	}
	return p, nil
}

// Get opens the file at key and seeks to the start of opts.Range if set.
func (s *Storage) Get(_ context.Context, key string, opts storage.GetOptions) (io.ReadCloser, error) {
	path, err := s.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, htserr.Wrap(htserr.KeyNotFound, err, "key %q not found", key)
		}
		return nil, htserr.Wrap(htserr.IOError, err, "opening %q", key)
	}
	if opts.Range.Start != nil {
		if _, err := f.Seek(int64(*opts.Range.Start), io.SeekStart); err != nil {
			f.Close()
			return nil, htserr.Wrap(htserr.IOError, err, "seeking %q", key)
		}
	}
	if opts.Range.End != nil {
		start := uint64(0)
		if opts.Range.Start != nil {
			start = *opts.Range.Start
		}
		n := int64(*opts.Range.End) - int64(start) + 1
		return struct {
			io.Reader
			io.Closer
		}{io.LimitReader(f, n), f}, nil
	}
	return f, nil
}

// Head reports the file's size.
func (s *Storage) Head(_ context.Context, key string, _ storage.HeadOptions) (uint64, error) {
	path, err := s.pathFromKey(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, htserr.Wrap(htserr.KeyNotFound, err, "key %q not found", key)
		}
		return 0, htserr.Wrap(htserr.IOError, err, "stat %q", key)
	}
	return uint64(info.Size()), nil
}

// RangeURL renders "{scheme}://{authority}{pathPrefix}/{key}" with a
// Range header set from opts.Range, matching spec.md §4.2's "Locally:"
// case.
func (s *Storage) RangeURL(_ context.Context, key string, opts storage.RangeUrlOptions) (query.Url, error) {
	path, err := s.pathFromKey(key)
	if err != nil {
		return query.Url{}, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return query.Url{}, htserr.Wrap(htserr.KeyNotFound, err, "key %q not found", key)
		}
		return query.Url{}, htserr.Wrap(htserr.IOError, err, "stat %q", key)
	}

	u := query.Url{
		URL: fmt.Sprintf("%s://%s%s/%s", s.scheme, s.authority, s.pathPrefix, key),
	}
	u = storage.ApplyRange(u, opts.Range)
	for k, v := range opts.ResponseHeaders {
		if u.Headers == nil {
			u.Headers = map[string]string{}
		}
		u.Headers[k] = v
	}
	return u, nil
}
