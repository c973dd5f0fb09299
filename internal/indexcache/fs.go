package indexcache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSStore provides filesystem-backed index caching.
type FSStore struct {
	root string
}

// NewFSStore creates a new filesystem cache store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// Init ensures the root directory exists.
func (f *FSStore) Init(_ context.Context) error {
	return os.MkdirAll(f.root, 0o755)
}

func (f *FSStore) dataPath(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *FSStore) metaPath(key string) string {
	return f.dataPath(key) + ".meta.json"
}

// Head checks if an index object exists and returns its cached metadata.
func (f *FSStore) Head(_ context.Context, key string) (ObjectMeta, error) {
	return f.readMeta(key)
}

// GetWithMeta retrieves a cached index object's bytes and metadata.
func (f *FSStore) GetWithMeta(_ context.Context, key string) (*GetResult, error) {
	meta, err := f.readMeta(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(f.dataPath(key))
	if err != nil {
		return nil, err
	}

	return &GetResult{Body: file, Meta: meta}, nil
}

// Put writes an index object and its metadata sidecar atomically using
// temp file + rename.
func (f *FSStore) Put(_ context.Context, key string, body io.Reader, meta ObjectMeta) error {
	dp := f.dataPath(key)

	if err := os.MkdirAll(filepath.Dir(dp), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	if err := atomicWrite(dp, body); err != nil {
		return fmt.Errorf("writing data: %w", err)
	}

	metaJSON, err := MarshalMeta(meta)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	if err := atomicWriteBytes(f.metaPath(key), metaJSON); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	return nil
}

func (f *FSStore) readMeta(key string) (ObjectMeta, error) {
	data, err := os.ReadFile(f.metaPath(key))
	if err != nil {
		return ObjectMeta{}, err
	}
	return UnmarshalMeta(data)
}

// atomicWrite writes data from a reader to dst via a temp file + rename.
func atomicWrite(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}

// atomicWriteBytes writes bytes to dst via a temp file + rename.
func atomicWriteBytes(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}
