package crypt4gh

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"strings"
	"sync"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

// indexSuffixes are the companion-index file extensions that, per
// spec.md §4.8 ("when the request targets an index file, passes
// through untouched"), are never themselves Crypt4GH-encrypted.
var indexSuffixes = []string{".bai", ".crai", ".tbi", ".csi", ".gzi"}

func isIndexKey(key string) bool {
	for _, suf := range indexSuffixes {
		if strings.HasSuffix(key, suf) {
			return true
		}
	}
	return false
}

// keyState is the short-lived per-key parse result cached across a
// single request's Preprocess/Get/Postprocess calls, spec.md §5.
type keyState struct {
	header      Header
	sessionKeys [][]byte
}

// Storage decorates an inner storage.Storage, transparently decrypting
// Crypt4GH-wrapped main data files for the search engines that read
// them, and translating unencrypted byte positions into the encrypted
// data-block ranges a client needs to fetch and decrypt the requested
// region itself (spec.md §4.8).
type Storage struct {
	inner     storage.Storage
	recipient KeyPair
	sender    KeyPair

	mu    sync.Mutex
	state map[string]*keyState
}

// New wraps inner with a Crypt4GH decoder using recipient's key pair to
// decode session keys, and sender as the configured key pair from which
// header packets re-encrypted for the client are sent.
func New(inner storage.Storage, recipient, sender KeyPair) *Storage {
	return &Storage{inner: inner, recipient: recipient, sender: sender, state: map[string]*keyState{}}
}

func (s *Storage) loadState(ctx context.Context, key string) (*keyState, error) {
	s.mu.Lock()
	if st, ok := s.state[key]; ok {
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	rc, err := s.inner.Get(ctx, key, storage.GetOptions{})
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	header, err := ReadHeader(rc)
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "parsing Crypt4GH header for %q", key)
	}
	sessionKeys, err := SessionKeys(header, s.recipient)
	if err != nil {
		return nil, err
	}

	st := &keyState{header: header, sessionKeys: sessionKeys}
	s.mu.Lock()
	s.state[key] = st
	s.mu.Unlock()
	return st, nil
}

// Preprocess parses and caches the Crypt4GH header for the query's
// target key, ahead of any Get/Postprocess call against it.
func (s *Storage) Preprocess(ctx context.Context, key string, opts storage.PreprocessOptions) error {
	if isIndexKey(key) {
		return s.inner.Preprocess(ctx, key, opts)
	}
	_, err := s.loadState(ctx, key)
	return err
}

// Get streams key's content. Index files pass through untouched;
// the main data file is decrypted on the fly so a search engine reading
// it sees the plaintext container stream, in unencrypted byte
// coordinates.
func (s *Storage) Get(ctx context.Context, key string, opts storage.GetOptions) (io.ReadCloser, error) {
	if isIndexKey(key) {
		return s.inner.Get(ctx, key, opts)
	}

	st, err := s.loadState(ctx, key)
	if err != nil {
		return nil, err
	}

	start := uint64(0)
	if opts.Range.Start != nil {
		start = *opts.Range.Start
	}
	blockStart := UnencryptedToDataBlock(start, st.header.Size)

	var encEnd *uint64
	if opts.Range.End != nil {
		e := UnencryptedToNextDataBlock(*opts.Range.End+1, st.header.Size)
		encEnd = &e
	}

	rc, err := s.inner.Get(ctx, key, storage.GetOptions{
		Range: byterange.BytesRange{Start: byterange.U64Ptr(blockStart), End: derefOrNil(encEnd)},
	})
	if err != nil {
		return nil, err
	}

	discard := start - ToUnencrypted(blockStart+NonceSize, st.header.Size)
	dr := &decryptingReader{src: rc, sessionKeys: st.sessionKeys}
	if discard > 0 {
		if _, err := io.CopyN(io.Discard, dr, int64(discard)); err != nil {
			rc.Close()
			return nil, htserr.Wrap(htserr.IOError, err, "skipping to requested offset in %q", key)
		}
	}
	return dr, nil
}

func derefOrNil(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p - 1 // inner Get range end is inclusive of the last requested encrypted byte
	return &v
}

// Head reports the object's unencrypted length.
func (s *Storage) Head(ctx context.Context, key string, opts storage.HeadOptions) (uint64, error) {
	if isIndexKey(key) {
		return s.inner.Head(ctx, key, opts)
	}
	st, err := s.loadState(ctx, key)
	if err != nil {
		return 0, err
	}
	encryptedSize, err := s.inner.Head(ctx, key, opts)
	if err != nil {
		return 0, err
	}
	return ToUnencryptedFileSize(encryptedSize, st.header.Size), nil
}

// RangeURL renders a client-fetchable URL over the underlying
// (encrypted) byte range corresponding to an already-encrypted
// BytesRange (see Postprocess, which performs that translation before
// rendering starts).
func (s *Storage) RangeURL(ctx context.Context, key string, opts storage.RangeUrlOptions) (query.Url, error) {
	return s.inner.RangeURL(ctx, key, opts)
}

// DataURL base64-encodes data inline, delegating to the inner storage's
// rendering (inline blocks, such as the re-encrypted header and edit
// list, are never themselves further encrypted).
func (s *Storage) DataURL(data []byte, class *byterange.Class) query.Url {
	return s.inner.DataURL(data, class)
}

// Postprocess implements spec.md §4.8's postprocess algorithm: for
// every unencrypted position, compute the clamped and encrypted-block
// parallel position lists, merge each independently, build a
// re-encrypted header carrying a fresh edit-list packet, and emit the
// header/edit-list/encrypted-range blocks in order.
func (s *Storage) Postprocess(ctx context.Context, key string, positions []byterange.BytesPosition, opts storage.PostprocessOptions) ([]byterange.DataBlock, error) {
	if isIndexKey(key) {
		return s.inner.Postprocess(ctx, key, positions, opts)
	}

	st, err := s.loadState(ctx, key)
	if err != nil {
		return nil, err
	}

	unencrypted := byterange.MergeAll(positions)

	clamped := make([]byterange.BytesPosition, len(unencrypted))
	encrypted := make([]byterange.BytesPosition, len(unencrypted))
	for i, p := range unencrypted {
		if p.Start == nil || p.End == nil {
			return nil, htserr.New(htserr.InvalidRange, "Crypt4GH storage requires bounded byte positions")
		}
		cs := UnencryptedClamp(*p.Start)
		ce := UnencryptedClampNext(*p.End)
		clamped[i] = byterange.NewBytesPosition(byterange.U64Ptr(cs), byterange.U64Ptr(ce), p.Class)

		es := UnencryptedToDataBlock(*p.Start, st.header.Size)
		ee := UnencryptedToNextDataBlock(*p.End, st.header.Size)
		encrypted[i] = byterange.NewBytesPosition(byterange.U64Ptr(es), byterange.U64Ptr(ee), p.Class)
	}
	clamped = byterange.MergeAll(clamped)
	encrypted = byterange.MergeAll(encrypted)

	edits, err := BuildEditList(unencrypted, clamped)
	if err != nil {
		return nil, err
	}

	newHeader, editListPacket, err := s.buildReEncryptedHeader(st.header, edits)
	if err != nil {
		return nil, err
	}

	// The original data-encryption-key packets are unchanged, so they
	// are served by range straight out of the source header; only the
	// freshly built edit-list packet is sent as inline data.
	origPacketsEnd := st.header.Size
	headerClass := byterange.ClassPtr(byterange.ClassHeader)
	blocks := make([]byterange.DataBlock, 0, 3+len(encrypted))
	blocks = append(blocks, byterange.NewDataBlock(newHeader.Info.Bytes(), headerClass))
	blocks = append(blocks, byterange.NewRangeBlock(byterange.NewBytesPosition(
		byterange.U64Ptr(infoRecordSize), byterange.U64Ptr(origPacketsEnd), headerClass)))
	blocks = append(blocks, byterange.NewDataBlock(editListPacket.Raw, headerClass))

	for _, p := range encrypted {
		blocks = append(blocks, byterange.NewRangeBlock(p))
	}
	return blocks, nil
}

// buildReEncryptedHeader builds the header this gateway sends back to
// the client: the original info record with a bumped packet count, the
// original data-encryption-key packets (served by range, so only
// counted here, not duplicated), and one freshly built edit-list
// packet addressed back to the recipient.
func (s *Storage) buildReEncryptedHeader(orig Header, edits []uint64) (Header, Packet, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Header{}, Packet{}, htserr.Wrap(htserr.InternalError, err, "generating edit-list packet nonce")
	}
	raw, err := encryptPacket(s.sender, s.recipient.PublicKey, packetTypeDataEditList, EncodeEditListPayload(edits), nonce)
	if err != nil {
		return Header{}, Packet{}, err
	}
	editListPacket := Packet{Raw: raw}

	packets := append(append([]Packet(nil), orig.Packets...), editListPacket)
	info := InfoRecord{Version: orig.Info.Version, PacketsCount: uint32(len(packets))}
	size := uint64(infoRecordSize)
	for _, p := range packets {
		size += uint64(len(p.Raw))
	}
	return Header{Info: info, Packets: packets, Size: size}, editListPacket, nil
}

// decryptingReader decodes a stream of back-to-back encrypted data
// segments into their plaintext concatenation.
type decryptingReader struct {
	src         io.ReadCloser
	sessionKeys [][]byte
	buf         bytes.Buffer
	err         error
}

func (d *decryptingReader) Read(p []byte) (int, error) {
	for d.buf.Len() == 0 && d.err == nil {
		segment := make([]byte, BlockSize)
		n, err := io.ReadFull(d.src, segment)
		if n == 0 && err != nil {
			d.err = err
			break
		}
		segment = segment[:n]
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			d.err = io.EOF
		} else if err != nil {
			d.err = err
			break
		}
		plaintext, decErr := DecryptBlock(segment, d.sessionKeys)
		if decErr != nil {
			d.err = decErr
			break
		}
		d.buf.Write(plaintext)
	}
	if d.buf.Len() > 0 {
		return d.buf.Read(p)
	}
	if d.err == io.EOF {
		return 0, io.EOF
	}
	return 0, d.err
}

func (d *decryptingReader) Close() error {
	return d.src.Close()
}

var _ storage.Storage = (*Storage)(nil)
