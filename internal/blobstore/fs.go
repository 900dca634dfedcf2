package blobstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/objects"
)

// FSStore is a sharded, on-disk Store. Blobs live at
// "<root>/<shard>/<hash>", optionally compressed; the codec byte is the
// first byte of the on-disk file so Get can self-describe regardless of the
// codec the store was configured with at write time.
type FSStore struct {
	root  string
	codec Codec

	mu sync.Mutex // serializes directory creation races
}

// FSOption configures an FSStore.
type FSOption func(*FSStore)

// WithCodec selects the compression applied to newly written blobs.
// Existing blobs are read using whatever codec byte they were written with.
func WithCodec(c Codec) FSOption {
	return func(s *FSStore) { s.codec = c }
}

// NewFSStore opens (creating if needed) a sharded blob store rooted at dir.
func NewFSStore(dir string, opts ...FSOption) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root %s: %w", dir, err)
	}
	s := &FSStore{root: dir, codec: CodecZstd}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FSStore) path(hash objects.Hash) string {
	shard, name := shardPath(hash)
	return filepath.Join(s.root, shard, name)
}

func (s *FSStore) Put(data []byte) (objects.Hash, error) {
	hash := objects.Sum(data)
	path := s.path(hash)

	if _, err := os.Stat(path); err == nil {
		return hash, nil // idempotent: content already stored
	}

	encoded, err := encode(s.codec, data)
	if err != nil {
		return "", fmt.Errorf("blobstore: encode %s: %w", hash, err)
	}

	dir := filepath.Dir(path)
	s.mu.Lock()
	err = os.MkdirAll(dir, 0o755)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("blobstore: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("blobstore: tempfile: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return "", fmt.Errorf("blobstore: write %s: %w", hash, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blobstore: close %s: %w", hash, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return hash, nil // lost an idempotent race with a concurrent Put
		}
		return "", fmt.Errorf("blobstore: rename into place %s: %w", hash, err)
	}
	return hash, nil
}

func (s *FSStore) Get(hash objects.Hash) ([]byte, error) {
	if err := guardHash("get", hash); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapf("get", hash, brainyerr.ErrNotFound)
		}
		return nil, fmt.Errorf("blobstore: read %s: %w", hash, err)
	}
	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("blobstore: decode %s: %w", hash, err)
	}
	return data, nil
}

func (s *FSStore) Exists(hash objects.Hash) (bool, error) {
	if hash.IsNull() {
		return false, nil
	}
	_, err := os.Stat(s.path(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *FSStore) Delete(hash objects.Hash) error {
	if err := guardHash("delete", hash); err != nil {
		return err
	}
	if err := os.Remove(s.path(hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blobstore: delete %s: %w", hash, err)
	}
	return nil
}

// on-disk format: one leading codec-tag byte, then the (possibly
// compressed) payload. This lets old blobs survive a codec change.
const (
	tagNone byte = 0
	tagGzip byte = 1
	tagZstd byte = 2
)

func encode(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecGzip:
		var buf bytes.Buffer
		buf.WriteByte(tagGzip)
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		out := make([]byte, 1, len(data)/2+64)
		out[0] = tagZstd
		out = enc.EncodeAll(data, out)
		return out, nil
	default:
		out := make([]byte, 1+len(data))
		out[0] = tagNone
		copy(out[1:], data)
		return out, nil
	}
}

func decode(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty blob file")
	}
	tag, payload := raw[0], raw[1:]
	switch tag {
	case tagNone:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case tagGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case tagZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(payload, nil)
	default:
		return nil, fmt.Errorf("unknown blob codec tag %d", tag)
	}
}
