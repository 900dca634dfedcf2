// Package blobstore implements the content-addressed Blob Store (spec.md
// §4.1): blobs are keyed by the SHA-256 of their uncompressed content,
// sharded by the first two hex characters of the hash, and stored
// optionally compressed. Writes are idempotent: re-putting an existing
// hash is a no-op.
package blobstore

import (
	"fmt"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/objects"
)

// Codec names the compression applied to a blob's on-disk bytes.
type Codec string

const (
	CodecNone Codec = "none"
	CodecGzip Codec = "gzip"
	CodecZstd Codec = "zstd"
)

// Store is the Blob Store contract. Implementations live in fs.go (on-disk,
// sharded) and mem.go (in-process, for tests and ephemeral stores).
type Store interface {
	// Put writes data under its content hash and returns that hash. Putting
	// the same content twice is a no-op on the second call.
	Put(data []byte) (objects.Hash, error)

	// Get returns the uncompressed bytes for hash. Reading NullHash is a
	// caller bug, never a valid blob lookup, and returns InvalidArgument.
	Get(hash objects.Hash) ([]byte, error)

	// Exists reports whether hash is already stored, without reading or
	// decompressing its content.
	Exists(hash objects.Hash) (bool, error)

	// Delete removes a blob. Safe to call on a hash that was never
	// written or was already deleted (idempotent).
	Delete(hash objects.Hash) error
}

func guardHash(op string, hash objects.Hash) error {
	if hash.IsNull() {
		return brainyerr.Wrap(op, brainyerr.ErrInvalidArgument, "refusing to read or delete the NULL_HASH sentinel")
	}
	return nil
}

func shardPath(hash objects.Hash) (dir, name string) {
	s := string(hash)
	return objects.Shard(s), s
}

func wrapf(op string, hash objects.Hash, err error) error {
	return fmt.Errorf("%s %s: %w", op, hash, err)
}
