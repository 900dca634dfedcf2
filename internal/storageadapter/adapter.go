// Package storageadapter presents the backend-agnostic {get, put, delete,
// list, bulkGet} contract over opaque string keys (spec.md §4.3). Entity
// keys follow a type-first, UUID-sharded layout so that per-type listings
// are directory-bounded and vector blobs can be bulk-read without paying
// metadata I/O.
package storageadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/brainyhq/brainy/internal/objects"
)

// EntityKind distinguishes the two top-level entity namespaces.
type EntityKind string

const (
	KindNoun EntityKind = "nouns"
	KindVerb EntityKind = "verbs"
)

// Section is the payload kind stored per entity; see spec.md §4.3 (vectors
// and metadata are split so vectors can be bulk-read without metadata I/O).
type Section string

const (
	SectionVectors  Section = "vectors"
	SectionMetadata Section = "metadata"
	SectionHNSW     Section = "hnsw"
)

// EntityKey builds the sharded storage key for one entity's section:
// entities/<nouns|verbs>/<entityType>/<section>/<shard>/<id>.json
func EntityKey(kind EntityKind, entityType string, section Section, id string) string {
	return strings.Join([]string{
		"entities", string(kind), entityType, string(section), objects.Shard(id), id + ".json",
	}, "/")
}

// TypePrefix returns the directory prefix scoping a List to one entity
// type's section, for type-bounded listings.
func TypePrefix(kind EntityKind, entityType string, section Section) string {
	return strings.Join([]string{"entities", string(kind), entityType, string(section)}, "/") + "/"
}

// SystemKey builds a key under the reserved "_system" namespace used by
// counts bookkeeping, ref storage, and the HNSW coordinator summary.
func SystemKey(name string) string {
	return "_system/" + name
}

// Page is one page of a List call.
type Page struct {
	Keys       []string
	NextCursor string // empty means no further pages
}

// Adapter is the storage backend contract. ThrottleAware backends report
// classified errors to a throttle.Adaptor-shaped reporter; Adapter itself
// stays decoupled from that package to avoid an import cycle.
type Adapter interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns up to limit keys with the given prefix, starting after
	// cursor (empty cursor starts from the beginning). The adapter may page
	// across internal shards transparently.
	List(ctx context.Context, prefix, cursor string, limit int) (Page, error)
	// BulkGet resolves many keys in as few round trips as the backend
	// allows; keys missing from the backend are simply absent from the
	// result map (spec.md §4.15 "missing ids are silently dropped").
	BulkGet(ctx context.Context, keys []string) (map[string][]byte, error)
	// Close releases any held resources (open-lock, connections).
	Close() error
}

// ThrottleReporter receives classified backend errors so the Throttle
// Adaptor (spec.md §4.14) can track backoff state without Adapter
// implementations importing internal/throttle directly.
type ThrottleReporter interface {
	ReportError(err error)
	ReportSuccess()
}

func wrapKeyErr(op, key string, err error) error {
	return fmt.Errorf("storageadapter: %s %s: %w", op, key, err)
}
