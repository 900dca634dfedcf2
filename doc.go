// Package brainy is an embeddable knowledge-graph and vector store: typed
// nouns carrying a dense embedding and metadata, typed directed verbs
// between them, a unified find() that fuses vector/graph/metadata search,
// and git-like branch/commit/fork time-travel over content-addressed
// storage.
//
// Most callers only need Open, Add/Get/Update/Delete, Relate/Unrelate,
// and Find/Similar. The branch, migration, and versioning surfaces exist
// for callers building multi-tenant or schema-evolution workflows on top
// of the same store.
package brainy

import (
	"github.com/brainyhq/brainy/internal/engine"
	"github.com/brainyhq/brainy/internal/query"
	"github.com/brainyhq/brainy/internal/types"
)

// Core entity types re-exported so callers never import internal/types
// directly.
type (
	Noun          = types.Noun
	Verb          = types.Verb
	NounType      = types.NounType
	VerbType      = types.VerbType
	NounInput     = types.NounInput
	VerbInput     = types.VerbInput
	NounUpdate    = types.NounUpdate
	Metadata      = types.Metadata
	Direction     = types.Direction
	WhereClause   = types.WhereClause
	Connected     = types.Connected
	RelationQuery = types.RelationQuery
	FindQuery     = types.FindQuery
	FindResult    = types.FindResult
)

// NounType constants.
const (
	NounPerson       = types.NounPerson
	NounDocument     = types.NounDocument
	NounConcept      = types.NounConcept
	NounEvent        = types.NounEvent
	NounOrganization = types.NounOrganization
	NounLocation     = types.NounLocation
	NounProduct      = types.NounProduct
	NounProject      = types.NounProject
	NounTask         = types.NounTask
	NounMessage      = types.NounMessage
	NounThing        = types.NounThing
	NounMedia        = types.NounMedia
	NounFile         = types.NounFile
	NounCollection   = types.NounCollection
)

// VerbType constants.
const (
	VerbContains  = types.VerbContains
	VerbRelatedTo = types.VerbRelatedTo
	VerbFriendOf  = types.VerbFriendOf
	VerbWorksWith = types.VerbWorksWith
	VerbCreatedBy = types.VerbCreatedBy
	VerbLocatedAt = types.VerbLocatedAt
	VerbPartOf    = types.VerbPartOf
	VerbMemberOf  = types.VerbMemberOf
	VerbReportsTo = types.VerbReportsTo
	VerbChildOf   = types.VerbChildOf
)

// Direction constants for Connected queries.
const (
	DirOut  = types.DirOut
	DirIn   = types.DirIn
	DirBoth = types.DirBoth
)

// WhereClause operators.
const (
	OpEq       = types.OpEq
	OpNe       = types.OpNe
	OpGt       = types.OpGt
	OpGte      = types.OpGte
	OpLt       = types.OpLt
	OpLte      = types.OpLte
	OpIn       = types.OpIn
	OpContains = types.OpContains
	OpAnd      = types.OpAnd
	OpOr       = types.OpOr
)

// Options configures Open. A zero DataDir opens a purely in-memory store;
// a non-empty DataDir opens (creating if needed) a filesystem-backed
// store under that directory.
type Options = engine.Options

// Embedder turns free text into a vector for find() calls that supply a
// query string instead of a vector directly. Set it on Options to enable
// FindQuery.Query; embedding-model training is out of scope, running
// inference through a caller-supplied embedder is not.
type Embedder = query.Embedder
